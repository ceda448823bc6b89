package socket

import (
	"errors"
	"io"
	"net"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/sablehq/sable/internal/core"
)

// TaskStopper is the slice of the task scheduler the connection loop needs
// for cleanup: when a client disconnects, every task it owns is stopped.
type TaskStopper interface {
	StopAllForPlayer(playerID string) int
}

// Presence is notified when an authenticated client goes away so that its
// online-presence and context records can be removed.
type Presence interface {
	Offline(playerID string)
}

// ActivityRecorder persists the player's last-activity timestamp on
// disconnect.
type ActivityRecorder interface {
	RecordLastActivity(playerID string, timestampMillis int64) error
}

const defaultReadBufferSize = 2048

// Server drives the per-connection read/decode/dispatch cycle. The accept
// layer hands it connected clients; everything after that, including cleanup
// on disconnect, happens here.
type Server struct {
	logger     *zap.SugaredLogger
	codecs     *CodecRegistry
	dispatcher *Dispatcher
	tasks      TaskStopper
	presence   Presence
	activity   ActivityRecorder
	clock      core.Clock
	bufferSize int
	frameLog   bool
}

// ServerOpts carries the collaborators a Server needs. Codecs, Dispatcher,
// and Logger are required; the rest may be nil, in which case the relevant
// cleanup step is skipped.
type ServerOpts struct {
	Logger         *zap.SugaredLogger
	Codecs         *CodecRegistry
	Dispatcher     *Dispatcher
	Tasks          TaskStopper
	Presence       Presence
	Activity       ActivityRecorder
	Clock          core.Clock
	ReadBufferSize int
	// FrameLogging dumps every inbound frame at debug level.
	FrameLogging bool
}

func NewServer(opts ServerOpts) *Server {
	if opts.Clock == nil {
		opts.Clock = core.SystemClock{}
	}
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = defaultReadBufferSize
	}
	return &Server{
		logger:     opts.Logger,
		codecs:     opts.Codecs,
		dispatcher: opts.Dispatcher,
		tasks:      opts.Tasks,
		presence:   opts.Presence,
		activity:   opts.Activity,
		clock:      opts.Clock,
		bufferSize: opts.ReadBufferSize,
		frameLog:   opts.FrameLogging,
	}
}

// ServeClient runs the blocking read loop for one client and only returns
// once the connection has closed. Inbound frames are processed strictly in
// arrival order; all handlers for one frame complete before the next read.
func (s *Server) ServeClient(c *Client) {
	defer s.closeConnectionAndRecover(c)

	buffer := make([]byte, s.bufferSize)

	for {
		select {
		case <-c.Context().Done():
			return
		default:
		}

		n, err := c.Read(buffer)
		if err != nil {
			s.logDisconnect(c, err)
			return
		}
		if n <= 0 {
			continue
		}

		s.processFrame(c, buffer[:n])
	}
}

// processFrame classifies one inbound frame against the registered codecs and
// dispatches every usable message it yields. Errors here are confined to the
// frame; the caller issues the next read regardless.
func (s *Server) processFrame(c *Client, frame []byte) {
	type match struct {
		format *Format
		msg    Message
	}

	if s.frameLog {
		s.logger.Debugf("frame from %s:\n%s", c.RemoteAddr(), spew.Sdump(frame))
	}

	candidates := s.codecs.Detect(frame)
	if len(candidates) == 0 {
		s.logger.Debugf("no codec candidates for %d byte frame from %s", len(frame), c.RemoteAddr())
		return
	}

	var (
		matches   []match
		decodeErr error
	)
	for _, f := range candidates {
		decoded, err := f.Codec.Decode(frame)
		if err != nil {
			// Abandon the remaining candidates for this frame only; the
			// connection is unaffected.
			decodeErr = err
			break
		}
		if decoded == nil {
			s.logger.Debugf("codec %s verified but failed to decode frame from %s", f.Codec.Name(), c.RemoteAddr())
			continue
		}

		msg := f.NewMessage(decoded)
		if msg.Empty() {
			s.logger.Debugf("skipping empty %s message from %s", f.Codec.Name(), c.RemoteAddr())
			continue
		}
		matches = append(matches, match{format: f, msg: msg})
	}

	if decodeErr != nil {
		s.logger.Warnf("decode error on frame from %s: %v", c.RemoteAddr(), decodeErr)
	}

	if len(matches) > 1 {
		var descs []string
		for _, m := range matches {
			descs = append(descs, m.format.Codec.Name()+"/"+m.msg.Type())
		}
		s.logger.Warnf("ambiguous frame from %s matched multiple codecs: %s",
			c.RemoteAddr(), strings.Join(descs, ", "))
	}

	for _, m := range matches {
		for _, h := range s.dispatcher.HandlersFor(m.msg) {
			if err := h.Handle(c.Context(), c, m.msg); err != nil {
				s.logger.Warnf("handler error for %s message from %s: %v", m.msg.Type(), c.RemoteAddr(), err)
			}
		}
	}
}

// logDisconnect distinguishes a clean disconnect from a reset style transport
// error and from anything unexpected. None of the three propagate beyond this
// connection.
func (s *Server) logDisconnect(c *Client, err error) {
	switch {
	case errors.Is(err, io.EOF):
		s.logger.Infof("client %s disconnected", c.RemoteAddr())
	case isConnectionReset(err):
		s.logger.Infof("connection to %s reset: %v", c.RemoteAddr(), err)
	default:
		s.logger.Warnf("unexpected read error from %s: %v", c.RemoteAddr(), err)
	}
}

// isConnectionReset matches only the transport errors that mean the peer is
// gone. Other net.OpErrors (timeouts, routing failures) stay on the
// unexpected path.
func isConnectionReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) || errors.Is(err, net.ErrClosed)
}

// closeConnectionAndRecover tears down everything the connection owns. It
// also catches any panic that escaped the read loop so that one misbehaving
// client cannot take down the process.
func (s *Server) closeConnectionAndRecover(c *Client) {
	if r := recover(); r != nil {
		s.logger.Errorf("error in client communication: %s: %s\n%s\n", c.RemoteAddr(), r, debug.Stack())
	}

	if c.Authenticated() {
		playerID := c.PlayerID()

		if s.tasks != nil {
			if stopped := s.tasks.StopAllForPlayer(playerID); stopped > 0 {
				s.logger.Debugf("stopped %d task(s) for player %s", stopped, playerID)
			}
		}
		if s.presence != nil {
			s.presence.Offline(playerID)
		}
		if s.activity != nil {
			if err := s.activity.RecordLastActivity(playerID, core.TimestampMillis(s.clock)); err != nil {
				s.logger.Warnf("failed to record last activity for player %s: %v", playerID, err)
			}
		}
	}

	c.Shutdown()
	s.logger.Infof("closed connection to %s", c.RemoteAddr())
}
