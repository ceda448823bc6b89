package socket

import (
	"io"
	"net"

	"github.com/gorilla/websocket"
)

// Conn is one client's bidirectional byte stream. Implementations are not
// required to be safe for concurrent writers; Client serializes writes on
// top of this interface.
type Conn interface {
	// Read blocks until bytes arrive or the stream ends, in which case it
	// returns io.EOF.
	Read(p []byte) (int, error)
	// Write transmits the bytes unmodified, preserving order for a single caller.
	Write(p []byte) (int, error)
	Close() error
	RemoteAddr() string
}

// tcpConn adapts a *net.TCPConn to the Conn interface.
type tcpConn struct {
	*net.TCPConn
}

func (c tcpConn) RemoteAddr() string { return c.TCPConn.RemoteAddr().String() }

// NewTCPConn wraps an accepted TCP connection in a Conn.
func NewTCPConn(conn *net.TCPConn) Conn { return tcpConn{conn} }

// WebsocketConn adapts a gorilla/websocket connection to the Conn interface,
// flattening its message frames into a byte stream. Each Read drains at most
// one websocket message; each Write sends one binary message.
type WebsocketConn struct {
	ws     *websocket.Conn
	reader io.Reader
}

func NewWebsocketConn(ws *websocket.Conn) *WebsocketConn {
	return &WebsocketConn{ws: ws}
}

func (c *WebsocketConn) Read(p []byte) (int, error) {
	for {
		if c.reader == nil {
			_, r, err := c.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			c.reader = r
		}

		n, err := c.reader.Read(p)
		if err == io.EOF {
			// Current message exhausted; move on to the next one.
			c.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *WebsocketConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *WebsocketConn) Close() error { return c.ws.Close() }

func (c *WebsocketConn) RemoteAddr() string { return c.ws.RemoteAddr().String() }
