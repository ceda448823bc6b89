// Package game wires the stock gameplay-facing message handlers: login,
// ping, a frame logger for binary opcodes nothing else claims, and the
// catch-all. It is the layer that binds player identity to a connection; the
// socket runtime itself stays identity-agnostic.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sablehq/sable/internal/core/auth"
	"github.com/sablehq/sable/internal/presence"
	"github.com/sablehq/sable/internal/protocol"
	"github.com/sablehq/sable/internal/socket"
	"github.com/sablehq/sable/internal/tasks"
)

// LoginHandler authenticates a client and binds its player identity. It
// accepts both the text form ("login <username> <password>") and the JSON
// form ({"type":"login","username":...,"password":...}).
type LoginHandler struct {
	Logger    *zap.SugaredLogger
	DB        *gorm.DB
	Presence  *presence.Tracker
	Scheduler *tasks.Scheduler
	Autosave  *tasks.Category[AutosaveParams]
}

func (h *LoginHandler) Type() string { return "login" }

func (h *LoginHandler) Match(socket.Message) bool { return false }

func (h *LoginHandler) Handle(ctx context.Context, c *socket.Client, m socket.Message) error {
	username, password, err := credentials(m)
	if err != nil {
		reply(c, "login error: "+err.Error())
		return nil
	}

	account, err := auth.VerifyAccount(h.DB, username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrAccountBanned) {
			h.Logger.Infof("rejected login for %s from %s: %v", username, c.RemoteAddr(), err)
			reply(c, "login rejected: "+err.Error())
			return nil
		}
		return fmt.Errorf("verifying account %s: %w", username, err)
	}

	playerID := account.PlayerID()
	c.BindPlayer(playerID, account.Username)
	h.Presence.Online(playerID, account.Username, c.RemoteAddr())
	h.Logger.Infof("player %s (%s) logged in from %s", playerID, account.Username, c.RemoteAddr())

	if _, err := h.Autosave.Run(c, NewAutosaveTask(h.DB, playerID), AutosaveParams{}); err != nil {
		h.Logger.Warnf("could not start autosave for player %s: %v", playerID, err)
	}

	reply(c, "login ok "+playerID)
	return nil
}

func credentials(m socket.Message) (username, password string, err error) {
	switch msg := m.(type) {
	case *protocol.TextMessage:
		args := msg.Args()
		if len(args) != 2 {
			return "", "", errors.New("expected: login <username> <password>")
		}
		return args[0], args[1], nil
	case *protocol.JSONMessage:
		username, password = msg.Field("username"), msg.Field("password")
		if username == "" || password == "" {
			return "", "", errors.New("missing username or password field")
		}
		return username, password, nil
	}
	return "", "", fmt.Errorf("unsupported login message %T", m)
}

// PingHandler answers keepalive probes.
type PingHandler struct{}

func (PingHandler) Type() string { return "ping" }

func (PingHandler) Match(socket.Message) bool { return false }

func (PingHandler) Handle(_ context.Context, c *socket.Client, _ socket.Message) error {
	reply(c, "pong")
	return nil
}

// FrameHandler claims, by predicate, every binary frame whose opcode has no
// dedicated handler, so unknown opcodes are observable instead of vanishing
// into the catch-all.
type FrameHandler struct {
	Logger *zap.SugaredLogger
}

func (FrameHandler) Type() string { return "" }

func (FrameHandler) Match(m socket.Message) bool {
	return strings.HasPrefix(m.Type(), "frame/")
}

func (h FrameHandler) Handle(_ context.Context, c *socket.Client, m socket.Message) error {
	frame, ok := m.Payload().(*protocol.Frame)
	if !ok {
		return fmt.Errorf("frame handler received %T payload", m.Payload())
	}
	h.Logger.Debugf("unhandled opcode 0x%04x (%d byte body) from %s", frame.Opcode, len(frame.Body), c.RemoteAddr())
	return nil
}

// DefaultHandler is the catch-all for messages nothing else claimed.
type DefaultHandler struct {
	Logger *zap.SugaredLogger
}

func (DefaultHandler) Type() string { return "" }

func (DefaultHandler) Match(socket.Message) bool { return false }

func (h DefaultHandler) Handle(_ context.Context, c *socket.Client, m socket.Message) error {
	h.Logger.Debugf("no handler for %q message from %s", m.Type(), c.RemoteAddr())
	reply(c, "unknown command")
	return nil
}

func reply(c *socket.Client, line string) {
	_, _ = c.Write([]byte(line + "\n"))
}
