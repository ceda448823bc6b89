package socket

import (
	"context"
	"fmt"
	"sync"
)

// Client represents one connected game client: its transport, the cancellable
// execution scope every piece of work owned by the connection runs under, and
// the player identity bound once authentication completes.
type Client struct {
	conn      Conn
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// Guards the transport against interleaved writes from handlers and
	// background tasks.
	writeMu sync.Mutex

	mu       sync.RWMutex
	playerID string
	username string
}

// NewClient wraps an accepted connection. The client's execution scope is a
// child of parent, so cancelling parent shuts down every connected client.
func NewClient(parent context.Context, conn Conn) *Client {
	ctx, cancel := context.WithCancel(parent)
	return &Client{
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the client's execution scope. Tasks bound to this client
// run as children of this context and are cancelled when it shuts down.
func (c *Client) Context() context.Context { return c.ctx }

func (c *Client) RemoteAddr() string { return c.conn.RemoteAddr() }

// Read consumes the next available bytes from the client's transport.
func (c *Client) Read(p []byte) (int, error) {
	return c.conn.Read(p)
}

// Write sends data to the client. Handlers responding inline and background
// tasks may call this concurrently; writes are serialized per client.
func (c *Client) Write(data []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	sent := 0
	for sent < len(data) {
		n, err := c.conn.Write(data[sent:])
		if err != nil {
			return sent, fmt.Errorf("writing to client %v: %w", c.RemoteAddr(), err)
		}
		sent += n
	}
	return sent, nil
}

// Shutdown cancels the client's execution scope and releases the transport.
// Safe to call multiple times.
func (c *Client) Shutdown() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.Close()
	})
}

// BindPlayer records the player identity for this connection. Called by the
// authentication step once credentials have been verified.
func (c *Client) BindPlayer(playerID, username string) {
	c.mu.Lock()
	c.playerID = playerID
	c.username = username
	c.mu.Unlock()
}

func (c *Client) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// Authenticated reports whether a player identity has been bound.
func (c *Client) Authenticated() bool {
	return c.PlayerID() != ""
}
