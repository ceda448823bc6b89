package socket

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Listener implements the concurrent client connection logic.
//
// Accepted connections are wrapped in Clients and handed to the Server, which
// abstracts the lower level connection details away from message handlers.
type Listener struct {
	Address string
	Server  *Server
	Logger  *zap.SugaredLogger
	// WebsocketAddress, when set, also accepts clients over websocket.
	WebsocketAddress string
	MaxConnections   int

	connected *clientList
}

// Start opens a TCP socket on the Listener's address. A blocking loop for
// accepting client connections is spun off in its own goroutine and added to
// the WaitGroup. Context cancellation stops the server.
func (l *Listener) Start(ctx context.Context, wg *sync.WaitGroup) error {
	l.connected = newClientList()

	socket, err := l.createSocket()
	if err != nil {
		return fmt.Errorf("creating socket on %s: %w", l.Address, err)
	}

	wg.Add(1)
	go l.startBlockingLoop(ctx, socket, wg)

	if l.WebsocketAddress != "" {
		wg.Add(1)
		go l.serveWebsocket(ctx, wg)
	}

	return nil
}

// NumConnected returns the number of currently connected clients.
func (l *Listener) NumConnected() int {
	if l.connected == nil {
		return 0
	}
	return l.connected.len()
}

// FindClient returns the connected client bound to playerID, or nil if that
// player is not online.
func (l *Listener) FindClient(playerID string) *Client {
	if l.connected == nil {
		return nil
	}
	return l.connected.findByPlayer(playerID)
}

// Clients returns a snapshot of the currently connected clients.
func (l *Listener) Clients() []*Client {
	if l.connected == nil {
		return nil
	}
	return l.connected.snapshot()
}

func (l *Listener) createSocket() (*net.TCPListener, error) {
	hostAddr, err := net.ResolveTCPAddr("tcp", l.Address)
	if err != nil {
		return nil, fmt.Errorf("resolving address: %w", err)
	}

	socket, err := net.ListenTCP("tcp", hostAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on socket: %w", err)
	}

	return socket, nil
}

// startBlockingLoop implements a connection handling loop that's purely
// responsible for accepting new connections and spinning off goroutines for
// the Server to handle them.
func (l *Listener) startBlockingLoop(ctx context.Context, socket *net.TCPListener, wg *sync.WaitGroup) {
	defer wg.Done()

	l.Logger.Infof("waiting for connections on %v", l.Address)

	connections := make(chan *net.TCPConn)
	go func() {
		for {
			// Poll until we can accept more clients.
			for l.MaxConnections > 0 && l.connected.len() >= l.MaxConnections {
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}

			connection, err := socket.AcceptTCP()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				l.Logger.Warnf("failed to accept connection: %v", err)
				continue
			}

			// The handle loop stops receiving once ctx ends; an in-flight
			// connection is closed rather than held forever.
			select {
			case connections <- connection:
			case <-ctx.Done():
				_ = connection.Close()
				return
			}
		}
	}()

	clientWg := &sync.WaitGroup{}
handleLoop:
	for {
		select {
		case <-ctx.Done():
			break handleLoop
		case connection := <-connections:
			clientWg.Add(1)
			// Note: If there is eventually a need to implement worker pooling
			// rather than spawning new goroutines for each client, this is
			// where it should be implemented.
			go l.acceptClient(ctx, connection, clientWg)
		}
	}

	_ = socket.Close()

	// Unblock any reads so the per-client goroutines can exit.
	for _, c := range l.connected.snapshot() {
		c.Shutdown()
	}

	l.Logger.Infof("listener on %v shutting down (waiting for connections to close)", l.Address)
	clientWg.Wait()
	l.Logger.Infof("listener on %v exited", l.Address)
}

// acceptClient wraps a connection in a Client bound to the server scope and
// runs its read loop until disconnect.
func (l *Listener) acceptClient(ctx context.Context, connection *net.TCPConn, wg *sync.WaitGroup) {
	defer wg.Done()

	c := NewClient(ctx, NewTCPConn(connection))
	l.Logger.Infof("accepted connection from %s", c.RemoteAddr())

	l.connected.add(c)
	defer l.connected.remove(c)

	l.Server.ServeClient(c)
}
