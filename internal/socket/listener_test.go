package socket

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// startTestListener runs the accept loop on an ephemeral port and returns the
// dialable address.
func startTestListener(t *testing.T, l *Listener) (net.Addr, context.CancelFunc, *sync.WaitGroup) {
	t.Helper()

	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("resolving loopback address: %v", err)
	}
	socket, err := net.ListenTCP("tcp", addr)
	if err != nil {
		t.Fatalf("listening: %v", err)
	}

	logger := zaptest.NewLogger(t).Sugar()
	l.Address = socket.Addr().String()
	l.Logger = logger
	l.Server = NewServer(ServerOpts{
		Logger:     logger,
		Codecs:     NewCodecRegistry(logger),
		Dispatcher: NewDispatcher(logger),
	})
	l.connected = newClientList()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go l.startBlockingLoop(ctx, socket, wg)

	return socket.Addr(), cancel, wg
}

func awaitConnected(t *testing.T, l *Listener, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for l.NumConnected() != want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d connected client(s), have %d", want, l.NumConnected())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func awaitShutdown(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not shut down")
	}
}

func TestListenerAcceptsAndTracksClients(t *testing.T) {
	l := &Listener{}
	addr, cancel, wg := startTestListener(t, l)

	first, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dialing listener: %v", err)
	}
	t.Cleanup(func() { _ = first.Close() })

	second, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dialing listener: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	awaitConnected(t, l, 2)

	if got := len(l.Clients()); got != 2 {
		t.Errorf("Clients() returned %d clients, want 2", got)
	}

	_ = first.Close()
	awaitConnected(t, l, 1)

	cancel()
	awaitShutdown(t, wg)
}

func TestListenerShutdownClosesClients(t *testing.T) {
	l := &Listener{}
	addr, cancel, wg := startTestListener(t, l)

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dialing listener: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	awaitConnected(t, l, 1)
	cancel()
	awaitShutdown(t, wg)

	// The server side hung up, so a read observes the closed stream.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Error("expected the connection to be closed by shutdown")
	}
}

func TestListenerShutdownWithoutClients(t *testing.T) {
	l := &Listener{}
	_, cancel, wg := startTestListener(t, l)

	cancel()
	awaitShutdown(t, wg)
}
