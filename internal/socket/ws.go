package socket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Game clients connect from anywhere; origin checks are meaningless here.
	CheckOrigin: func(*http.Request) bool { return true },
}

// serveWebsocket runs an HTTP server that upgrades requests to /ws and feeds
// the resulting connections through the same Server and client list as the
// TCP socket, so browser clients are indistinguishable from native ones.
func (l *Listener) serveWebsocket(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	clientWg := &sync.WaitGroup{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if l.MaxConnections > 0 && l.connected.len() >= l.MaxConnections {
			http.Error(w, "server full", http.StatusServiceUnavailable)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			l.Logger.Warnf("failed to upgrade websocket connection: %v", err)
			return
		}

		// Upgraded connections are hijacked, so the http.Server no longer
		// tracks them; clientWg does.
		clientWg.Add(1)
		defer clientWg.Done()

		c := NewClient(ctx, NewWebsocketConn(ws))
		l.Logger.Infof("accepted websocket connection from %s", c.RemoteAddr())

		l.connected.add(c)
		defer l.connected.remove(c)

		l.Server.ServeClient(c)
	})

	httpServer := &http.Server{Addr: l.WebsocketAddress, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	l.Logger.Infof("waiting for websocket connections on %v", l.WebsocketAddress)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Logger.Errorf("websocket listener on %v failed: %v", l.WebsocketAddress, err)
	}

	// Unblock any reads so the per-client handlers can exit.
	for _, c := range l.connected.snapshot() {
		c.Shutdown()
	}

	clientWg.Wait()
	l.Logger.Infof("websocket listener on %v exited", l.WebsocketAddress)
}
