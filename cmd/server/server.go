package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"sync"

	"gorm.io/gorm"

	"github.com/sablehq/sable/internal/console"
	"github.com/sablehq/sable/internal/core"
	"github.com/sablehq/sable/internal/core/data"
	"github.com/sablehq/sable/internal/game"
	"github.com/sablehq/sable/internal/presence"
	"github.com/sablehq/sable/internal/protocol"
	"github.com/sablehq/sable/internal/socket"
	"github.com/sablehq/sable/internal/tasks"
)

// activityStore adapts the data package to the connection loop's
// last-activity collaborator.
type activityStore struct {
	db *gorm.DB
}

func (s activityStore) RecordLastActivity(playerID string, timestampMillis int64) error {
	return data.UpdateLastActive(s.db, playerID, timestampMillis)
}

// run assembles the server components and blocks until ctx ends.
func run(ctx context.Context, cancel context.CancelFunc, config *core.Config) error {
	logger, err := core.NewLogger(config)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if config.Debugging.PprofEnabled {
		go func() {
			addr := fmt.Sprintf("localhost:%d", config.Debugging.PprofPort)
			logger.Infof("starting pprof server on %s", addr)
			logger.Warn(http.ListenAndServe(addr, nil))
		}()
	}

	db, err := data.Initialize(config)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := data.Shutdown(db); err != nil {
			logger.Warnf("error shutting down database: %v", err)
		}
	}()

	clock := core.SystemClock{}
	scheduler := tasks.NewScheduler(logger, clock)

	autosave, err := game.RegisterAutosave(scheduler)
	if err != nil {
		return fmt.Errorf("registering task categories: %w", err)
	}

	tracker := presence.NewTracker(config.GameServer.ContextRecordTTL)

	codecs := socket.NewCodecRegistry(logger)
	codecs.Register(protocol.FrameFormat())
	codecs.Register(protocol.JSONFormat())
	codecs.RegisterDefault(protocol.TextFormat())

	dispatcher := socket.NewDispatcher(logger)
	dispatcher.Register(&game.LoginHandler{
		Logger:    logger,
		DB:        db,
		Presence:  tracker,
		Scheduler: scheduler,
		Autosave:  autosave,
	})
	dispatcher.Register(game.PingHandler{})
	dispatcher.Register(game.FrameHandler{Logger: logger})
	dispatcher.RegisterDefault(game.DefaultHandler{Logger: logger})

	server := socket.NewServer(socket.ServerOpts{
		Logger:         logger,
		Codecs:         codecs,
		Dispatcher:     dispatcher,
		Tasks:          scheduler,
		Presence:       tracker,
		Activity:       activityStore{db: db},
		Clock:          clock,
		ReadBufferSize: config.GameServer.ReadBufferSize,
		FrameLogging:   config.Debugging.FrameLoggingEnabled,
	})

	listener := &socket.Listener{
		Address:          config.GameServerAddress(),
		Server:           server,
		Logger:           logger,
		WebsocketAddress: config.WebsocketAddress(),
		MaxConnections:   config.MaxConnections,
	}

	wg := &sync.WaitGroup{}
	if err := listener.Start(ctx, wg); err != nil {
		return fmt.Errorf("starting listener: %w", err)
	}

	admin := &console.Console{
		Logger:    logger,
		Scheduler: scheduler,
		Presence:  tracker,
		Listener:  listener,
		Shutdown:  cancel,
	}
	go admin.Run(ctx, os.Stdin, os.Stdout)

	<-ctx.Done()

	if stopped := scheduler.StopAll(); stopped > 0 {
		logger.Infof("stopped %d running task(s)", stopped)
	}

	wg.Wait()
	return nil
}
