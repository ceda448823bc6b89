package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sablehq/sable/internal/core"
)

var (
	// ErrCategoryRegistered is returned when a category name is registered twice.
	ErrCategoryRegistered = errors.New("task category already registered")
	// ErrCategoryUnknown is returned by run/stop calls made through a handle
	// that was never registered with this scheduler. This is a configuration
	// error, not a runtime condition.
	ErrCategoryUnknown = errors.New("task category not registered")
	// ErrNoPlayer is returned when a task is run on a connection that has not
	// completed authentication.
	ErrNoPlayer = errors.New("connection has no player bound")
	// ErrTaskRunning is returned when a task with the same derived identifier
	// is already running.
	ErrTaskRunning = errors.New("task already running")
)

// Owner is the slice of a connected client the scheduler needs: the
// cancellable scope tasks run under and the player that owns them.
type Owner interface {
	Context() context.Context
	PlayerID() string
}

// Cancellation causes recorded on an instance before its context is
// cancelled, so the completion path can tell a stop apart from the owning
// scope going away.
const (
	causeNone int32 = iota
	causeManual
	causeForce
)

// Instance is the bookkeeping record for one currently-running task.
type Instance struct {
	ID       string
	Category string
	PlayerID string
	Config   Config

	cancel context.CancelFunc
	cause  atomic.Int32
	done   chan struct{}
}

// Done is closed once the task's execution unit has terminated and the
// instance has been removed from the running set.
func (i *Instance) Done() <-chan struct{} { return i.done }

// signalStop records the cancellation cause and cancels the execution unit.
// Only the first cause sticks.
func (i *Instance) signalStop(cause int32) {
	i.cause.CompareAndSwap(causeNone, cause)
	i.cancel()
}

// Scheduler runs tasks bound to client connections. Each running task is a
// child execution unit of its owner's scope, so a disconnect cancels every
// task the client owns with no extra bookkeeping.
type Scheduler struct {
	logger *zap.SugaredLogger
	clock  core.Clock

	mu         sync.RWMutex
	categories map[string]struct{}
	running    map[string]*Instance
}

func NewScheduler(logger *zap.SugaredLogger, clock core.Clock) *Scheduler {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Scheduler{
		logger:     logger,
		clock:      clock,
		categories: make(map[string]struct{}),
		running:    make(map[string]*Instance),
	}
}

// Category is a typed handle for one registered kind of background work. The
// stop-parameter type is fixed at registration, so a mismatched parameter
// value is impossible to construct rather than detected at runtime.
type Category[P any] struct {
	scheduler *Scheduler
	name      string
	deriveID  func(playerID string, params P) string
}

// Name returns the category name supplied at registration.
func (c *Category[P]) Name() string { return c.name }

// RegisterCategory declares a task category with the scheduler and returns
// the handle used for all subsequent run/stop calls for that category.
// deriveID must be deterministic: two concurrently running tasks of the same
// category may only derive the same identifier if they denote the same
// logical task, and stop calls target a task by recomputing its identifier.
func RegisterCategory[P any](s *Scheduler, name string, deriveID func(playerID string, params P) string) (*Category[P], error) {
	if deriveID == nil {
		return nil, fmt.Errorf("registering category %q: deriveID must not be nil", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[name]; exists {
		return nil, fmt.Errorf("registering category %q: %w", name, ErrCategoryRegistered)
	}
	s.categories[name] = struct{}{}

	return &Category[P]{scheduler: s, name: name, deriveID: deriveID}, nil
}

// Run starts task as an asynchronous execution unit bound to the owner's
// scope. params identify this task instance within its category; a later
// Stop with equal params targets the same instance.
func (c *Category[P]) Run(owner Owner, task Task, params P) (*Instance, error) {
	s, err := c.validate()
	if err != nil {
		return nil, err
	}

	playerID := owner.PlayerID()
	if playerID == "" {
		return nil, fmt.Errorf("running task %q: %w", c.name, ErrNoPlayer)
	}

	inst := &Instance{
		ID:       c.deriveID(playerID, params),
		Category: c.name,
		PlayerID: playerID,
		Config:   task.Config(),
		done:     make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(owner.Context())
	inst.cancel = cancel

	s.mu.Lock()
	if _, exists := s.running[inst.ID]; exists {
		s.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("running task %q (id %s): %w", c.name, inst.ID, ErrTaskRunning)
	}
	s.running[inst.ID] = inst
	s.mu.Unlock()

	s.logger.Debugf("starting task %s for player %s", inst.ID, playerID)
	go s.execute(ctx, inst, task)

	return inst, nil
}

// Stop cancels the running task identified by params. Stopping a task that
// already ended is not an error; it logs a warning and returns. When
// forceComplete is set the task is treated as if it had finished normally.
func (c *Category[P]) Stop(owner Owner, params P, forceComplete bool) error {
	s, err := c.validate()
	if err != nil {
		return err
	}

	playerID := owner.PlayerID()
	if playerID == "" {
		return fmt.Errorf("stopping task in category %q: %w", c.name, ErrNoPlayer)
	}

	id := c.deriveID(playerID, params)

	s.mu.RLock()
	inst, ok := s.running[id]
	s.mu.RUnlock()

	if !ok {
		s.logger.Warnf("no running task %s to stop for player %s", id, playerID)
		return nil
	}

	cause := causeManual
	if forceComplete {
		cause = causeForce
	}
	inst.signalStop(cause)
	return nil
}

// validate ensures the handle came from a live registration on this
// scheduler before any identifier is computed with it.
func (c *Category[P]) validate() (*Scheduler, error) {
	if c == nil || c.scheduler == nil {
		return nil, fmt.Errorf("task category handle was not obtained from RegisterCategory: %w", ErrCategoryUnknown)
	}

	c.scheduler.mu.RLock()
	_, registered := c.scheduler.categories[c.name]
	c.scheduler.mu.RUnlock()

	if !registered {
		return nil, fmt.Errorf("category %q: %w", c.name, ErrCategoryUnknown)
	}
	return c.scheduler, nil
}

// ListRunning returns the instances currently running for a player.
func (s *Scheduler) ListRunning(playerID string) []*Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var instances []*Instance
	for _, inst := range s.running {
		if inst.PlayerID == playerID {
			instances = append(instances, inst)
		}
	}
	return instances
}

// StopAllForPlayer cancels every task owned by a player and returns the
// number of tasks signalled. Used by connection cleanup on disconnect.
func (s *Scheduler) StopAllForPlayer(playerID string) int {
	stopped := 0
	for _, inst := range s.ListRunning(playerID) {
		inst.signalStop(causeManual)
		stopped++
	}
	return stopped
}

// StopAll cancels every running task. Used during server shutdown.
func (s *Scheduler) StopAll() int {
	s.mu.RLock()
	instances := make([]*Instance, 0, len(s.running))
	for _, inst := range s.running {
		instances = append(instances, inst)
	}
	s.mu.RUnlock()

	for _, inst := range instances {
		inst.signalStop(causeManual)
	}
	return len(instances)
}

// remove drops a terminated instance from the running set and releases
// anyone waiting on Done.
func (s *Scheduler) remove(inst *Instance) {
	s.mu.Lock()
	delete(s.running, inst.ID)
	s.mu.Unlock()
	close(inst.done)
}

// execute drives one task through its lifecycle. It owns the instance's
// entry in the running set: whatever path terminates the task, the instance
// is removed on the way out.
func (s *Scheduler) execute(ctx context.Context, inst *Instance, task Task) {
	defer s.remove(inst)

	// Hooks observing the task's end still run after the scope is cancelled,
	// so they get a context detached from the cancellation.
	hookCtx := context.WithoutCancel(ctx)
	cfg := inst.Config

	if h, ok := task.(StartHook); ok {
		h.OnStart(ctx)
	}

	if !s.sleep(ctx, cfg.StartDelay) {
		s.finishCancelled(hookCtx, inst, task)
		return
	}

	if !cfg.Repeating() {
		if err := s.runExecute(ctx, inst, task); err != nil {
			s.cancelWithReason(hookCtx, inst, task, ReasonError, err)
			return
		}
		s.complete(hookCtx, inst, task)
		return
	}

	loopStart := s.clock.Now()
	iterations := 0

	for {
		if ctx.Err() != nil {
			s.finishCancelled(hookCtx, inst, task)
			return
		}

		if cfg.Timeout > 0 && s.clock.Now().Sub(loopStart) > cfg.Timeout {
			s.cancelWithReason(hookCtx, inst, task, ReasonTimeout, nil)
			return
		}

		if h, ok := task.(IterationHooks); ok {
			h.OnIterationStart(ctx)
		}

		if err := s.runExecute(ctx, inst, task); err != nil {
			s.cancelWithReason(hookCtx, inst, task, ReasonError, err)
			return
		}

		if h, ok := task.(IterationHooks); ok {
			h.OnIterationComplete(ctx)
		}

		iterations++
		if cfg.MaxRepeats > 0 && iterations >= cfg.MaxRepeats {
			s.complete(hookCtx, inst, task)
			return
		}

		if !s.sleep(ctx, cfg.RepeatInterval) {
			s.finishCancelled(hookCtx, inst, task)
			return
		}
	}
}

// runExecute invokes the task's Execute, converting panics into errors so a
// misbehaving task cannot take sibling tasks or the connection loop with it.
func (s *Scheduler) runExecute(ctx context.Context, inst *Instance, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", inst.ID, r)
		}
	}()
	return task.Execute(ctx)
}

// complete runs the normal completion hook.
func (s *Scheduler) complete(hookCtx context.Context, inst *Instance, task Task) {
	s.logger.Debugf("task %s completed", inst.ID)
	if h, ok := task.(CompleteHook); ok {
		h.OnTaskComplete(hookCtx)
	}
}

// finishCancelled classifies a cancellation observed at a suspension point
// by the cause recorded on the instance. Force completion is routed to the
// completion path; a cancellation nobody signalled means the owning scope
// went away, which is reported as an error to the task.
func (s *Scheduler) finishCancelled(hookCtx context.Context, inst *Instance, task Task) {
	switch inst.cause.Load() {
	case causeForce:
		s.logger.Debugf("task %s force completed", inst.ID)
		if h, ok := task.(ForceCompleteHook); ok {
			h.OnForceComplete(hookCtx)
			return
		}
		s.complete(hookCtx, inst, task)
	case causeManual:
		s.cancelWithReason(hookCtx, inst, task, ReasonManual, nil)
	default:
		// Nobody signalled a stop: the owning scope itself was cancelled.
		s.cancelWithReason(hookCtx, inst, task, ReasonError, nil)
	}
}

func (s *Scheduler) cancelWithReason(hookCtx context.Context, inst *Instance, task Task, reason Reason, err error) {
	if err != nil {
		s.logger.Warnf("task %s cancelled (%s): %v", inst.ID, reason, err)
	} else {
		s.logger.Debugf("task %s cancelled (%s)", inst.ID, reason)
	}

	if h, ok := task.(CancelHook); ok {
		h.OnCancelled(hookCtx, reason)
	}
}

// sleep suspends for d or until the scope is cancelled, reporting whether
// the full duration elapsed.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
