package tasks

import (
	"context"
	"time"
)

// Reason classifies why a task's lifecycle ended abnormally.
type Reason int

const (
	// ReasonManual means the task was stopped through the scheduler's stop API.
	ReasonManual Reason = iota
	// ReasonTimeout means a repeating task exceeded its configured Timeout.
	ReasonTimeout
	// ReasonError covers an error or panic inside the task's own code as well
	// as any cancellation the scheduler did not initiate, such as the owning
	// connection's scope being torn down.
	ReasonError
)

func (r Reason) String() string {
	switch r {
	case ReasonManual:
		return "manual"
	case ReasonTimeout:
		return "timeout"
	case ReasonError:
		return "error"
	}
	return "unknown"
}

// Config fixes the schedule for one task instance. It is immutable once the
// task has been handed to the scheduler.
type Config struct {
	// StartDelay is how long to wait after OnStart before the first Execute.
	StartDelay time.Duration
	// RepeatInterval is the pause between iterations. Zero means the task
	// runs Execute exactly once.
	RepeatInterval time.Duration
	// MaxRepeats caps the number of iterations of a repeating task. Zero
	// means unlimited.
	MaxRepeats int
	// Timeout bounds the total running time of a repeating task. It is
	// cooperative: the scheduler only consults it at iteration boundaries,
	// so it cannot preempt a hung Execute. It is not applied to
	// non-repeating tasks.
	Timeout time.Duration
}

// Repeating reports whether the task iterates.
func (c Config) Repeating() bool { return c.RepeatInterval > 0 }

// Task is one schedulable unit of work. Execute is the only mandatory
// method; implementations opt into lifecycle notifications by additionally
// implementing any of the hook interfaces below.
//
// The hooks are a protocol between the scheduler and task implementations.
// Application code runs tasks only by submitting them to the scheduler and
// must never invoke the hooks directly.
type Task interface {
	// Config returns the schedule this task should run under.
	Config() Config
	// Execute performs one unit of work. ctx is a child of the owning
	// connection's scope; a returned error ends the task with ReasonError.
	Execute(ctx context.Context) error
}

// StartHook is called once, before the start delay elapses.
type StartHook interface {
	OnStart(ctx context.Context)
}

// IterationHooks bracket each Execute call of a repeating task.
type IterationHooks interface {
	OnIterationStart(ctx context.Context)
	OnIterationComplete(ctx context.Context)
}

// CompleteHook is called when the task finishes normally: after the single
// Execute of a non-repeating task, or once a repeating task reaches
// MaxRepeats.
type CompleteHook interface {
	OnTaskComplete(ctx context.Context)
}

// ForceCompleteHook is called when the task is stopped with the force
// complete flag. Tasks that do not implement it get the CompleteHook
// treatment instead, since forced completion is not an error.
type ForceCompleteHook interface {
	OnForceComplete(ctx context.Context)
}

// CancelHook is called when the task ends abnormally, with the Reason
// describing why.
type CancelHook interface {
	OnCancelled(ctx context.Context, reason Reason)
}
