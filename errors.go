package taskgraph

import (
	"fmt"

	"github.com/pkg/errors"
)

// Canceled is produced when a task is canceled before or around invocation,
// either cooperatively (the functor called CancelPoint), by an …Any runner
// canceling its losers, or by an explicit Cancel/CancelAll.
type Canceled struct {
	Task string
}

func (e *Canceled) Error() string {
	return fmt.Sprintf("task canceled: %s", e.Task)
}

// CancelPoint is the cooperative half of cancellation: a functor that holds
// a handle to its own task (see RootSelf) can call this periodically during
// a long-running computation. It returns a *Canceled error as soon as n's
// cancel flag is set, which the functor should propagate immediately rather
// than continue working. Grounded on transwarp.h's functor base class,
// whose transwarp_cancel_point() throws task_canceled under the same
// condition; here the check returns an error instead of unwinding the stack.
func CancelPoint(n Node) error {
	if n.Canceled() {
		return &Canceled{Task: n.Repr()}
	}
	return nil
}

// Destroyed signals that the task object backing a runner was no longer
// alive when the runner resolved its weak handle to it. This is a safety
// net for clone()/pool scenarios and is not expected in normal use.
type Destroyed struct {
	Task string
}

func (e *Destroyed) Error() string {
	return fmt.Sprintf("task destroyed before runner resolved it: %s", e.Task)
}

// InvalidParameter is raised synchronously from a builder/mutator call
// when an argument violates the engine's contract (nil executor, zero
// threads, empty parent vector, bad pool bounds, ...).
type InvalidParameter struct {
	Name string
}

func (e *InvalidParameter) Error() string {
	return fmt.Sprintf("invalid parameter: %s", e.Name)
}

// Control signals a misuse of the engine's API: calling Get on a task that
// was never scheduled, or mutating task state while it is running. Wait and
// IsReady do not report it: before scheduling, IsReady returns false and
// Wait blocks until the task's cell resolves.
type Control struct {
	Msg string
}

func (e *Control) Error() string {
	return fmt.Sprintf("control error: %s", e.Msg)
}

// IsCanceled reports whether err is or wraps a Canceled error.
func IsCanceled(err error) bool {
	var c *Canceled
	return errors.As(err, &c)
}

// IsDestroyed reports whether err is or wraps a Destroyed error.
func IsDestroyed(err error) bool {
	var d *Destroyed
	return errors.As(err, &d)
}

// IsInvalidParameter reports whether err is or wraps an InvalidParameter error.
func IsInvalidParameter(err error) bool {
	var p *InvalidParameter
	return errors.As(err, &p)
}

// IsControl reports whether err is or wraps a Control error.
func IsControl(err error) bool {
	var c *Control
	return errors.As(err, &c)
}

func wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}
