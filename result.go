package taskgraph

import "sync"

type cellState int32

const (
	cellPending cellState = iota
	cellReady
	cellFailed
)

// Result is a single-assignment, multi-observer container for a task's
// outcome: pending, ready with a value, or failed with an error. Multiple
// goroutines may Await/Get the same Result concurrently; resolution may be
// published from any goroutine.
//
// A Result is the Go analogue of transwarp's std::promise/std::shared_future
// pair, built on a mutex-guarded condition variable instead — the same
// primitive gotaskflow reaches for in its own scheduling condvar.
type Result[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state cellState
	value T
	err   error
}

// newResult returns a fresh Pending cell.
func newResult[T any]() *Result[T] {
	r := &Result[T]{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// newReadyResult returns a cell already resolved to v, as for make_value_task.
func newReadyResult[T any](v T) *Result[T] {
	r := newResult[T]()
	r.state = cellReady
	r.value = v
	return r
}

// Await blocks the caller until the cell is no longer Pending.
func (r *Result[T]) Await() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.state == cellPending {
		r.cond.Wait()
	}
}

// Poll reports whether the cell has left the Pending state, without blocking.
func (r *Result[T]) Poll() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != cellPending
}

// Get returns the published value, or re-raises the published error. It
// raises Control if the cell is still Pending.
func (r *Result[T]) Get() (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case cellReady:
		return r.value, nil
	case cellFailed:
		var zero T
		return zero, r.err
	default:
		var zero T
		return zero, &Control{Msg: "Get called on a still-pending result"}
	}
}

// PublishValue resolves the cell to v, replacing any prior resolution, and
// wakes every waiter. The caller is responsible for raising the
// AfterFutureChanged event on the owning task.
func (r *Result[T]) PublishValue(v T) {
	r.mu.Lock()
	r.state = cellReady
	r.value = v
	r.err = nil
	r.mu.Unlock()
	r.cond.Broadcast()
}

// PublishException resolves the cell to a failure.
func (r *Result[T]) PublishException(err error) {
	r.mu.Lock()
	r.state = cellFailed
	r.err = err
	var zero T
	r.value = zero
	r.mu.Unlock()
	r.cond.Broadcast()
}

// Clear resets the cell to Pending.
func (r *Result[T]) Clear() {
	r.mu.Lock()
	r.state = cellPending
	r.err = nil
	var zero T
	r.value = zero
	r.mu.Unlock()
}

// hasResult reports whether the cell currently holds a value or an error.
func (r *Result[T]) hasResult() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != cellPending
}
