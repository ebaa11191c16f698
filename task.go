package taskgraph

import "fmt"

// Unit models transwarp's `void` result: a task with no meaningful value,
// used by Root/Wait-kind functors that run purely for effect.
type Unit struct{}

// Task is a single node in the graph, producing a result of type T. It
// embeds *base, which supplies nearly all of Node's surface; Task[T] adds
// only the handful of operations that need to know T.
type Task[T any] struct {
	*base
	cell *Result[T]

	sync func()          // kind-specific parent synchronization (blocking)
	call func() (T, error) // kind-specific parent consumption + functor call
	rebuild func(newParents []Node) *Task[T]
}

func attachCell[T any](t *Task[T]) {
	t.waitFn = func() { t.cell.Await() }
	t.isReadyFn = func() bool { return t.cell.Poll() }
	t.hasResultFn = func() bool { return t.cell.hasResult() }
	t.resetCellFn = func() { t.cell.Clear() }
}

// Get returns the published value, re-raising a published error, or
// Control if the task was never scheduled (mirrors ensure_task_was_scheduled
// guarding get()/future()/wait()/is_ready() in the source).
func (t *Task[T]) Get() (T, error) {
	if !t.scheduled.Load() {
		var zero T
		return zero, &Control{Msg: fmt.Sprintf("get() called before %s was ever scheduled", t.Repr())}
	}
	return t.cell.Get()
}

// SetValue terminally resolves the task to v, disabling further scheduling
// until Reset. Grounded on task_impl_base::set_value.
func (t *Task[T]) SetValue(v T) error {
	if err := t.ensureNotRunning(); err != nil {
		return err
	}
	t.cell.PublishValue(v)
	t.scheduled.Store(true)
	t.schedEnabled.Store(false)
	t.listeners.raise(AfterFutureChanged, t.self)
	return nil
}

// SetException terminally resolves the task to an error.
func (t *Task[T]) SetException(cause error) error {
	if cause == nil {
		return &InvalidParameter{Name: "exception"}
	}
	if err := t.ensureNotRunning(); err != nil {
		return err
	}
	t.cell.PublishException(cause)
	t.scheduled.Store(true)
	t.schedEnabled.Store(false)
	t.listeners.raise(AfterFutureChanged, t.self)
	return nil
}

// scheduleImpl is the per-task schedule algorithm, identical across every
// kind; only t.sync/t.call vary. Grounded on task_impl_base::schedule_impl.
func (t *Task[T]) scheduleImpl(exec Executor, reset bool) error {
	if err := t.ensureNotRunning(); err != nil {
		return err
	}
	if !t.schedEnabled.Load() {
		return nil
	}
	if t.cell.Poll() && !reset {
		return nil
	}
	if reset {
		t.canceled.Store(false)
		t.resetRefcount()
	}

	t.running.Store(true)
	t.listeners.raise(BeforeScheduled, t.self)
	t.cell.Clear()
	t.scheduled.Store(true)
	t.listeners.raise(AfterFutureChanged, t.self)

	run := func() {
		defer t.running.Store(false)
		t.runOnce()
	}

	chosen := t.Executor()
	if chosen == nil {
		chosen = exec
	}
	if chosen != nil {
		chosen.Execute(run, t.self)
	} else {
		run()
	}
	return nil
}

// runOnce is the composition runner body shared by every kind: BeforeStarted,
// parent sync, BeforeInvoked, invoke-or-cancel, publish, refcount decrement,
// AfterFinished.
func (t *Task[T]) runOnce() {
	t.listeners.raise(BeforeStarted, t.self)
	t.sync()
	t.listeners.raise(BeforeInvoked, t.self)

	var val T
	var err error
	if t.canceled.Load() {
		err = &Canceled{Task: t.Repr()}
		t.listeners.raise(AfterCanceled, t.self)
	} else {
		val, err = t.call()
	}

	if err != nil {
		t.cell.PublishException(err)
	} else {
		t.cell.PublishValue(val)
	}
	t.listeners.raise(AfterFutureChanged, t.self)

	for _, p := range t.parents {
		p.(engineNode).decrementRefcount()
	}

	t.listeners.raise(AfterFinished, t.self)
}

// resetResult clears the cell without a full Reset — used by Releaser on
// AfterSatisfied. A subsequent Get() raises Control until re-scheduled.
func (t *Task[T]) resetResult() {
	t.cell.Clear()
	t.scheduled.Store(false)
	t.listeners.raise(AfterFutureChanged, t.self)
}

// cloneImpl builds a structural copy of this task, recursing into parents
// first so a shared parent yields exactly one clone (memoized by cache).
// Grounded on transwarp.h::clone_task.
func (t *Task[T]) cloneImpl(cache map[Node]Node) Node {
	if existing, ok := cache[Node(t)]; ok {
		return existing
	}
	clonedParents := make([]Node, len(t.parents))
	for i, p := range t.parents {
		clonedParents[i] = p.(engineNode).cloneImpl(cache)
	}

	nt := t.rebuild(clonedParents)
	cache[Node(t)] = Node(nt)

	t.mu.RLock()
	nt.mu.Lock()
	nt.name, nt.hasName = t.name, t.hasName
	nt.priority = t.priority
	nt.customData, nt.hasCustomData = t.customData, t.hasCustomData
	nt.executor = t.executor
	nt.id = t.id
	nt.level = t.level
	nt.childCount = t.childCount
	nt.listeners = t.listeners.clone()
	nt.mu.Unlock()
	t.mu.RUnlock()

	nt.schedEnabled.Store(t.schedEnabled.Load())
	nt.canceled.Store(t.canceled.Load())
	nt.refcount.Store(t.refcount.Load())
	nt.avgIdleUS.Store(t.avgIdleUS.Load())
	nt.avgWaitUS.Store(t.avgWaitUS.Load())
	nt.avgRunUS.Store(t.avgRunUS.Load())

	if v, err := t.cell.Get(); err == nil {
		nt.cell.PublishValue(v)
		nt.scheduled.Store(true)
	} else if t.scheduled.Load() && t.cell.Poll() {
		nt.cell.PublishException(err)
		nt.scheduled.Store(true)
	}

	return Node(nt)
}

// Clone returns a typed structural copy of t's subgraph.
func Clone[T any](t *Task[T]) (*Task[T], error) {
	n, err := t.base.Clone()
	if err != nil {
		return nil, err
	}
	return n.(*Task[T]), nil
}

// waitAny blocks until one of parents resolves and returns its index,
// then cancels every other parent — an event-driven replacement for
// transwarp.h's 1us wait-any poll loop.
//
// done is buffered to len(parents) so a losing goroutine never blocks on
// the send once winner is picked. That still leaves one goroutine parked
// in p.Wait() per loser until p itself resolves; Cancel(true) only sets
// p's flag; it does not interrupt a p.Wait() already in flight. A loser
// whose own functor never reaches a scheduling boundary or a CancelPoint
// check (i.e. truly hangs) leaves its waiter goroutine parked for as long
// as it hangs — this is the same hanging-parent case the flag-based
// cancellation model accepts elsewhere: the flag only takes effect the
// next time the loser's run checks it.
func waitAny(parents []Node) int {
	done := make(chan int, len(parents))
	for i, p := range parents {
		i, p := i, p
		go func() {
			p.Wait()
			done <- i
		}()
	}
	winner := <-done
	for i, p := range parents {
		if i != winner {
			p.Cancel(true)
		}
	}
	return winner
}

func newTask[T any](kind Kind, parents []Node, opts []Option) *Task[T] {
	t := &Task[T]{base: newBase(kind, parents, opts...), cell: newResult[T]()}
	t.self = t
	attachCell(t)
	return t
}

// Root builds a parentless task; fn takes no input.
func Root[T any](fn func() (T, error), opts ...Option) *Task[T] {
	t := newTask[T](KindRoot, nil, opts)
	t.sync = func() {}
	t.call = fn
	t.rebuild = func(_ []Node) *Task[T] { return Root(fn) }
	return t
}

// RootSelf builds a parentless task whose functor receives a handle to its
// own task, so it can call CancelPoint periodically and honor cancellation
// while it runs rather than only at the BeforeInvoked check. Grounded on
// transwarp.h's functor base class, which gives a subclassed functor access
// to transwarp_task() for the same purpose.
func RootSelf[T any](fn func(*Task[T]) (T, error), opts ...Option) *Task[T] {
	t := newTask[T](KindRoot, nil, opts)
	t.sync = func() {}
	t.call = func() (T, error) { return fn(t) }
	t.rebuild = func(_ []Node) *Task[T] { return RootSelf(fn) }
	return t
}

// ValueTask returns a Root-kind task already resolved to v.
func ValueTask[T any](v T, opts ...Option) *Task[T] {
	t := &Task[T]{base: newBase(KindRoot, nil, opts...), cell: newReadyResult[T](v)}
	t.self = t
	attachCell(t)
	t.scheduled.Store(true)
	t.sync = func() {}
	t.call = func() (T, error) { return v, nil }
	t.rebuild = func(_ []Node) *Task[T] { return ValueTask(v) }
	return t
}

// Accept1 builds a task whose functor receives the parent's raw handle,
// so it may inspect the parent's error directly.
func Accept1[P, T any](fn func(*Task[P]) (T, error), p1 *Task[P], opts ...Option) *Task[T] {
	t := newTask[T](KindAccept, []Node{p1}, opts)
	t.sync = func() { p1.Wait() }
	t.call = func() (T, error) { return fn(p1) }
	t.rebuild = func(newParents []Node) *Task[T] {
		return Accept1(fn, newParents[0].(*Task[P]))
	}
	return t
}

func Accept2[P1, P2, T any](fn func(*Task[P1], *Task[P2]) (T, error), p1 *Task[P1], p2 *Task[P2], opts ...Option) *Task[T] {
	t := newTask[T](KindAccept, []Node{p1, p2}, opts)
	t.sync = func() { p1.Wait(); p2.Wait() }
	t.call = func() (T, error) { return fn(p1, p2) }
	t.rebuild = func(newParents []Node) *Task[T] {
		return Accept2(fn, newParents[0].(*Task[P1]), newParents[1].(*Task[P2]))
	}
	return t
}

func Accept3[P1, P2, P3, T any](fn func(*Task[P1], *Task[P2], *Task[P3]) (T, error), p1 *Task[P1], p2 *Task[P2], p3 *Task[P3], opts ...Option) *Task[T] {
	t := newTask[T](KindAccept, []Node{p1, p2, p3}, opts)
	t.sync = func() { p1.Wait(); p2.Wait(); p3.Wait() }
	t.call = func() (T, error) { return fn(p1, p2, p3) }
	t.rebuild = func(newParents []Node) *Task[T] {
		return Accept3(fn, newParents[0].(*Task[P1]), newParents[1].(*Task[P2]), newParents[2].(*Task[P3]))
	}
	return t
}

func Accept4[P1, P2, P3, P4, T any](fn func(*Task[P1], *Task[P2], *Task[P3], *Task[P4]) (T, error), p1 *Task[P1], p2 *Task[P2], p3 *Task[P3], p4 *Task[P4], opts ...Option) *Task[T] {
	t := newTask[T](KindAccept, []Node{p1, p2, p3, p4}, opts)
	t.sync = func() { p1.Wait(); p2.Wait(); p3.Wait(); p4.Wait() }
	t.call = func() (T, error) { return fn(p1, p2, p3, p4) }
	t.rebuild = func(newParents []Node) *Task[T] {
		return Accept4(fn, newParents[0].(*Task[P1]), newParents[1].(*Task[P2]), newParents[2].(*Task[P3]), newParents[3].(*Task[P4]))
	}
	return t
}

// AcceptAny requires homogeneous parents (Go generics can't express the
// source's heterogeneous parent tuple for an any-variant) — see DESIGN.md.
func AcceptAny[P, T any](fn func(*Task[P]) (T, error), parents []*Task[P], opts ...Option) *Task[T] {
	nodes := make([]Node, len(parents))
	for i, p := range parents {
		nodes[i] = p
	}
	t := newTask[T](KindAcceptAny, nodes, opts)
	var winner int
	t.sync = func() { winner = waitAny(nodes) }
	t.call = func() (T, error) { return fn(parents[winner]) }
	t.rebuild = func(newParents []Node) *Task[T] {
		np := make([]*Task[P], len(newParents))
		for i, n := range newParents {
			np[i] = n.(*Task[P])
		}
		return AcceptAny(fn, np)
	}
	return t
}

func consumeCall[P, T any](fn func(P) (T, error), p *Task[P]) (T, error) {
	v, err := p.Get()
	if err != nil {
		var zero T
		return zero, err
	}
	return fn(v)
}

// Consume1 builds a task whose functor receives resolved parent values;
// a parent exception propagates.
func Consume1[P, T any](fn func(P) (T, error), p1 *Task[P], opts ...Option) *Task[T] {
	t := newTask[T](KindConsume, []Node{p1}, opts)
	t.sync = func() { p1.Wait() }
	t.call = func() (T, error) { return consumeCall(fn, p1) }
	t.rebuild = func(newParents []Node) *Task[T] {
		return Consume1(fn, newParents[0].(*Task[P]))
	}
	return t
}

func Consume2[P1, P2, T any](fn func(P1, P2) (T, error), p1 *Task[P1], p2 *Task[P2], opts ...Option) *Task[T] {
	t := newTask[T](KindConsume, []Node{p1, p2}, opts)
	t.sync = func() { p1.Wait(); p2.Wait() }
	t.call = func() (T, error) {
		var zero T
		v1, err := p1.Get()
		if err != nil {
			return zero, err
		}
		v2, err := p2.Get()
		if err != nil {
			return zero, err
		}
		return fn(v1, v2)
	}
	t.rebuild = func(newParents []Node) *Task[T] {
		return Consume2(fn, newParents[0].(*Task[P1]), newParents[1].(*Task[P2]))
	}
	return t
}

func Consume3[P1, P2, P3, T any](fn func(P1, P2, P3) (T, error), p1 *Task[P1], p2 *Task[P2], p3 *Task[P3], opts ...Option) *Task[T] {
	t := newTask[T](KindConsume, []Node{p1, p2, p3}, opts)
	t.sync = func() { p1.Wait(); p2.Wait(); p3.Wait() }
	t.call = func() (T, error) {
		var zero T
		v1, err := p1.Get()
		if err != nil {
			return zero, err
		}
		v2, err := p2.Get()
		if err != nil {
			return zero, err
		}
		v3, err := p3.Get()
		if err != nil {
			return zero, err
		}
		return fn(v1, v2, v3)
	}
	t.rebuild = func(newParents []Node) *Task[T] {
		return Consume3(fn, newParents[0].(*Task[P1]), newParents[1].(*Task[P2]), newParents[2].(*Task[P3]))
	}
	return t
}

func Consume4[P1, P2, P3, P4, T any](fn func(P1, P2, P3, P4) (T, error), p1 *Task[P1], p2 *Task[P2], p3 *Task[P3], p4 *Task[P4], opts ...Option) *Task[T] {
	t := newTask[T](KindConsume, []Node{p1, p2, p3, p4}, opts)
	t.sync = func() { p1.Wait(); p2.Wait(); p3.Wait(); p4.Wait() }
	t.call = func() (T, error) {
		var zero T
		v1, err := p1.Get()
		if err != nil {
			return zero, err
		}
		v2, err := p2.Get()
		if err != nil {
			return zero, err
		}
		v3, err := p3.Get()
		if err != nil {
			return zero, err
		}
		v4, err := p4.Get()
		if err != nil {
			return zero, err
		}
		return fn(v1, v2, v3, v4)
	}
	t.rebuild = func(newParents []Node) *Task[T] {
		return Consume4(fn, newParents[0].(*Task[P1]), newParents[1].(*Task[P2]), newParents[2].(*Task[P3]), newParents[3].(*Task[P4]))
	}
	return t
}

// ConsumeAny requires homogeneous parents; see AcceptAny.
func ConsumeAny[P, T any](fn func(P) (T, error), parents []*Task[P], opts ...Option) *Task[T] {
	nodes := make([]Node, len(parents))
	for i, p := range parents {
		nodes[i] = p
	}
	t := newTask[T](KindConsumeAny, nodes, opts)
	var winner int
	t.sync = func() { winner = waitAny(nodes) }
	t.call = func() (T, error) { return consumeCall(fn, parents[winner]) }
	t.rebuild = func(newParents []Node) *Task[T] {
		np := make([]*Task[P], len(newParents))
		for i, n := range newParents {
			np[i] = n.(*Task[P])
		}
		return ConsumeAny(fn, np)
	}
	return t
}

// ConsumeVector builds a dynamic-arity Consume task over a homogeneous
// parent slice; parents must not be empty.
func ConsumeVector[P, T any](fn func([]P) (T, error), parents []*Task[P], opts ...Option) (*Task[T], error) {
	if len(parents) == 0 {
		return nil, &InvalidParameter{Name: "parents"}
	}
	nodes := make([]Node, len(parents))
	for i, p := range parents {
		nodes[i] = p
	}
	t := newTask[T](KindConsume, nodes, opts)
	t.sync = func() {
		for _, p := range parents {
			p.Wait()
		}
	}
	t.call = func() (T, error) {
		var zero T
		vals := make([]P, len(parents))
		for i, p := range parents {
			v, err := p.Get()
			if err != nil {
				return zero, err
			}
			vals[i] = v
		}
		return fn(vals)
	}
	t.rebuild = func(newParents []Node) *Task[T] {
		np := make([]*Task[P], len(newParents))
		for i, n := range newParents {
			np[i] = n.(*Task[P])
		}
		nt, _ := ConsumeVector(fn, np)
		return nt
	}
	return t, nil
}

// Wait1 builds a task that runs only after its parent resolves, taking no
// input; the parent's exception still propagates.
func Wait1[P, T any](fn func() (T, error), p1 *Task[P], opts ...Option) *Task[T] {
	t := newTask[T](KindWait, []Node{p1}, opts)
	t.sync = func() { p1.Wait() }
	t.call = func() (T, error) {
		var zero T
		if _, err := p1.Get(); err != nil {
			return zero, err
		}
		return fn()
	}
	t.rebuild = func(newParents []Node) *Task[T] {
		return Wait1[P](fn, newParents[0].(*Task[P]))
	}
	return t
}

func Wait2[P1, P2, T any](fn func() (T, error), p1 *Task[P1], p2 *Task[P2], opts ...Option) *Task[T] {
	t := newTask[T](KindWait, []Node{p1, p2}, opts)
	t.sync = func() { p1.Wait(); p2.Wait() }
	t.call = func() (T, error) {
		var zero T
		if _, err := p1.Get(); err != nil {
			return zero, err
		}
		if _, err := p2.Get(); err != nil {
			return zero, err
		}
		return fn()
	}
	t.rebuild = func(newParents []Node) *Task[T] {
		return Wait2[P1, P2](fn, newParents[0].(*Task[P1]), newParents[1].(*Task[P2]))
	}
	return t
}

func Wait3[P1, P2, P3, T any](fn func() (T, error), p1 *Task[P1], p2 *Task[P2], p3 *Task[P3], opts ...Option) *Task[T] {
	t := newTask[T](KindWait, []Node{p1, p2, p3}, opts)
	t.sync = func() { p1.Wait(); p2.Wait(); p3.Wait() }
	t.call = func() (T, error) {
		var zero T
		if _, err := p1.Get(); err != nil {
			return zero, err
		}
		if _, err := p2.Get(); err != nil {
			return zero, err
		}
		if _, err := p3.Get(); err != nil {
			return zero, err
		}
		return fn()
	}
	t.rebuild = func(newParents []Node) *Task[T] {
		return Wait3[P1, P2, P3](fn, newParents[0].(*Task[P1]), newParents[1].(*Task[P2]), newParents[2].(*Task[P3]))
	}
	return t
}

func Wait4[P1, P2, P3, P4, T any](fn func() (T, error), p1 *Task[P1], p2 *Task[P2], p3 *Task[P3], p4 *Task[P4], opts ...Option) *Task[T] {
	t := newTask[T](KindWait, []Node{p1, p2, p3, p4}, opts)
	t.sync = func() { p1.Wait(); p2.Wait(); p3.Wait(); p4.Wait() }
	t.call = func() (T, error) {
		var zero T
		if _, err := p1.Get(); err != nil {
			return zero, err
		}
		if _, err := p2.Get(); err != nil {
			return zero, err
		}
		if _, err := p3.Get(); err != nil {
			return zero, err
		}
		if _, err := p4.Get(); err != nil {
			return zero, err
		}
		return fn()
	}
	t.rebuild = func(newParents []Node) *Task[T] {
		return Wait4[P1, P2, P3, P4](fn, newParents[0].(*Task[P1]), newParents[1].(*Task[P2]), newParents[2].(*Task[P3]), newParents[3].(*Task[P4]))
	}
	return t
}

// WaitAny requires homogeneous parents; see AcceptAny.
func WaitAny[P, T any](fn func() (T, error), parents []*Task[P], opts ...Option) *Task[T] {
	nodes := make([]Node, len(parents))
	for i, p := range parents {
		nodes[i] = p
	}
	t := newTask[T](KindWaitAny, nodes, opts)
	var winner int
	t.sync = func() { winner = waitAny(nodes) }
	t.call = func() (T, error) {
		var zero T
		if _, err := parents[winner].Get(); err != nil {
			return zero, err
		}
		return fn()
	}
	t.rebuild = func(newParents []Node) *Task[T] {
		np := make([]*Task[P], len(newParents))
		for i, n := range newParents {
			np[i] = n.(*Task[P])
		}
		return WaitAny[P](fn, np)
	}
	return t
}

// WaitVector builds a dynamic-arity Wait task over a homogeneous parent
// slice; parents must not be empty.
func WaitVector[P, T any](fn func() (T, error), parents []*Task[P], opts ...Option) (*Task[T], error) {
	if len(parents) == 0 {
		return nil, &InvalidParameter{Name: "parents"}
	}
	nodes := make([]Node, len(parents))
	for i, p := range parents {
		nodes[i] = p
	}
	t := newTask[T](KindWait, nodes, opts)
	t.sync = func() {
		for _, p := range parents {
			p.Wait()
		}
	}
	t.call = func() (T, error) {
		var zero T
		for _, p := range parents {
			if _, err := p.Get(); err != nil {
				return zero, err
			}
		}
		return fn()
	}
	t.rebuild = func(newParents []Node) *Task[T] {
		np := make([]*Task[P], len(newParents))
		for i, n := range newParents {
			np[i] = n.(*Task[P])
		}
		nt, _ := WaitVector(fn, np)
		return nt
	}
	return t, nil
}

// ThenConsume returns a fresh child of parent that consumes its resolved
// value — the package-level "then" since Go methods can't introduce new
// type parameters.
func ThenConsume[P, T any](parent *Task[P], fn func(P) (T, error), opts ...Option) *Task[T] {
	return Consume1(fn, parent, opts...)
}

func ThenAccept[P, T any](parent *Task[P], fn func(*Task[P]) (T, error), opts ...Option) *Task[T] {
	return Accept1(fn, parent, opts...)
}

func ThenWait[P, T any](parent *Task[P], fn func() (T, error), opts ...Option) *Task[T] {
	return Wait1(fn, parent, opts...)
}
