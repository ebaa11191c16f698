package taskgraph

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Kind tags the seven ways a task may consume its parents' results. Fixed
// at construction. Grounded on transwarp.h's task_type enum.
type Kind int

const (
	KindRoot Kind = iota
	KindAccept
	KindAcceptAny
	KindConsume
	KindConsumeAny
	KindWait
	KindWaitAny
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindAccept:
		return "accept"
	case KindAcceptAny:
		return "accept_any"
	case KindConsume:
		return "consume"
	case KindConsumeAny:
		return "consume_any"
	case KindWait:
		return "wait"
	case KindWaitAny:
		return "wait_any"
	default:
		return "unknown_kind"
	}
}

// Edge is one parent-to-child link in a finalized graph.
type Edge struct {
	Parent Node
	Child  Node
}

// Node is the type-erased surface of a task: everything that doesn't
// require knowing the task's result type T. *Task[T] implements Node for
// every T, the Go analogue of transwarp::itask's public virtual methods.
type Node interface {
	ID() int
	Level() int
	Kind() Kind
	Name() string
	Repr() string
	Priority() int64
	CustomData() any
	Canceled() bool
	Executor() Executor
	Parents() []Node
	AvgIdleUS() int64
	AvgWaitUS() int64
	AvgRunUS() int64
	WasScheduled() bool
	IsReady() bool
	HasResult() bool
	Wait()

	Cancel(enabled bool)
	CancelAll(enabled bool)

	SetPriority(p int64) error
	SetPriorityAll(p int64) error
	ResetPriority() error
	ResetPriorityAll() error

	SetCustomData(d any) error
	SetCustomDataAll(d any) error
	RemoveCustomData() error
	RemoveCustomDataAll() error

	SetExecutor(e Executor) error
	SetExecutorAll(e Executor) error
	RemoveExecutor() error
	RemoveExecutorAll() error

	AddListener(l Listener) error
	AddListenerFor(event EventType, l Listener) error
	AddListenerAll(l Listener) error
	AddListenerAllFor(event EventType, l Listener) error
	RemoveListener(l Listener) error
	RemoveListenerFor(event EventType, l Listener) error
	RemoveListenerAll(l Listener) error
	RemoveListenerAllFor(event EventType, l Listener) error
	RemoveListeners() error
	RemoveListenersFor(event EventType) error
	RemoveListenersAll() error
	RemoveListenersAllFor(event EventType) error

	Reset() error
	ResetAll() error

	Schedule() error
	ScheduleWith(exec Executor) error
	ScheduleReset(exec Executor, reset bool) error
	ScheduleAll() error
	ScheduleAllWith(exec Executor) error
	ScheduleAllReset(exec Executor, resetAll bool) error

	Clone() (Node, error)

	Tasks() []Node
	Edges() []Edge
}

// engineNode is the subset of operations that only this package's own
// runners, finalizer, and clone engine may call — the analogue of the
// methods transwarp::itask restricts via friend declarations.
type engineNode interface {
	Node

	incrementChildCount()
	isVisited() bool
	markVisited()
	clearVisited()
	parentsRaw() []Node
	setID(id int)
	decrementRefcount()
	setAvgIdleUS(us int64)
	setAvgWaitUS(us int64)
	setAvgRunUS(us int64)
	resetResult()
	scheduleImpl(exec Executor, reset bool) error
	cloneImpl(cache map[Node]Node) Node
}

// Option configures a task at construction time.
type Option func(*base)

func WithName(name string) Option {
	return func(b *base) {
		b.name = name
		b.hasName = true
	}
}

func WithPriority(p int64) Option {
	return func(b *base) { b.priority = p }
}

func WithExecutor(e Executor) Option {
	return func(b *base) { b.executor = e }
}

func WithCustomData(d any) Option {
	return func(b *base) {
		b.customData = d
		b.hasCustomData = true
	}
}

// base holds the bookkeeping shared by every Task[T] regardless of its
// result type: identity, graph position, scheduling flags, listeners, and
// timing counters. It is embedded in Task[T] so nearly all of Node's
// surface is satisfied by promotion; only the handful of operations that
// need to know T are overridden on Task[T] itself.
//
// Grounded on gotaskflow's innerNode (node.go) for the field layout —
// name/successors/dependents/state/joinCounter/rw became name/parents/
// childCount/refcount/mu here — generalized from that fixed set of
// lifecycle states to transwarp.h::task_impl_base's broader surface
// (priority, custom_data, per-task executor, timing counters).
type base struct {
	mu sync.RWMutex

	id            int
	level         int
	kind          Kind
	name          string
	hasName       bool
	tag           string
	executor      Executor
	priority      int64
	customData    any
	hasCustomData bool

	childCount int
	visitedF   bool
	parents    []Node

	listeners *listenerBus

	canceled     atomic.Bool
	schedEnabled atomic.Bool
	running      atomic.Bool
	scheduled    atomic.Bool

	refcount atomic.Int64

	avgIdleUS atomic.Int64
	avgWaitUS atomic.Int64
	avgRunUS  atomic.Int64

	self Node

	cachedTasks   []Node
	cachedTasksOK bool

	waitFn      func()
	isReadyFn   func() bool
	hasResultFn func() bool
	resetCellFn func()
}

// newBase wires a fresh node's level and parent child-counts immediately,
// mirroring task_impl_base::init's eager call_with_each(parent_visitor{...})
// at construction time rather than during finalize.
func newBase(kind Kind, parents []Node, opts ...Option) *base {
	b := &base{
		kind:      kind,
		parents:   parents,
		listeners: newListenerBus(),
		tag:       "task-" + uuid.NewString(),
	}
	b.schedEnabled.Store(true)
	b.avgIdleUS.Store(-1)
	b.avgWaitUS.Store(-1)
	b.avgRunUS.Store(-1)
	for _, p := range parents {
		if b.level <= p.Level() {
			b.level = p.Level() + 1
		}
		p.(engineNode).incrementChildCount()
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *base) ID() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.id
}

func (b *base) Level() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.level
}

func (b *base) Kind() Kind { return b.kind }

func (b *base) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.name
}

// Tag returns a unique identifier assigned at construction time
// ("task-<uuid>"), independent of any caller-supplied Name. Unlike the
// sequential ID assigned by finalize(), Tag is stable across a task's
// lifetime from the moment it's built, which makes it useful for
// correlating log lines or pool clones before the graph has ever been
// scheduled.
func (b *base) Tag() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tag
}

func (b *base) Repr() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.hasName {
		return fmt.Sprintf("%s(%s) id=%d", b.name, b.kind, b.id)
	}
	return fmt.Sprintf("%s id=%d", b.kind, b.id)
}

func (b *base) Priority() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.priority
}

func (b *base) CustomData() any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.customData
}

func (b *base) Canceled() bool { return b.canceled.Load() }

func (b *base) Executor() Executor {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.executor
}

func (b *base) Parents() []Node {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Node, len(b.parents))
	copy(out, b.parents)
	return out
}

func (b *base) parentsRaw() []Node { return b.parents }

func (b *base) AvgIdleUS() int64 { return b.avgIdleUS.Load() }
func (b *base) AvgWaitUS() int64 { return b.avgWaitUS.Load() }
func (b *base) AvgRunUS() int64  { return b.avgRunUS.Load() }

func (b *base) setAvgIdleUS(us int64) { b.avgIdleUS.Store(us) }
func (b *base) setAvgWaitUS(us int64) { b.avgWaitUS.Store(us) }
func (b *base) setAvgRunUS(us int64)  { b.avgRunUS.Store(us) }

func (b *base) WasScheduled() bool { return b.scheduled.Load() }

func (b *base) IsReady() bool {
	if !b.scheduled.Load() {
		return false
	}
	return b.isReadyFn()
}

func (b *base) HasResult() bool {
	if !b.scheduled.Load() {
		return false
	}
	return b.hasResultFn()
}

func (b *base) Wait() { b.waitFn() }

func (b *base) ensureNotRunning() error {
	if b.running.Load() {
		return &Control{Msg: fmt.Sprintf("%s is running", b.Repr())}
	}
	return nil
}

func (b *base) incrementChildCount() {
	b.mu.Lock()
	b.childCount++
	b.mu.Unlock()
}

func (b *base) resetRefcount() {
	b.mu.RLock()
	n := b.childCount
	b.mu.RUnlock()
	b.refcount.Store(int64(n))
}

// decrementRefcount is called by every child once it has consumed this
// task's result; the last one to do so raises AfterSatisfied.
func (b *base) decrementRefcount() {
	if b.refcount.Add(-1) == 0 {
		b.listeners.raise(AfterSatisfied, b.self)
	}
}

func (b *base) isVisited() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.visitedF
}

func (b *base) markVisited() {
	b.mu.Lock()
	b.visitedF = true
	b.mu.Unlock()
}

func (b *base) clearVisited() {
	b.mu.Lock()
	b.visitedF = false
	b.mu.Unlock()
}

func (b *base) setID(id int) {
	b.mu.Lock()
	b.id = id
	b.mu.Unlock()
}

// visitDFS recurses into parents before visiting n itself, skipping
// already-visited nodes so a diamond-shaped graph is only counted once.
// Grounded on transwarp.h::task_impl_base::visit + detail::final_visitor.
func visitDFS(n Node, visitor func(Node)) {
	en := n.(engineNode)
	if en.isVisited() {
		return
	}
	for _, p := range en.parentsRaw() {
		visitDFS(p, visitor)
	}
	visitor(n)
	en.markVisited()
}

func unvisitDFS(n Node) {
	en := n.(engineNode)
	if !en.isVisited() {
		return
	}
	en.clearVisited()
	for _, p := range en.parentsRaw() {
		unvisitDFS(p)
	}
}

// finalize numbers and collects the subgraph reachable from b.self,
// caching the result. Idempotent: later calls reuse the cache.
func (b *base) finalize() {
	b.mu.RLock()
	ok := b.cachedTasksOK
	b.mu.RUnlock()
	if ok {
		return
	}

	var list []Node
	nextID := 0
	visitDFS(b.self, func(n Node) {
		n.(engineNode).setID(nextID)
		nextID++
		list = append(list, n)
	})
	unvisitDFS(b.self)

	sort.SliceStable(list, func(i, j int) bool {
		li, lj := list[i], list[j]
		if li.Level() != lj.Level() {
			return li.Level() < lj.Level()
		}
		return li.ID() < lj.ID()
	})

	b.mu.Lock()
	b.cachedTasks = list
	b.cachedTasksOK = true
	b.mu.Unlock()
}

func (b *base) Tasks() []Node {
	b.finalize()
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Node, len(b.cachedTasks))
	copy(out, b.cachedTasks)
	return out
}

func (b *base) Edges() []Edge {
	tasks := b.Tasks()
	var edges []Edge
	for _, t := range tasks {
		for _, p := range t.Parents() {
			edges = append(edges, Edge{Parent: p, Child: t})
		}
	}
	return edges
}

func (b *base) Cancel(enabled bool) { b.canceled.Store(enabled) }

func (b *base) CancelAll(enabled bool) {
	for _, t := range b.Tasks() {
		t.Cancel(enabled)
	}
}

func (b *base) SetPriority(p int64) error {
	if err := b.ensureNotRunning(); err != nil {
		return err
	}
	b.mu.Lock()
	b.priority = p
	b.mu.Unlock()
	return nil
}

func (b *base) SetPriorityAll(p int64) error {
	for _, t := range b.Tasks() {
		if err := t.SetPriority(p); err != nil {
			return err
		}
	}
	return nil
}

func (b *base) ResetPriority() error    { return b.SetPriority(0) }
func (b *base) ResetPriorityAll() error { return b.SetPriorityAll(0) }

func (b *base) SetCustomData(d any) error {
	if d == nil {
		return &InvalidParameter{Name: "custom data"}
	}
	if err := b.ensureNotRunning(); err != nil {
		return err
	}
	b.mu.Lock()
	b.customData = d
	b.hasCustomData = true
	b.mu.Unlock()
	b.listeners.raise(AfterCustomDataSet, b.self)
	return nil
}

func (b *base) SetCustomDataAll(d any) error {
	for _, t := range b.Tasks() {
		if err := t.SetCustomData(d); err != nil {
			return err
		}
	}
	return nil
}

func (b *base) RemoveCustomData() error {
	if err := b.ensureNotRunning(); err != nil {
		return err
	}
	b.mu.Lock()
	b.customData = nil
	b.hasCustomData = false
	b.mu.Unlock()
	b.listeners.raise(AfterCustomDataSet, b.self)
	return nil
}

func (b *base) RemoveCustomDataAll() error {
	for _, t := range b.Tasks() {
		if err := t.RemoveCustomData(); err != nil {
			return err
		}
	}
	return nil
}

func (b *base) SetExecutor(e Executor) error {
	if e == nil {
		return &InvalidParameter{Name: "executor"}
	}
	if err := b.ensureNotRunning(); err != nil {
		return err
	}
	b.mu.Lock()
	b.executor = e
	b.mu.Unlock()
	return nil
}

func (b *base) SetExecutorAll(e Executor) error {
	for _, t := range b.Tasks() {
		if err := t.SetExecutor(e); err != nil {
			return err
		}
	}
	return nil
}

func (b *base) RemoveExecutor() error {
	if err := b.ensureNotRunning(); err != nil {
		return err
	}
	b.mu.Lock()
	b.executor = nil
	b.mu.Unlock()
	return nil
}

func (b *base) RemoveExecutorAll() error {
	for _, t := range b.Tasks() {
		if err := t.RemoveExecutor(); err != nil {
			return err
		}
	}
	return nil
}

func checkListener(l Listener) error {
	if l == nil {
		return &InvalidParameter{Name: "listener"}
	}
	return nil
}

func (b *base) AddListener(l Listener) error {
	if err := checkListener(l); err != nil {
		return err
	}
	if err := b.ensureNotRunning(); err != nil {
		return err
	}
	b.listeners.addAll(l)
	return nil
}

func (b *base) AddListenerFor(event EventType, l Listener) error {
	if err := checkListener(l); err != nil {
		return err
	}
	if err := b.ensureNotRunning(); err != nil {
		return err
	}
	b.listeners.add(event, l)
	return nil
}

func (b *base) AddListenerAll(l Listener) error {
	for _, t := range b.Tasks() {
		if err := t.AddListener(l); err != nil {
			return err
		}
	}
	return nil
}

func (b *base) AddListenerAllFor(event EventType, l Listener) error {
	for _, t := range b.Tasks() {
		if err := t.AddListenerFor(event, l); err != nil {
			return err
		}
	}
	return nil
}

func (b *base) RemoveListener(l Listener) error {
	if err := b.ensureNotRunning(); err != nil {
		return err
	}
	b.listeners.removeAll(l)
	return nil
}

func (b *base) RemoveListenerFor(event EventType, l Listener) error {
	if err := b.ensureNotRunning(); err != nil {
		return err
	}
	b.listeners.remove(event, l)
	return nil
}

func (b *base) RemoveListenerAll(l Listener) error {
	for _, t := range b.Tasks() {
		if err := t.RemoveListener(l); err != nil {
			return err
		}
	}
	return nil
}

func (b *base) RemoveListenerAllFor(event EventType, l Listener) error {
	for _, t := range b.Tasks() {
		if err := t.RemoveListenerFor(event, l); err != nil {
			return err
		}
	}
	return nil
}

func (b *base) RemoveListeners() error {
	if err := b.ensureNotRunning(); err != nil {
		return err
	}
	b.listeners.clear()
	return nil
}

func (b *base) RemoveListenersFor(event EventType) error {
	if err := b.ensureNotRunning(); err != nil {
		return err
	}
	b.listeners.clearEvent(event)
	return nil
}

func (b *base) RemoveListenersAll() error {
	for _, t := range b.Tasks() {
		if err := t.RemoveListeners(); err != nil {
			return err
		}
	}
	return nil
}

func (b *base) RemoveListenersAllFor(event EventType) error {
	for _, t := range b.Tasks() {
		if err := t.RemoveListenersFor(event); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the result cell, re-enables scheduling, and resets
// refcount to child_count. Grounded on task_impl_base::reset.
func (b *base) Reset() error {
	if err := b.ensureNotRunning(); err != nil {
		return err
	}
	b.canceled.Store(false)
	b.schedEnabled.Store(true)
	b.scheduled.Store(false)
	b.resetRefcount()
	b.resetCellFn()
	b.listeners.raise(AfterFutureChanged, b.self)
	return nil
}

func (b *base) ResetAll() error {
	for _, t := range b.Tasks() {
		if err := t.Reset(); err != nil {
			return err
		}
	}
	return nil
}

func (b *base) Schedule() error                  { return b.ScheduleReset(nil, true) }
func (b *base) ScheduleWith(exec Executor) error { return b.ScheduleReset(exec, true) }

func (b *base) ScheduleReset(exec Executor, reset bool) error {
	en := b.self.(engineNode)
	return en.scheduleImpl(exec, reset)
}

func (b *base) ScheduleAll() error                  { return b.ScheduleAllReset(nil, true) }
func (b *base) ScheduleAllWith(exec Executor) error { return b.ScheduleAllReset(exec, true) }

func (b *base) ScheduleAllReset(exec Executor, resetAll bool) error {
	for _, t := range b.Tasks() {
		if err := t.ScheduleReset(exec, resetAll); err != nil {
			return err
		}
	}
	return nil
}

// Clone performs a structural clone of the subgraph rooted at this task,
// preserving shared-parent topology via an identity map. Rejected while a
// run is in flight, since there is no well-defined value to copy out of an
// in-flight future.
func (b *base) Clone() (Node, error) {
	if b.running.Load() {
		return nil, &Control{Msg: fmt.Sprintf("clone() called while %s is running", b.Repr())}
	}
	cache := make(map[Node]Node)
	return b.self.(engineNode).cloneImpl(cache), nil
}
