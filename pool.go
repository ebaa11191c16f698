package taskgraph

import (
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// spinlock is a tight test-and-set lock for the pool's finished ring, which
// is only ever held for the duration of a slice push/pop.
//
// Grounded verbatim on transwarp.h::detail::spinlock (lines 1881-1894).
type spinlock struct {
	locked atomic.Bool
}

func (s *spinlock) Lock() {
	for !s.locked.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (s *spinlock) Unlock() {
	s.locked.Store(false)
}

// circularBuffer is a fixed-capacity FIFO: once full, the oldest entry is
// dropped to make room for the newest. The pool uses it only as a
// notification channel (which busy tasks just finished) and sizes it to its
// maximum, one slot per clone it can hold. A dropped entry is not recovered:
// its clone stays in busy until it finishes again.
//
// Grounded verbatim on transwarp.h::detail::circular_buffer (lines 1776-1875).
type circularBuffer[T any] struct {
	data  []T
	front int
	end   int
	size  int
}

func newCircularBuffer[T any](capacity int) *circularBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &circularBuffer[T]{data: make([]T, capacity)}
}

func (c *circularBuffer[T]) incrementOrWrap(v *int) {
	if *v == len(c.data)-1 {
		*v = 0
	} else {
		*v++
	}
}

func (c *circularBuffer[T]) push(v T) {
	c.data[c.end] = v
	c.incrementOrWrap(&c.end)
	if c.full() {
		c.incrementOrWrap(&c.front)
	} else {
		c.size++
	}
}

func (c *circularBuffer[T]) pop() (T, bool) {
	var zero T
	if c.empty() {
		return zero, false
	}
	v := c.data[c.front]
	c.data[c.front] = zero
	c.incrementOrWrap(&c.front)
	c.size--
	return v, true
}

func (c *circularBuffer[T]) capacity() int { return len(c.data) }
func (c *circularBuffer[T]) count() int    { return c.size }
func (c *circularBuffer[T]) empty() bool   { return c.size == 0 }
func (c *circularBuffer[T]) full() bool    { return c.size == len(c.data) }

// Pool is an elastic set of clones of a single template Task, handed out to
// callers that need a fresh instance of the same computation without paying
// clone() cost on every request — a scheduler that fires the same task
// shape thousands of times (e.g. one request handler task per inbound
// connection) keeps a Pool instead of cloning per request.
//
// Grounded verbatim on transwarp.h::task_pool (lines 3393-3571).
type Pool[T any] struct {
	mu sync.Mutex

	template *Task[T]
	minimum  int
	maximum  int

	sl       spinlock
	finished *circularBuffer[*Task[T]]

	idle []*Task[T]
	busy map[*Task[T]]struct{}

	listener Listener
	log      *zap.Logger
}

// NewPool constructs a pool pre-populated with minimum clones of template,
// able to grow up to maximum clones on demand. Equivalent to
// NewPoolWithLogger with a no-op logger.
func NewPool[T any](template *Task[T], minimum, maximum int) (*Pool[T], error) {
	return NewPoolWithLogger(template, minimum, maximum, nil)
}

// NewPoolWithLogger is NewPool with debug logging of each clone's Tag() as
// it's created, for correlating pool growth with the rest of an
// application's structured logs. logger may be nil.
func NewPoolWithLogger[T any](template *Task[T], minimum, maximum int, logger *zap.Logger) (*Pool[T], error) {
	if minimum < 1 {
		return nil, &InvalidParameter{Name: "minimum size"}
	}
	if minimum > maximum {
		return nil, &InvalidParameter{Name: "minimum or maximum size"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool[T]{
		template: template,
		minimum:  minimum,
		maximum:  maximum,
		finished: newCircularBuffer[*Task[T]](maximum),
		busy:     make(map[*Task[T]]struct{}),
		log:      logger,
	}
	p.listener = ListenerFunc(func(event EventType, task Node) {
		if event != AfterFinished {
			return
		}
		t, ok := task.(*Task[T])
		if !ok {
			return
		}
		p.sl.Lock()
		p.finished.push(t)
		p.sl.Unlock()
	})
	if err := template.AddListenerFor(AfterFinished, p.listener); err != nil {
		return nil, err
	}

	clones, err := p.newClones(minimum)
	if err != nil {
		return nil, err
	}
	p.idle = append(p.idle, clones...)
	return p, nil
}

// NewDefaultPool applies the same minimum/maximum defaults as the upstream
// library (32 and 65536).
func NewDefaultPool[T any](template *Task[T]) (*Pool[T], error) {
	return NewPool(template, 32, 65536)
}

// newClone clones the template, which already carries the pool's
// AfterFinished listener (attached once, in NewPool) — cloning copies the
// listener bus along with everything else, so every clone reports back to
// this pool without needing to re-register here.
func (p *Pool[T]) newClone() (*Task[T], error) {
	c, err := Clone(p.template)
	if err != nil {
		return nil, err
	}
	p.log.Debug("pool: cloned task", zap.String("tag", c.Tag()))
	return c, nil
}

// newClones clones the template count times concurrently, stopping at the
// first clone failure. Each clone only touches its own freshly allocated
// fields plus read locks on the (idle, unchanging) template, so doing this
// under an errgroup is safe and turns pool warm-up from O(count) sequential
// mutex round trips into one.
func (p *Pool[T]) newClones(count int) ([]*Task[T], error) {
	clones := make([]*Task[T], count)
	var g errgroup.Group
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			c, err := p.newClone()
			if err != nil {
				return err
			}
			clones[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, wrapf(err, "pool: cloning %d tasks from template", count)
	}
	return clones, nil
}

// NextTask returns the next available clone, preferring one that has just
// finished running over waking an idle one, since a just-finished task is
// already warm and requires no further bookkeeping to hand back out. If no
// task is idle and maybeResize is true, the pool doubles in size (capped at
// maximum) before giving up and returning nil. Returns an error only if a
// resize attempt fails to clone; a plain empty pool is not an error, just a
// nil task.
func (p *Pool[T]) NextTask(maybeResize bool) (*Task[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sl.Lock()
	finishedTask, ok := p.finished.pop()
	p.sl.Unlock()
	if ok {
		return finishedTask, nil
	}

	if maybeResize && len(p.idle) == 0 {
		if err := p.resizeLocked(p.sizeLocked() * 2); err != nil {
			return nil, err
		}
	}
	if len(p.idle) == 0 {
		return nil, nil
	}

	t := p.idle[0]
	p.idle = p.idle[1:]
	p.busy[t] = struct{}{}
	return t, nil
}

// WaitForNextTask behaves like NextTask but never returns a nil task,
// spinning until one becomes available or a resize fails.
//
// Grounded verbatim on transwarp.h::task_pool::wait_for_next_task.
func (p *Pool[T]) WaitForNextTask(maybeResize bool) (*Task[T], error) {
	for {
		t, err := p.NextTask(maybeResize)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
		runtime.Gosched()
	}
}

func (p *Pool[T]) sizeLocked() int { return len(p.idle) + len(p.busy) }

// Size returns the total number of clones the pool currently holds, busy or
// idle.
func (p *Pool[T]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sizeLocked()
}

// MinimumSize returns the pool's configured floor.
func (p *Pool[T]) MinimumSize() int { return p.minimum }

// MaximumSize returns the pool's configured ceiling.
func (p *Pool[T]) MaximumSize() int { return p.maximum }

// IdleCount counts clones available for immediate use: those sitting in the
// idle queue plus those sitting unclaimed in the finished ring (they are
// still technically marked busy internally, but a caller can get one
// without waiting).
func (p *Pool[T]) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sl.Lock()
	defer p.sl.Unlock()
	return len(p.idle) + p.finished.count()
}

// BusyCount counts clones genuinely in flight: in the busy set but not yet
// surfaced through the finished ring.
func (p *Pool[T]) BusyCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sl.Lock()
	defer p.sl.Unlock()
	return len(p.busy) - p.finished.count()
}

// Resize grows or shrinks the pool to newSize, first reclaiming any
// finished clones back into the idle queue. Growth stops at maximum;
// shrinkage stops at minimum or once the idle queue runs dry (busy clones
// are never forcibly evicted).
func (p *Pool[T]) Resize(newSize int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resizeLocked(newSize)
}

func (p *Pool[T]) resizeLocked(newSize int) error {
	p.reclaimLocked()

	size := p.sizeLocked()
	switch {
	case newSize > size:
		count := newSize - size
		if room := p.maximum - size; count > room {
			count = room
		}
		if count > 0 {
			clones, err := p.newClones(count)
			if err != nil {
				return err
			}
			p.idle = append(p.idle, clones...)
		}
	case newSize < size:
		count := size - newSize
		for i := 0; i < count; i++ {
			if len(p.idle) == 0 || p.sizeLocked() == p.minimum {
				break
			}
			p.idle = p.idle[:len(p.idle)-1]
		}
	}
	return nil
}

// Reclaim drains the finished ring, moving every clone it names from busy
// back to idle. Resize calls this automatically, and so does NextTask when
// it grows the pool; it is exported for callers that want to shrink the
// busy set without also resizing.
func (p *Pool[T]) Reclaim() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reclaimLocked()
}

func (p *Pool[T]) reclaimLocked() {
	p.sl.Lock()
	drained := make([]*Task[T], 0, p.finished.count())
	for {
		t, ok := p.finished.pop()
		if !ok {
			break
		}
		drained = append(drained, t)
	}
	p.sl.Unlock()

	for _, t := range drained {
		delete(p.busy, t)
		p.idle = append(p.idle, t)
	}
}
