package taskgraph

import (
	"sync"

	"go.uber.org/zap"
)

// Executor dispatches a no-argument closure representing one task's body.
// Execute must not panic. Ordering and concurrency across calls are the
// executor's own choice. Grounded verbatim on transwarp.h's executor
// interface.
type Executor interface {
	// Name identifies the executor, used in DOT output and logging.
	Name() string
	// Execute runs job, which owns all state it needs. task is the task
	// being scheduled, passed through for executor-specific bookkeeping
	// (e.g. priority-aware scheduling); implementations that don't need it
	// may ignore it.
	Execute(job func(), task Node)
}

// sequential runs job synchronously on the caller's goroutine.
type sequential struct{}

// NewSequential returns an Executor that runs every job synchronously on
// the calling goroutine, matching transwarp::sequential.
func NewSequential() Executor { return sequential{} }

func (sequential) Name() string { return "taskgraph.sequential" }

func (sequential) Execute(job func(), _ Node) { job() }

// ThreadPool is a bounded FIFO worker pool: N worker goroutines pull
// closures off a shared queue guarded by a mutex+condition-variable,
// mirroring transwarp::detail::thread_pool and gotaskflow's own
// goroutine-pool-backed executor.
type ThreadPool struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []func()
	done      bool
	wg        sync.WaitGroup
	log       *zap.Logger
	onStarted func(workerIndex int)
}

// NewThreadPool constructs a ThreadPool with n worker goroutines. onStarted,
// if non-nil, runs once per worker before it begins draining the queue.
// logger may be nil, in which case a no-op logger is used.
func NewThreadPool(n int, onStarted func(workerIndex int), logger *zap.Logger) (*ThreadPool, error) {
	if n <= 0 {
		return nil, &InvalidParameter{Name: "number of threads"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &ThreadPool{
		log:       logger,
		onStarted: onStarted,
	}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker(i)
	}
	p.log.Debug("thread pool started", zap.Int("workers", n))
	return p, nil
}

func (p *ThreadPool) Name() string { return "taskgraph.thread_pool" }

// Execute enqueues job for execution by one of the pool's workers.
func (p *ThreadPool) Execute(job func(), _ Node) {
	p.mu.Lock()
	p.queue = append(p.queue, job)
	p.mu.Unlock()
	p.cond.Signal()
}

func (p *ThreadPool) worker(index int) {
	defer p.wg.Done()
	if p.onStarted != nil {
		p.onStarted(index)
	}
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.done {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.done {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
		job()
	}
}

// Close signals every worker to drain the queue and exit, then blocks until
// all of them have. Close is idempotent.
func (p *ThreadPool) Close() {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
	p.log.Debug("thread pool shut down")
}
