package taskgraph

// Releaser is a reusable Listener that clears a task's result cell once
// every child has consumed it (on AfterSatisfied), letting memory held by
// a long-lived graph's intermediate results be reclaimed eagerly. A Get()
// on the task afterwards raises Control unless the task is re-scheduled.
//
// Grounded verbatim on transwarp.h::releaser (lines 3694-3716).
type Releaser struct {
	executor Executor
}

// NewReleaser returns a Releaser that clears the cell on the thread that
// raises AfterSatisfied.
func NewReleaser() *Releaser { return &Releaser{} }

// NewReleaserWithExecutor returns a Releaser that performs the clear via
// the given executor instead, giving the caller control over which thread
// does the work.
func NewReleaserWithExecutor(executor Executor) *Releaser {
	return &Releaser{executor: executor}
}

// HandleEvent implements Listener.
func (r *Releaser) HandleEvent(event EventType, task Node) {
	if event != AfterSatisfied {
		return
	}
	en, ok := task.(engineNode)
	if !ok {
		return
	}
	if r.executor != nil {
		r.executor.Execute(func() { en.resetResult() }, task)
	} else {
		en.resetResult()
	}
}
