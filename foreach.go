package taskgraph

// ForEach builds a graph of one Root task per input element plus a Wait
// sink over all of them, mirroring the shape of std::for_each: every
// element's side-effecting function runs independently, and the returned
// task only resolves once every element has been visited.
//
// Grounded on transwarp.h::for_each (lines 3333-3347); ForEach itself
// builds the graph but does not schedule it — callers drive it with
// ScheduleAll or ForEachWith.
func ForEach[E any](items []E, fn func(E)) (*Task[Unit], error) {
	if len(items) == 0 {
		return nil, &InvalidParameter{Name: "items"}
	}
	roots := make([]*Task[Unit], len(items))
	for i, item := range items {
		item := item
		roots[i] = Root(func() (Unit, error) {
			fn(item)
			return Unit{}, nil
		})
	}
	return WaitVector(func() (Unit, error) { return Unit{}, nil }, roots)
}

// ForEachWith builds the same graph as ForEach and immediately schedules
// every root task on exec, then blocks until all of them finish.
//
// Grounded on transwarp.h::for_each(executor&, ...) (lines 3350-3360).
func ForEachWith[E any](exec Executor, items []E, fn func(E)) error {
	sink, err := ForEach(items, fn)
	if err != nil {
		return err
	}
	if err := sink.ScheduleAllWith(exec); err != nil {
		return err
	}
	_, err = sink.Get()
	return err
}

// Transform builds a graph of one Root task per input element, each
// writing unaryOp(element) into the corresponding slot of the returned
// results slice, plus a Wait sink over all of them. The results slice is
// only safe to read after the sink task resolves.
//
// Grounded on transwarp.h::transform (lines 3362-3376).
func Transform[E, R any](items []E, unaryOp func(E) R) (*Task[Unit], []R, error) {
	if len(items) == 0 {
		return nil, nil, &InvalidParameter{Name: "items"}
	}
	results := make([]R, len(items))
	roots := make([]*Task[Unit], len(items))
	for i, item := range items {
		i, item := i, item
		roots[i] = Root(func() (Unit, error) {
			results[i] = unaryOp(item)
			return Unit{}, nil
		})
	}
	sink, err := WaitVector(func() (Unit, error) { return Unit{}, nil }, roots)
	if err != nil {
		return nil, nil, err
	}
	return sink, results, nil
}

// TransformWith schedules the graph built by Transform on exec and blocks
// for the results, returning them directly instead of a task handle.
//
// Grounded on transwarp.h::transform(executor&, ...) (lines 3379-3390).
func TransformWith[E, R any](exec Executor, items []E, unaryOp func(E) R) ([]R, error) {
	sink, results, err := Transform(items, unaryOp)
	if err != nil {
		return nil, err
	}
	if err := sink.ScheduleAllWith(exec); err != nil {
		return nil, err
	}
	if _, err := sink.Get(); err != nil {
		return nil, err
	}
	return results, nil
}
