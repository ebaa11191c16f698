package main

import "github.com/flowmesh/taskgraph"

// buildDiamond returns a small graph shaped like:
//
//	fetch -> {double, triple} -> sum
//
// It's small enough to read at a glance while still exercising Consume
// chaining, a shared parent, and a ConsumeVector join.
func buildDiamond() (sink *taskgraph.Task[int], graph *taskgraph.Graph) {
	fetch := taskgraph.Root(func() (int, error) { return 7, nil }, taskgraph.WithName("fetch"))
	double := taskgraph.ThenConsume(fetch, func(v int) (int, error) { return v * 2, nil })
	triple := taskgraph.ThenConsume(fetch, func(v int) (int, error) { return v * 3, nil })

	sink, err := taskgraph.ConsumeVector(func(vs []int) (int, error) {
		total := 0
		for _, v := range vs {
			total += v
		}
		return total, nil
	}, []*taskgraph.Task[int]{double, triple}, taskgraph.WithName("sum"))
	if err != nil {
		// Only possible if the parents slice were empty, which it never is here.
		panic(err)
	}

	return sink, taskgraph.NewGraph("diamond", sink)
}
