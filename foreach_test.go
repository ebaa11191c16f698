package taskgraph_test

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/taskgraph"
)

func TestForEach_RejectsEmptyItems(t *testing.T) {
	_, err := taskgraph.ForEach[int](nil, func(int) {})
	require.Error(t, err)
	assert.True(t, taskgraph.IsInvalidParameter(err))
}

func TestForEach_VisitsEveryElement(t *testing.T) {
	var mu sync.Mutex
	var seen []int

	sink, err := taskgraph.ForEach([]int{1, 2, 3}, func(v int) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})
	require.NoError(t, err)
	require.NoError(t, sink.ScheduleAll())

	sort.Ints(seen)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestForEachWith_SchedulesAndWaits(t *testing.T) {
	var mu sync.Mutex
	var seen []int

	err := taskgraph.ForEachWith(taskgraph.NewSequential(), []int{4, 5}, func(v int) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})
	require.NoError(t, err)

	sort.Ints(seen)
	assert.Equal(t, []int{4, 5}, seen)
}

func TestTransform_RejectsEmptyItems(t *testing.T) {
	_, _, err := taskgraph.Transform[int, int](nil, func(v int) int { return v })
	require.Error(t, err)
	assert.True(t, taskgraph.IsInvalidParameter(err))
}

func TestTransform_WritesResultsInInputOrder(t *testing.T) {
	sink, results, err := taskgraph.Transform([]int{1, 2, 3}, func(v int) int { return v * v })
	require.NoError(t, err)
	require.NoError(t, sink.ScheduleAll())

	assert.Equal(t, []int{1, 4, 9}, results)
}

func TestTransformWith_ReturnsResultsDirectly(t *testing.T) {
	results, err := taskgraph.TransformWith(taskgraph.NewSequential(), []string{"a", "bb", "ccc"}, func(s string) int {
		return len(s)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, results)
}
