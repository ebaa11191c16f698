package taskgraph_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/taskgraph"
)

func TestAddListenerFor_FiresOnMatchingEventOnly(t *testing.T) {
	task := taskgraph.Root(func() (int, error) { return 1, nil })

	var fired []taskgraph.EventType
	require.NoError(t, task.AddListenerFor(taskgraph.AfterFinished, taskgraph.ListenerFunc(
		func(event taskgraph.EventType, _ taskgraph.Node) { fired = append(fired, event) },
	)))

	require.NoError(t, task.Schedule())
	assert.Equal(t, []taskgraph.EventType{taskgraph.AfterFinished}, fired)
}

func TestAddListener_FiresOnEveryEvent(t *testing.T) {
	task := taskgraph.Root(func() (int, error) { return 1, nil })

	count := 0
	require.NoError(t, task.AddListener(taskgraph.ListenerFunc(
		func(taskgraph.EventType, taskgraph.Node) { count++ },
	)))

	require.NoError(t, task.Schedule())
	assert.Greater(t, count, 1)
}

func TestTimer_RecordsRunTimeAfterFinish(t *testing.T) {
	timer := taskgraph.NewTimer()
	task := taskgraph.Root(func() (int, error) { return 1, nil })
	require.NoError(t, task.AddListener(timer))

	assert.Equal(t, int64(-1), task.AvgRunUS())
	require.NoError(t, task.Schedule())
	assert.GreaterOrEqual(t, task.AvgRunUS(), int64(0))
}

func TestTimer_TracksNewTaskAfterReset(t *testing.T) {
	timer := taskgraph.NewTimer()
	task := taskgraph.Root(func() (int, error) { return 1, nil })
	require.NoError(t, task.AddListener(timer))
	require.NoError(t, task.Schedule())
	require.GreaterOrEqual(t, task.AvgRunUS(), int64(0))

	timer.Reset()
	// Resetting the Timer's own tracks doesn't retroactively erase what it
	// already reported on the task; this just asserts Reset doesn't panic
	// and a task tracked after the reset still gets its run time recorded.
	second := taskgraph.Root(func() (int, error) { return 2, nil })
	require.NoError(t, second.AddListener(timer))
	require.NoError(t, second.Schedule())
	assert.GreaterOrEqual(t, second.AvgRunUS(), int64(0))
}

func TestReleaser_ClearsResultOnSatisfaction(t *testing.T) {
	root := taskgraph.Root(func() (int, error) { return 1, nil })
	require.NoError(t, root.AddListener(taskgraph.NewReleaser()))

	child := taskgraph.ThenConsume(root, func(v int) (int, error) { return v, nil })

	require.NoError(t, root.Schedule())
	require.NoError(t, child.Schedule())

	// The only child has consumed root's value, so the releaser should have
	// cleared root's cell and unset its scheduled flag.
	assert.False(t, root.WasScheduled())
}

func TestMetricsListener_CountsScheduledAndFinished(t *testing.T) {
	registry := prometheus.NewRegistry()
	ml := taskgraph.NewMetricsListener(taskgraph.MetricsConfig{Registry: registry, Namespace: "test"})

	task := taskgraph.Root(func() (int, error) { return 1, nil })
	require.NoError(t, task.AddListener(ml))
	require.NoError(t, task.Schedule())

	metrics, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, metrics)

	names := map[string]bool{}
	for _, mf := range metrics {
		names[mf.GetName()] = true
	}
	assert.True(t, names["test_tasks_scheduled_total"])
	assert.True(t, names["test_tasks_finished_total"])
}

func TestMetricsListener_DefaultsNamespaceAndRegistry(t *testing.T) {
	ml := taskgraph.NewMetricsListener(taskgraph.MetricsConfig{})
	assert.NotNil(t, ml.Registry())
}
