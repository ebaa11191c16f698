package taskgraph_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/taskgraph"
)

func TestRoot_ResolvesValueSynchronously(t *testing.T) {
	task := taskgraph.Root(func() (int, error) { return 42, nil })

	require.NoError(t, task.Schedule())

	v, err := task.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, task.WasScheduled())
	assert.True(t, task.HasResult())
}

func TestValueTask_IsReadyWithoutScheduling(t *testing.T) {
	task := taskgraph.ValueTask("hello")

	assert.True(t, task.WasScheduled())
	assert.True(t, task.IsReady())

	v, err := task.Get()
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestGet_BeforeScheduleRaisesControl(t *testing.T) {
	task := taskgraph.Root(func() (int, error) { return 1, nil })

	_, err := task.Get()
	require.Error(t, err)
	assert.True(t, taskgraph.IsControl(err))
}

func TestWait_BlocksUntilConcurrentScheduleCompletes(t *testing.T) {
	task := taskgraph.Root(func() (int, error) {
		time.Sleep(10 * time.Millisecond)
		return 7, nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, task.Schedule())
	}()

	task.Wait()
	v, err := task.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	wg.Wait()
}
