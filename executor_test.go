package taskgraph_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/taskgraph"
)

func TestSequential_RunsJobOnCallingGoroutine(t *testing.T) {
	exec := taskgraph.NewSequential()

	ran := false
	exec.Execute(func() { ran = true }, nil)
	assert.True(t, ran)
	assert.Equal(t, "taskgraph.sequential", exec.Name())
}

func TestNewThreadPool_RejectsNonPositiveSize(t *testing.T) {
	_, err := taskgraph.NewThreadPool(0, nil, nil)
	require.Error(t, err)
	assert.True(t, taskgraph.IsInvalidParameter(err))

	_, err = taskgraph.NewThreadPool(-1, nil, nil)
	require.Error(t, err)
}

func TestThreadPool_RunsOnStartedPerWorker(t *testing.T) {
	var started int32
	pool, err := taskgraph.NewThreadPool(3, func(int) { atomic.AddInt32(&started, 1) }, nil)
	require.NoError(t, err)
	defer pool.Close()

	// onStarted fires on each worker goroutine before it drains the queue.
	// Round-trip one job, then Close, which waits for every worker to exit
	// and so for every onStarted call to have returned.
	var wg sync.WaitGroup
	wg.Add(1)
	pool.Execute(func() { wg.Done() }, nil)
	wg.Wait()
	pool.Close()

	assert.EqualValues(t, 3, atomic.LoadInt32(&started))
	assert.Equal(t, "taskgraph.thread_pool", pool.Name())
}

func TestThreadPool_ExecutesEnqueuedJobs(t *testing.T) {
	pool, err := taskgraph.NewThreadPool(4, nil, nil)
	require.NoError(t, err)
	defer pool.Close()

	const n = 50
	var wg sync.WaitGroup
	var count int32
	wg.Add(n)
	for i := 0; i < n; i++ {
		pool.Execute(func() {
			atomic.AddInt32(&count, 1)
			wg.Done()
		}, nil)
	}
	wg.Wait()
	assert.EqualValues(t, n, count)
}

func TestThreadPool_CloseIsIdempotent(t *testing.T) {
	pool, err := taskgraph.NewThreadPool(2, nil, nil)
	require.NoError(t, err)

	pool.Close()
	assert.NotPanics(t, func() { pool.Close() })
}

func TestTask_RunsOnProvidedThreadPool(t *testing.T) {
	pool, err := taskgraph.NewThreadPool(2, nil, nil)
	require.NoError(t, err)
	defer pool.Close()

	task := taskgraph.Root(func() (int, error) { return 11, nil }, taskgraph.WithExecutor(pool))
	require.NoError(t, task.Schedule())

	v, err := task.Get()
	require.NoError(t, err)
	assert.Equal(t, 11, v)
}
