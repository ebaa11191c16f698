package taskgraph_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/taskgraph"
)

func TestConsume1_ChainsParentValue(t *testing.T) {
	root := taskgraph.Root(func() (int, error) { return 10, nil })
	doubled := taskgraph.Consume1(func(v int) (int, error) { return v * 2, nil }, root)

	require.NoError(t, doubled.ScheduleAll())

	v, err := doubled.Get()
	require.NoError(t, err)
	assert.Equal(t, 20, v)
}

func TestConsume1_PropagatesParentError(t *testing.T) {
	boom := errors.New("boom")
	root := taskgraph.Root(func() (int, error) { return 0, boom })
	child := taskgraph.Consume1(func(v int) (int, error) { return v, nil }, root)

	require.NoError(t, child.ScheduleAll())

	_, err := child.Get()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestAccept1_SeesParentDirectly(t *testing.T) {
	root := taskgraph.Root(func() (int, error) { return 5, nil })
	seen := taskgraph.Accept1(func(p *taskgraph.Task[int]) (bool, error) {
		v, err := p.Get()
		return err == nil && v == 5, nil
	}, root)

	require.NoError(t, seen.ScheduleAll())
	ok, err := seen.Get()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWait1_IgnoresParentValue(t *testing.T) {
	root := taskgraph.Root(func() (int, error) { return 999, nil })
	ran := false
	sink := taskgraph.Wait1(func() (taskgraph.Unit, error) {
		ran = true
		return taskgraph.Unit{}, nil
	}, root)

	require.NoError(t, sink.ScheduleAll())
	_, err := sink.Get()
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestConsumeAny_PicksAResolvedParent(t *testing.T) {
	p1 := taskgraph.Root(func() (int, error) { return 1, nil })
	p2 := taskgraph.Root(func() (int, error) { return 2, nil })

	// Resolve both parents before building the any-task so waitAny picks up
	// an already-finished parent immediately instead of racing goroutines.
	require.NoError(t, p1.Schedule())
	require.NoError(t, p2.Schedule())

	any := taskgraph.ConsumeAny(func(v int) (int, error) { return v, nil }, []*taskgraph.Task[int]{p1, p2})
	require.NoError(t, any.Schedule())

	v, err := any.Get()
	require.NoError(t, err)
	assert.Contains(t, []int{1, 2}, v)
}

func TestWaitVector_RequiresNonEmptyParents(t *testing.T) {
	_, err := taskgraph.WaitVector[int](func() (taskgraph.Unit, error) { return taskgraph.Unit{}, nil }, nil)
	require.Error(t, err)
	assert.True(t, taskgraph.IsInvalidParameter(err))
}

func TestConsumeVector_AggregatesAllParents(t *testing.T) {
	p1 := taskgraph.Root(func() (int, error) { return 1, nil })
	p2 := taskgraph.Root(func() (int, error) { return 2, nil })
	p3 := taskgraph.Root(func() (int, error) { return 3, nil })

	sum, err := taskgraph.ConsumeVector(func(vs []int) (int, error) {
		total := 0
		for _, v := range vs {
			total += v
		}
		return total, nil
	}, []*taskgraph.Task[int]{p1, p2, p3})
	require.NoError(t, err)

	require.NoError(t, sum.ScheduleAll())
	v, err := sum.Get()
	require.NoError(t, err)
	assert.Equal(t, 6, v)
}

func TestThenConsume_BuildsConsumeChild(t *testing.T) {
	root := taskgraph.Root(func() (int, error) { return 3, nil })
	squared := taskgraph.ThenConsume(root, func(v int) (int, error) { return v * v, nil })

	require.NoError(t, squared.ScheduleAll())
	v, err := squared.Get()
	require.NoError(t, err)
	assert.Equal(t, 9, v)
	assert.Equal(t, taskgraph.KindConsume, squared.Kind())
}

func TestReset_AllowsRerunningAfterResolution(t *testing.T) {
	calls := 0
	task := taskgraph.Root(func() (int, error) {
		calls++
		return calls, nil
	})

	require.NoError(t, task.Schedule())
	v1, _ := task.Get()
	assert.Equal(t, 1, v1)

	require.NoError(t, task.Reset())
	require.NoError(t, task.Schedule())
	v2, _ := task.Get()
	assert.Equal(t, 2, v2)
}

func TestCancel_RunnerPublishesCanceledError(t *testing.T) {
	task := taskgraph.Root(func() (int, error) { return 1, nil })
	task.Cancel(true)

	// Schedule() always resets, which clears the cancel flag before the
	// run checks it. Scheduling with reset disabled leaves the flag set
	// on this never-yet-scheduled task, so the run observes it.
	require.NoError(t, task.ScheduleReset(nil, false))

	_, err := task.Get()
	require.Error(t, err)
	assert.True(t, taskgraph.IsCanceled(err))
}

func TestCancelPoint_HonoredMidRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	task := taskgraph.RootSelf(func(self *taskgraph.Task[int]) (int, error) {
		close(started)
		<-release
		for i := 0; i < 5; i++ {
			if err := taskgraph.CancelPoint(self); err != nil {
				return 0, err
			}
		}
		return 99, nil
	})

	result := make(chan error, 1)
	go func() {
		require.NoError(t, task.Schedule())
		_, err := task.Get()
		result <- err
	}()

	<-started
	task.Cancel(true)
	close(release)

	err := <-result
	require.Error(t, err)
	assert.True(t, taskgraph.IsCanceled(err))
}

func TestCancelPoint_ClearOnUncanceledTask(t *testing.T) {
	task := taskgraph.RootSelf(func(self *taskgraph.Task[int]) (int, error) {
		if err := taskgraph.CancelPoint(self); err != nil {
			return 0, err
		}
		return 7, nil
	})

	require.NoError(t, task.Schedule())
	v, err := task.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestClone_ProducesIndependentResult(t *testing.T) {
	root := taskgraph.Root(func() (int, error) { return 1, nil })
	require.NoError(t, root.Schedule())

	clone, err := taskgraph.Clone(root)
	require.NoError(t, err)

	require.NoError(t, clone.Reset())
	require.NoError(t, clone.Schedule())

	origV, _ := root.Get()
	cloneV, _ := clone.Get()
	assert.Equal(t, origV, cloneV)
	assert.NotSame(t, root, clone)
}
