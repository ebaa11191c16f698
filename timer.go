package taskgraph

import (
	"sync"
	"time"
)

// Timer is a reusable Listener that tracks the average idle, wait, and run
// time of each task it observes:
//   - idle: time between scheduling and starting (executor-dependent queue time)
//   - wait: time between starting and invoking the functor (time spent
//     waiting on parents)
//   - run: time between invoking and finishing the functor
//
// Grounded verbatim on transwarp.h::timer (lines 3573-3670).
type Timer struct {
	mu     sync.Mutex
	tracks map[Node]*timerTrack
}

type timerTrack struct {
	running                        bool
	startIdle, startWait, startRun time.Time
	idleTotal, idleCount           int64
	waitTotal, waitCount           int64
	runTotal, runCount             int64
}

// NewTimer returns a Timer with no recorded tracks.
func NewTimer() *Timer {
	return &Timer{tracks: make(map[Node]*timerTrack)}
}

func (t *Timer) track(task Node) *timerTrack {
	tr, ok := t.tracks[task]
	if !ok {
		tr = &timerTrack{}
		t.tracks[task] = tr
	}
	return tr
}

// HandleEvent implements Listener.
func (t *Timer) HandleEvent(event EventType, task Node) {
	now := time.Now()
	switch event {
	case BeforeScheduled:
		t.mu.Lock()
		t.track(task).startIdle = now
		t.mu.Unlock()
	case BeforeStarted:
		t.trackIdleTime(task, now)
		t.mu.Lock()
		t.track(task).startWait = now
		t.mu.Unlock()
	case AfterCanceled:
		t.trackWaitTime(task, now)
	case BeforeInvoked:
		t.trackWaitTime(task, now)
		t.mu.Lock()
		tr := t.track(task)
		tr.running = true
		tr.startRun = now
		t.mu.Unlock()
	case AfterFinished:
		t.trackRunTime(task, now)
	}
}

func (t *Timer) trackIdleTime(task Node, now time.Time) {
	t.mu.Lock()
	tr := t.track(task)
	tr.idleTotal += now.Sub(tr.startIdle).Microseconds()
	tr.idleCount++
	avg := tr.idleTotal / tr.idleCount
	t.mu.Unlock()
	task.(engineNode).setAvgIdleUS(avg)
}

func (t *Timer) trackWaitTime(task Node, now time.Time) {
	t.mu.Lock()
	tr := t.track(task)
	tr.waitTotal += now.Sub(tr.startWait).Microseconds()
	tr.waitCount++
	avg := tr.waitTotal / tr.waitCount
	t.mu.Unlock()
	task.(engineNode).setAvgWaitUS(avg)
}

func (t *Timer) trackRunTime(task Node, now time.Time) {
	t.mu.Lock()
	tr := t.track(task)
	if !tr.running {
		t.mu.Unlock()
		return
	}
	tr.running = false
	tr.runTotal += now.Sub(tr.startRun).Microseconds()
	tr.runCount++
	avg := tr.runTotal / tr.runCount
	t.mu.Unlock()
	task.(engineNode).setAvgRunUS(avg)
}

// Reset clears all timing information this Timer has recorded.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks = make(map[Node]*timerTrack)
}
