// Package timer implements the single-thread deadline scheduler from
// spec.md §4.4, grounded on original_source/AlarmClock.{h,cpp}: timers are
// held in a structure ordered by deadline, and a single background
// goroutine sleeps until the earliest one fires, waking early if a new,
// earlier-still deadline is inserted.
package timer

import (
	"container/heap"
	"sync"
	"time"

	"github.com/wrenfield/asyncrt/daemon"
	"github.com/wrenfield/asyncrt/future"
	"github.com/wrenfield/asyncrt/routine"
)

// AlarmClock is not a future.Executor on purpose — it has deadlines, not a
// work queue, and spec.md §9 calls out keeping the two capabilities
// distinct even though their shapes (an enqueue-like operation plus a
// background thread) look similar.
//
// The C++ original wakes its background thread with a condition variable's
// wait_until. sync.Cond has no timed wait, so the early-wakeup signal here
// is a buffered channel instead: SetTimer and Close both do a non-blocking
// send to it, and run's select races that against a time.Timer for the
// current earliest deadline.
type AlarmClock struct {
	mu      sync.Mutex
	entries timerHeap
	closing bool
	wake    chan struct{}
	closed  *daemon.OnceCloser
	done    chan struct{}
}

type timerEntry struct {
	when   time.Time
	action func()
}

type timerHeap []timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].when.Before(h[j].when) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(timerEntry)) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// NewAlarmClock spawns the scheduler's background goroutine and returns the
// clock that feeds it.
func NewAlarmClock() *AlarmClock {
	a := &AlarmClock{
		wake:   make(chan struct{}, 1),
		closed: &daemon.OnceCloser{},
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AlarmClock) signalWake() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// SetTimer registers action to run at or after when. Timers cannot be
// cancelled (spec.md §1's Non-goals). If when becomes the earliest
// outstanding deadline, the background goroutine is woken immediately so
// it can re-arm for the new, shorter duration.
func (a *AlarmClock) SetTimer(when time.Time, action func()) {
	a.mu.Lock()
	if a.closing {
		a.mu.Unlock()
		return
	}
	wasEarliest := len(a.entries) == 0 || when.Before(a.entries[0].when)
	heap.Push(&a.entries, timerEntry{when: when, action: action})
	a.mu.Unlock()

	if wasEarliest {
		a.signalWake()
	}
}

// SetTimerFuture returns a Future[future.Void] that completes when the
// wall-clock deadline when is reached. It is exactly SetTimer with the
// action wired to a Promise, matching original_source/AlarmClock.h's
// `Future<void> setTimer(time_point)` overload.
func (a *AlarmClock) SetTimerFuture(when time.Time) *future.Future[future.Void] {
	p := future.NewPromise[future.Void]()
	a.SetTimer(when, func() {
		p.Set(future.Void{}, nil)
	})
	return p.Future()
}

// After is a convenience wrapper around SetTimerFuture for a relative
// duration rather than an absolute deadline.
func (a *AlarmClock) After(d time.Duration) *future.Future[future.Void] {
	return a.SetTimerFuture(time.Now().Add(d))
}

func (a *AlarmClock) run() {
	for {
		a.mu.Lock()
		if len(a.entries) == 0 {
			closing := a.closing
			a.mu.Unlock()
			if closing {
				close(a.done)
				return
			}
			<-a.wake
			continue
		}
		deadline := a.entries[0].when
		a.mu.Unlock()

		wait := time.Until(deadline)
		if wait <= 0 {
			a.fireDue()
			continue
		}

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-a.wake:
			t.Stop()
		}
	}
}

// fireDue pops and runs every entry whose deadline has passed. Multiple
// timers with identical (or already-elapsed) deadlines fire in whatever
// order the heap yields them — spec.md §4.4 explicitly leaves same-tick
// ordering unspecified.
func (a *AlarmClock) fireDue() {
	for {
		a.mu.Lock()
		if len(a.entries) == 0 || a.entries[0].when.After(time.Now()) {
			a.mu.Unlock()
			return
		}
		entry := heap.Pop(&a.entries).(timerEntry)
		a.mu.Unlock()
		routine.RunSafe(entry.action)
	}
}

// Close sets the closing flag and wakes the background goroutine. Close
// returns once the goroutine has observed the closing flag with no
// remaining timers and exited — any timer scheduled before Close either
// fires or is abandoned, matching spec.md §4.4's destructor contract.
// Calling SetTimer concurrently with or after Close is a caller error; the
// timer may be silently dropped.
//
// Close is idempotent: calling it more than once is a no-op after the
// first call returns.
func (a *AlarmClock) Close() error {
	return a.closed.CloseOnce(func() error {
		a.mu.Lock()
		a.closing = true
		a.entries = nil
		a.mu.Unlock()
		a.signalWake()
		<-a.done
		return nil
	})
}

// Done returns a channel that closes once the background goroutine has
// exited after Close.
func (a *AlarmClock) Done() <-chan struct{} {
	return a.done
}
