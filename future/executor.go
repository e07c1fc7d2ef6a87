package future

// Executor is the capability every combinator in the combinator package
// takes as an explicit argument: anything that can run a zero-argument
// work item "at a later time", on some thread it owns.
//
// Unlike the teacher package this one was adapted from, there is no
// package-level default Executor and no SetExecutor — spec.md §4.5 requires
// every combinator to take its executor explicitly, so there is nothing for
// an implicit global to do except invite accidental sharing across
// unrelated call sites.
//
// A timer scheduler (the timer package's AlarmClock) deliberately does not
// implement Executor: it has deadlines, not a queue, and spec.md §9 calls
// out keeping the two capabilities distinct.
type Executor interface {
	// Submit enqueues f to run exactly once on a thread owned by the
	// Executor. Submit itself must not block beyond acquiring whatever
	// lock guards the work queue.
	Submit(f func())
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(func())

// Submit calls e(f).
func (e ExecutorFunc) Submit(f func()) { e(f) }

// GoExecutor submits every work item onto its own goroutine. It places no
// bound on concurrency and owns no threads of its own — useful as the
// lightest-weight Executor for tests and for fire-and-forget work that
// doesn't need pool.WorkerPool's FIFO-and-fixed-thread-count guarantees.
type GoExecutor struct{}

// Submit runs f on a new goroutine.
func (GoExecutor) Submit(f func()) { go f() }
