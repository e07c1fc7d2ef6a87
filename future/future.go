// Package future provides the promise/future primitive the rest of this
// module's combinators and executors are built around: a typed, cheap-to-
// copy handle over a shared, single-assignment cell.
//
// Inspired by https://github.com/jizhuozhi/go-future, reshaped around the
// producer/cell/consumer split described for PromiseFuturePair in the
// original C++ runtime this package replaces.
package future

// Void is the element type for futures that carry no payload, completing
// with either success or an error. Go's generics make a distinct "Future
// of void" type unnecessary — Future[Void] already is that type — so
// unlike the C++ original there is no parallel PromiseFuturePairBase /
// Future<void> hierarchy.
type Void struct{}

// Promise is the producer-side handle to a cell: the only handle capable of
// setting its terminal value. A Promise must not be copied after first use.
type Promise[T any] struct {
	cell *cell[T]
}

// NewPromise creates a Promise with a fresh, pending cell.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{cell: newCell[T]()}
}

// Set stores val and err as the Promise's terminal value.
//
// Set panics if the Promise was already completed: a second completion
// attempt is treated as a programming error (spec.md I1's "reject" policy).
// Use TrySet if the caller cannot guarantee single-use and needs the no-op
// policy instead.
func (p *Promise[T]) Set(val T, err error) {
	if !p.cell.set(val, err) {
		panic("future: Promise.Set called on an already-completed Promise")
	}
}

// TrySet stores val and err as the Promise's terminal value, returning
// false instead of panicking if the Promise was already completed.
func (p *Promise[T]) TrySet(val T, err error) bool {
	return p.cell.set(val, err)
}

// Future returns the consumer-side handle to p's cell. Future may be called
// any number of times; every returned handle observes the same completion.
func (p *Promise[T]) Future() *Future[T] {
	return &Future[T]{cell: p.cell}
}

// IsPending reports whether the Promise has not yet been completed.
func (p *Promise[T]) IsPending() bool {
	return p.cell.isPending()
}

// Future is the consumer-side view of a cell: a typed, copyable handle that
// can wait, read, or subscribe, but never write.
type Future[T any] struct {
	cell *cell[T]
}

// Get blocks until the Future is terminal, then returns its value. If the
// Future completed with an error, Get returns the zero value of T alongside
// that error — the CompletedWithError condition from spec.md §7 is this
// non-nil error, not a panic.
func (f *Future[T]) Get() (T, error) {
	return f.cell.get()
}

// Subscribe registers cb to run when f becomes terminal.
//
// If f is already terminal, cb runs synchronously, on the calling
// goroutine, before Subscribe returns. Otherwise cb runs on whichever
// goroutine completes f — callers that need the continuation to run on a
// specific executor's threads should use the combinator package instead
// of calling Subscribe directly.
func (f *Future[T]) Subscribe(cb func(T, error)) {
	f.cell.addCallback(cb)
}

// SubscribeCompletion registers cb to run when f becomes terminal, passing
// only the error (nil on success) and discarding the value. This is the
// "common callback" from spec.md §4.2, used by WaiterSet so it need not be
// generic over every tracked Future's element type.
func (f *Future[T]) SubscribeCompletion(cb func(error)) {
	f.cell.addCallback(func(_ T, err error) {
		cb(err)
	})
}

// IsDone reports whether f has reached a terminal state.
func (f *Future[T]) IsDone() bool {
	return f.cell.isDone()
}

// Wait blocks until f is terminal, discarding the result.
func (f *Future[T]) Wait() {
	f.cell.wait()
}

// Completed returns a Future already settled with val and no error.
func Completed[T any](val T) *Future[T] {
	return Settled[T](val, nil)
}

// Failed returns a Future already settled with err and the zero value of T.
func Failed[T any](err error) *Future[T] {
	var zero T
	return Settled(zero, err)
}

// Settled returns a Future already settled with val and err.
func Settled[T any](val T, err error) *Future[T] {
	c := newCell[T]()
	c.set(val, err)
	return &Future[T]{cell: c}
}

// CompletedVoid returns an already-successful Future[Void].
func CompletedVoid() *Future[Void] {
	return Completed(Void{})
}

// FailedVoid returns an already-failed Future[Void].
func FailedVoid(err error) *Future[Void] {
	return Failed[Void](err)
}
