// Package combinator implements the continuation and loop combinators from
// spec.md §4.5: Launch, Then, ThenAsync, CatchAsync, and LoopAsync. Every
// combinator takes an explicit future.Executor and posts its continuation
// through it, so a continuation never runs on the thread that completed its
// input (spec.md §5's "deliberately shift continuation execution onto an
// explicit executor" rule).
//
// Adapted from the teacher repo's future/api.go (Submit/Then/AllOf) and
// grounded, for the pieces the teacher didn't have, on
// original_source/Continuations.h's launchAsync/addContinuation/
// addAsyncContinuation/catchAsync/executeAsyncLoop.
package combinator

import (
	"sync/atomic"

	"github.com/wrenfield/asyncrt/future"
	"github.com/wrenfield/asyncrt/rterrors"
)

// Launch runs f on ex and returns a Future for its result. A panic inside f
// is recovered and deposited as the returned Future's error, the same way a
// worker pool work item's panic is contained (spec.md §4.3's "a panicking
// item must not kill the worker thread").
func Launch[R any](ex future.Executor, f func() (R, error)) *future.Future[R] {
	p := future.NewPromise[R]()
	ex.Submit(func() {
		val, err := callProducer(f)
		p.Set(val, err)
	})
	return p.Future()
}

// Then attaches a synchronous continuation to in. If in completes with a
// value, f runs (on ex) with that value and its result becomes the returned
// Future's value or error. If in completes with an error, that error is
// forwarded verbatim and f never runs.
func Then[T, R any](ex future.Executor, in *future.Future[T], f func(T) (R, error)) *future.Future[R] {
	p := future.NewPromise[R]()
	in.Subscribe(func(val T, err error) {
		ex.Submit(func() {
			if err != nil {
				var zero R
				p.Set(zero, err)
				return
			}
			rval, rerr := callProducer(func() (R, error) { return f(val) })
			p.Set(rval, rerr)
		})
	})
	return p.Future()
}

// ThenAsync is like Then, but f itself starts an asynchronous operation and
// returns a Future[R] instead of computing R directly. The outer Future
// settles when the Future f returns settles. If f panics before returning a
// Future, that panic becomes the outer Future's error exactly as in Then.
func ThenAsync[T, R any](ex future.Executor, in *future.Future[T], f func(T) *future.Future[R]) *future.Future[R] {
	p := future.NewPromise[R]()
	in.Subscribe(func(val T, err error) {
		ex.Submit(func() {
			if err != nil {
				var zero R
				p.Set(zero, err)
				return
			}
			inner, ferr := callAsyncProducer(func() (*future.Future[R], error) { return f(val), nil })
			if ferr != nil {
				var zero R
				p.Set(zero, ferr)
				return
			}
			inner.Subscribe(func(rval R, rerr error) {
				p.Set(rval, rerr)
			})
		})
	})
	return p.Future()
}

// CatchAsync is the inverse of ThenAsync: it runs only when in ends in an
// error, giving f a chance to recover by returning a replacement Future. If
// in ends in a value, that value is forwarded unchanged and f never runs.
func CatchAsync[T any](ex future.Executor, in *future.Future[T], f func(error) *future.Future[T]) *future.Future[T] {
	p := future.NewPromise[T]()
	in.Subscribe(func(val T, err error) {
		ex.Submit(func() {
			if err == nil {
				p.Set(val, nil)
				return
			}
			inner, ferr := callAsyncProducer(func() (*future.Future[T], error) { return f(err), nil })
			if ferr != nil {
				var zero T
				p.Set(zero, ferr)
				return
			}
			inner.Subscribe(func(rval T, rerr error) {
				p.Set(rval, rerr)
			})
		})
	})
	return p.Future()
}

// LoopAsync implements the tail-recursive asynchronous loop from spec.md
// §4.5: starting from seed, while predicate(current) is true, it runs
// body(current) and takes the resulting Future's value as the new current.
// When predicate(current) is false, the returned Future settles with
// current. Any error from body short-circuits the loop.
//
// Each iteration's continuation is posted back onto ex rather than called
// directly, so stack depth stays O(1) regardless of iteration count — the
// same discipline as original_source/Continuations.h's auxLoop, required by
// spec.md's stack-safety property (a million-iteration loop must not
// overflow the stack).
func LoopAsync[R any](ex future.Executor, predicate func(R) bool, body func(R) *future.Future[R], seed R) *future.Future[R] {
	p := future.NewPromise[R]()
	var step func(current R)
	step = func(current R) {
		ok, perr := callPredicate(predicate, current)
		if perr != nil {
			var zero R
			p.Set(zero, perr)
			return
		}
		if !ok {
			p.Set(current, nil)
			return
		}

		next, berr := callAsyncProducer(func() (*future.Future[R], error) { return body(current), nil })
		if berr != nil {
			var zero R
			p.Set(zero, berr)
			return
		}
		next.Subscribe(func(val R, err error) {
			if err != nil {
				var zero R
				p.Set(zero, err)
				return
			}
			ex.Submit(func() { step(val) })
		})
	}
	ex.Submit(func() { step(seed) })
	return p.Future()
}

// All fan-in's a slice of futures into a Future of their values, in
// argument order. It settles with the first error observed among fs (only
// the first to arrive wins, guarded by an atomic CAS) and otherwise with
// every value once all of fs have completed successfully.
//
// Not named by spec.md's combinator list, but present in the teacher's own
// future/api.go as AllOf; kept under the name All for symmetry with
// Launch/Then/ThenAsync/CatchAsync/LoopAsync.
func All[T any](fs ...*future.Future[T]) *future.Future[[]T] {
	if len(fs) == 0 {
		return future.Completed[[]T](nil)
	}

	p := future.NewPromise[[]T]()
	var settled atomic.Bool
	remaining := atomic.Int32{}
	remaining.Store(int32(len(fs)))
	results := make([]T, len(fs))

	for i, f := range fs {
		i := i
		f.Subscribe(func(val T, err error) {
			if err != nil {
				if settled.CompareAndSwap(false, true) {
					var zero []T
					p.Set(zero, err)
				}
				return
			}
			results[i] = val
			if remaining.Add(-1) == 0 && settled.CompareAndSwap(false, true) {
				p.Set(results, nil)
			}
		})
	}
	return p.Future()
}

func callProducer[R any](f func() (R, error)) (val R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = rterrors.NewProducerPanic(r, 1)
		}
	}()
	return f()
}

func callAsyncProducer[R any](f func() (*future.Future[R], error)) (fut *future.Future[R], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = rterrors.NewProducerPanic(r, 1)
		}
	}()
	return f()
}

func callPredicate[R any](predicate func(R) bool, val R) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = rterrors.NewProducerPanic(r, 1)
		}
	}()
	return predicate(val), nil
}
