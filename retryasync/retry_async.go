// Package retryasync retries a fallible operation without blocking a
// goroutine on the backoff sleep. It is not part of the core runtime in
// spec.md; it exists to give retry.RetryStrategy (carried over from the
// teacher, previously only used by retry.Do's blocking time.After) an
// async home that composes with future.Future and timer.AlarmClock
// instead of synchronously sleeping the calling goroutine.
package retryasync

import (
	"time"

	"github.com/wrenfield/asyncrt/future"
	"github.com/wrenfield/asyncrt/retry"
	"github.com/wrenfield/asyncrt/timer"
)

// Options configures RetryAsync. The zero value makes up to 3 attempts in
// total with a 100ms fixed backoff, retrying every error, matching
// retry.Do's own defaults.
type Options struct {
	MaxAttempts int
	Strategy    retry.RetryStrategy
	ShouldRetry func(err error) bool
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Strategy == nil {
		o.Strategy = retry.FixedBackoff(100 * time.Millisecond)
	}
	if o.ShouldRetry == nil {
		o.ShouldRetry = func(error) bool { return true }
	}
	return o
}

// RetryAsync calls f on ex, and on failure schedules the next attempt
// through clock after Strategy's backoff instead of calling f again
// inline. The returned Future settles with the first success, or with
// the last error once MaxAttempts is exhausted or ShouldRetry declines to
// continue.
//
// Every attempt after the first is reached through clock.SetTimer and
// ex.Submit rather than a direct recursive call, so RetryAsync is stack-
// safe for an arbitrarily large MaxAttempts for the same reason
// combinator.LoopAsync is: each step crosses an asynchronous boundary
// before the next one begins.
func RetryAsync[T any](ex future.Executor, clock *timer.AlarmClock, opts Options, f func() (T, error)) *future.Future[T] {
	opts = opts.withDefaults()
	p := future.NewPromise[T]()

	var attempt func(n int)
	attempt = func(n int) {
		ex.Submit(func() {
			val, err := f()
			if err == nil {
				p.Set(val, nil)
				return
			}
			if n == opts.MaxAttempts-1 || !opts.ShouldRetry(err) {
				p.Set(val, err)
				return
			}
			backoff := opts.Strategy.NextBackoff(n)
			clock.SetTimer(time.Now().Add(backoff), func() {
				attempt(n + 1)
			})
		})
	}
	attempt(0)

	return p.Future()
}
