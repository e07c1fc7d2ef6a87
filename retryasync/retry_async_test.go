package retryasync_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wrenfield/asyncrt/pool"
	"github.com/wrenfield/asyncrt/retry"
	"github.com/wrenfield/asyncrt/retryasync"
	"github.com/wrenfield/asyncrt/timer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRetryAsyncSucceedsWithoutRetrying(t *testing.T) {
	p := pool.NewWorkerPool(1)
	defer p.Close()
	clock := timer.NewAlarmClock()
	defer clock.Close()

	var calls atomic.Int32
	f := retryasync.RetryAsync(p, clock, retryasync.Options{}, func() (int, error) {
		calls.Add(1)
		return 7, nil
	})

	val, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, val)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryAsyncRetriesUntilSuccess(t *testing.T) {
	p := pool.NewWorkerPool(1)
	defer p.Close()
	clock := timer.NewAlarmClock()
	defer clock.Close()

	var calls atomic.Int32
	opts := retryasync.Options{
		MaxAttempts: 5,
		Strategy:    retry.FixedBackoff(5 * time.Millisecond),
	}
	f := retryasync.RetryAsync(p, clock, opts, func() (string, error) {
		n := calls.Add(1)
		if n < 3 {
			return "", errors.New("not yet")
		}
		return "done", nil
	})

	val, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, "done", val)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryAsyncGivesUpAfterMaxAttempts(t *testing.T) {
	p := pool.NewWorkerPool(1)
	defer p.Close()
	clock := timer.NewAlarmClock()
	defer clock.Close()

	wantErr := errors.New("always fails")
	var calls atomic.Int32
	opts := retryasync.Options{
		MaxAttempts: 3,
		Strategy:    retry.FixedBackoff(time.Millisecond),
	}
	f := retryasync.RetryAsync(p, clock, opts, func() (int, error) {
		calls.Add(1)
		return 0, wantErr
	})

	_, err := f.Get()
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryAsyncHonorsShouldRetry(t *testing.T) {
	p := pool.NewWorkerPool(1)
	defer p.Close()
	clock := timer.NewAlarmClock()
	defer clock.Close()

	fatalErr := errors.New("fatal")
	var calls atomic.Int32
	opts := retryasync.Options{
		MaxAttempts: 5,
		Strategy:    retry.FixedBackoff(time.Millisecond),
		ShouldRetry: func(err error) bool { return !errors.Is(err, fatalErr) },
	}
	f := retryasync.RetryAsync(p, clock, opts, func() (int, error) {
		calls.Add(1)
		return 0, fatalErr
	})

	_, err := f.Get()
	assert.ErrorIs(t, err, fatalErr)
	assert.Equal(t, int32(1), calls.Load())
}
