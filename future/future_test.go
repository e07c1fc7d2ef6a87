package future_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrenfield/asyncrt/future"
)

func TestPromiseSetAndGet(t *testing.T) {
	p := future.NewPromise[int]()
	f := p.Future()

	p.Set(42, nil)

	val, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, val)
}

func TestPromiseSetTwicePanics(t *testing.T) {
	p := future.NewPromise[int]()
	p.Set(1, nil)

	assert.Panics(t, func() {
		p.Set(2, nil)
	})
}

func TestPromiseTrySetTwiceIsSilent(t *testing.T) {
	p := future.NewPromise[int]()
	assert.True(t, p.TrySet(1, nil))
	assert.False(t, p.TrySet(2, nil))

	val, err := p.Future().Get()
	require.NoError(t, err)
	assert.Equal(t, 1, val)
}

func TestFutureGetBlocksUntilSet(t *testing.T) {
	p := future.NewPromise[string]()
	f := p.Future()

	done := make(chan struct{})
	var got string
	go func() {
		var err error
		got, err = f.Get()
		assert.NoError(t, err)
		close(done)
	}()

	assert.False(t, f.IsDone())
	p.Set("hello", nil)
	<-done
	assert.Equal(t, "hello", got)
}

func TestFutureGetPropagatesError(t *testing.T) {
	p := future.NewPromise[int]()
	wantErr := errors.New("boom")
	p.Set(0, wantErr)

	_, err := p.Future().Get()
	assert.ErrorIs(t, err, wantErr)
}

func TestSubscribeBeforeCompletion(t *testing.T) {
	p := future.NewPromise[int]()
	f := p.Future()

	var called atomic.Bool
	f.Subscribe(func(val int, err error) {
		called.Store(true)
		assert.Equal(t, 7, val)
		assert.NoError(t, err)
	})

	assert.False(t, called.Load())
	p.Set(7, nil)
	assert.True(t, called.Load())
}

func TestSubscribeFiresInRegistrationOrder(t *testing.T) {
	p := future.NewPromise[int]()
	f := p.Future()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		f.Subscribe(func(int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	p.Set(0, nil)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestSubscribeAfterCompletionRunsImmediately(t *testing.T) {
	f := future.Completed(9)

	var called bool
	f.Subscribe(func(val int, err error) {
		called = true
		assert.Equal(t, 9, val)
	})
	assert.True(t, called)
}

func TestSubscribeRunsExactlyOnceUnderRace(t *testing.T) {
	// Regression test for a bug where a callback racing its own
	// subscription against the completing goroutine's drain loop could
	// run twice.
	for i := 0; i < 200; i++ {
		p := future.NewPromise[int]()
		f := p.Future()

		var calls atomic.Int32
		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			p.Set(i, nil)
		}()
		go func() {
			defer wg.Done()
			f.Subscribe(func(int, error) {
				calls.Add(1)
			})
		}()

		wg.Wait()
		f.Wait()
		assert.Equal(t, int32(1), calls.Load())
	}
}

func TestSubscribeCompletionReportsOnlyError(t *testing.T) {
	f := future.Failed[int](errors.New("fail"))

	var gotErr error
	f.SubscribeCompletion(func(err error) {
		gotErr = err
	})
	assert.EqualError(t, gotErr, "fail")
}

func TestCompletedVoid(t *testing.T) {
	f := future.CompletedVoid()
	val, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, future.Void{}, val)
}

func TestFailedVoid(t *testing.T) {
	wantErr := errors.New("void failure")
	f := future.FailedVoid(wantErr)
	_, err := f.Get()
	assert.ErrorIs(t, err, wantErr)
}

func TestGoExecutorSubmitRuns(t *testing.T) {
	done := make(chan struct{})
	future.GoExecutor{}.Submit(func() {
		close(done)
	})
	<-done
}

func TestExecutorFunc(t *testing.T) {
	var ranOn string
	ex := future.ExecutorFunc(func(f func()) {
		ranOn = "custom"
		f()
	})
	ex.Submit(func() {})
	assert.Equal(t, "custom", ranOn)
}
