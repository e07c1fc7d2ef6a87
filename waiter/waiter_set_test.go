package waiter_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/wrenfield/asyncrt/future"
	"github.com/wrenfield/asyncrt/waiter"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWaitForAllReturnsImmediatelyWhenEmpty(t *testing.T) {
	w := waiter.NewWaiterSet()

	done := make(chan struct{})
	go func() {
		w.WaitForAll()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForAll on an empty set should not block")
	}
}

func TestWaitForAllBlocksUntilEveryFutureCompletes(t *testing.T) {
	w := waiter.NewWaiterSet()

	p1 := future.NewPromise[int]()
	p2 := future.NewPromise[string]()
	waiter.Add(w, p1.Future())
	waiter.Add(w, p2.Future())

	assert.Equal(t, 2, w.Active())

	done := make(chan struct{})
	go func() {
		w.WaitForAll()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitForAll returned before all futures settled")
	case <-time.After(30 * time.Millisecond):
	}

	p1.Set(1, nil)

	select {
	case <-done:
		t.Fatal("WaitForAll returned before all futures settled")
	case <-time.After(30 * time.Millisecond):
	}

	p2.Set("ok", errors.New("irrelevant to WaitForAll"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForAll never returned after every future settled")
	}
	assert.Equal(t, 0, w.Active())
}

func TestAddReusesFreedSlots(t *testing.T) {
	w := waiter.NewWaiterSet()

	p1 := future.NewPromise[int]()
	waiter.Add(w, p1.Future())
	p1.Set(1, nil)

	// Give the completion callback a chance to release the slot.
	for i := 0; i < 100 && w.Active() != 0; i++ {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 0, w.Active())

	p2 := future.NewPromise[int]()
	waiter.Add(w, p2.Future())
	assert.Equal(t, 1, w.Active())
	p2.Set(2, nil)
}
