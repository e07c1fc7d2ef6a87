// Package waiter implements the fire-and-forget future tracker from
// spec.md §4.6, grounded on original_source/FutureWaiter.{h,cpp}: a
// reusable slot array marks a slot in use for each tracked Future until it
// completes, then frees the slot and, once every slot is inactive, wakes
// anyone blocked in WaitForAll. A slot holds only its in-use flag, not a
// reference to the Future.
package waiter

import (
	"sync"

	"github.com/wrenfield/asyncrt/future"
)

// WaiterSet tracks "fire and forget" Futures — the kind whose result the
// caller doesn't need, but whose completion the caller wants to be able to
// wait for collectively, e.g. before process shutdown.
type WaiterSet struct {
	mu     sync.Mutex
	cond   sync.Cond
	slots  []slot
	active int
}

type slot struct {
	inUse bool
}

// NewWaiterSet creates an empty WaiterSet.
func NewWaiterSet() *WaiterSet {
	w := &WaiterSet{}
	w.cond.L = &w.mu
	return w
}

// Add tracks f until it completes. It reuses an inactive slot if one is
// available, or appends a new one otherwise, mirroring
// FutureWaiter::addToWaitList's linear scan for a free slot. The slot
// records no reference to f; f's completion callback frees it by index.
//
// Add is a package-level generic function rather than a method on
// WaiterSet, because Go does not let a method introduce its own type
// parameter: a single WaiterSet must be able to track Futures of different
// element types side by side, exactly as FutureWaiter.h's template member
// function does in the C++ original.
func Add[T any](w *WaiterSet, f *future.Future[T]) {
	w.mu.Lock()
	index := -1
	for i, s := range w.slots {
		if !s.inUse {
			index = i
			break
		}
	}
	if index < 0 {
		index = len(w.slots)
		w.slots = append(w.slots, slot{})
	}
	w.slots[index].inUse = true
	w.active++
	w.mu.Unlock()

	f.SubscribeCompletion(func(error) {
		w.release(index)
	})
}

func (w *WaiterSet) release(index int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.slots[index].inUse {
		return
	}
	w.slots[index].inUse = false
	w.active--
	if w.active == 0 {
		w.cond.Broadcast()
	}
}

// WaitForAll blocks until every Future added via Add has completed.
func (w *WaiterSet) WaitForAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.active != 0 {
		w.cond.Wait()
	}
}

// Active returns the number of Futures currently tracked and not yet
// completed.
func (w *WaiterSet) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}
