package future

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

const (
	cellPending uint32 = iota
	cellSettling
	cellDone
)

// cell is the shared state backing a Promise/Future pair: a one-shot,
// single-assignment slot for a value of type T or an error.
//
// Completion is lock-free: the state transitions via a single CAS, and
// callbacks are pushed onto a lock-free stack that set() drains once the
// transition succeeds. No cell lock is ever held while invoking user code —
// set() unwinds the stack and calls each callback after the CAS has already
// made the cell terminal.
type cell[T any] struct {
	noCopy noCopy

	state atomic.Uint32
	done  chan struct{}
	once  sync.Once

	val T
	err error

	stack unsafe.Pointer // *callbackNode[T]
}

func newCell[T any]() *cell[T] {
	return &cell[T]{}
}

func (c *cell[T]) lazyInitDone() {
	c.once.Do(func() {
		c.done = make(chan struct{})
	})
}

// set attempts the cell's single Pending -> Done transition. Returns false
// if the cell was already terminal. Promise.Set and Promise.TrySet both
// call this; they differ only in how they react to a false return (panic
// vs. silent no-op), which is the duplicate-set policy spec.md I1 leaves
// to the implementation.
func (c *cell[T]) set(val T, err error) bool {
	if !c.state.CompareAndSwap(cellPending, cellSettling) {
		return false
	}
	c.val = val
	c.err = err
	c.state.Store(cellDone)

	c.lazyInitDone()
	close(c.done)

	// The stack links callbacks LIFO, most recently registered on top, but
	// I2 requires callbacks to fire in registration order. Unwind the whole
	// stack first, then run the collected nodes oldest-to-newest, i.e. in
	// the reverse of pop order.
	var pending []*callbackNode[T]
	for {
		head := (*callbackNode[T])(atomic.LoadPointer(&c.stack))
		if head == nil {
			break
		}
		if atomic.CompareAndSwapPointer(&c.stack, unsafe.Pointer(head), unsafe.Pointer(head.next)) {
			pending = append(pending, head)
			head.next = nil
		}
	}
	for i := len(pending) - 1; i >= 0; i-- {
		pending[i].run(val, err)
	}
	return true
}

func (c *cell[T]) get() (T, error) {
	if c.isDone() {
		return c.val, c.err
	}
	c.lazyInitDone()
	<-c.done
	return c.val, c.err
}

func (c *cell[T]) wait() {
	if c.isDone() {
		return
	}
	c.lazyInitDone()
	<-c.done
}

// addCallback appends cb to the callback list (I2: append order is
// preserved; each callback runs exactly once). If the cell is already
// terminal, cb runs synchronously on the calling thread before addCallback
// returns (I3).
func (c *cell[T]) addCallback(cb func(T, error)) {
	node := &callbackNode[T]{fn: cb}
	for {
		old := (*callbackNode[T])(atomic.LoadPointer(&c.stack))

		if c.isDone() {
			cb(c.val, c.err)
			return
		}

		node.next = old
		if atomic.CompareAndSwapPointer(&c.stack, unsafe.Pointer(old), unsafe.Pointer(node)) {
			// The cell may have become terminal, and its drain loop may
			// already have observed a nil stack, between our isDone()
			// check above and this CAS succeeding. Re-check and fire
			// directly if so — set()'s drain loop only ever sees nodes
			// that were linked before it started draining.
			if c.isDone() {
				node.run(c.val, c.err)
			}
			return
		}
	}
}

func (c *cell[T]) isPending() bool {
	return c.state.Load() == cellPending
}

func (c *cell[T]) isDone() bool {
	return c.state.Load() == cellDone
}

type callbackNode[T any] struct {
	once sync.Once

	fn   func(T, error)
	next *callbackNode[T]
}

func (n *callbackNode[T]) run(val T, err error) {
	n.once.Do(func() {
		n.fn(val, err)
	})
}

// noCopy can be embedded into a struct that must not be copied after first
// use. go vet's -copylocks check flags any copy once this is embedded.
//
// See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
