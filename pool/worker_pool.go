// Package pool implements the fixed-size worker pool executor from
// spec.md §4.3, grounded on original_source/ThreadPool.{h,cpp}: a FIFO
// queue of work items protected by a mutex and drained by N worker
// goroutines parked on a condition variable when idle.
package pool

import (
	"sync"

	"github.com/wrenfield/asyncrt/daemon"
	"github.com/wrenfield/asyncrt/future"
	"github.com/wrenfield/asyncrt/routine"
)

// WorkerPool is a fixed-size, FIFO work-stealing-free executor. It
// implements future.Executor.
type WorkerPool struct {
	mu     sync.Mutex
	cond   sync.Cond
	items  []func()
	closed *daemon.OnceCloser
	done   chan struct{}

	closing bool
	wg      sync.WaitGroup
}

// NewWorkerPool spawns n worker goroutines and returns the pool that feeds
// them. n is typically 1 (serialize continuations onto a single thread) or
// a larger fixed count; the pool never grows or shrinks after construction.
func NewWorkerPool(n int) *WorkerPool {
	if n <= 0 {
		panic("pool: NewWorkerPool requires n > 0")
	}
	p := &WorkerPool{
		closed: &daemon.OnceCloser{},
		done:   make(chan struct{}),
	}
	p.cond.L = &p.mu
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

// Submit appends f to the FIFO queue and wakes one idle worker. Submit
// never blocks beyond acquiring the pool's mutex, per future.Executor's
// contract.
//
// Submit after Close is accepted without error — per spec.md §4.3, items
// queued before shutdown that are never dequeued are simply discarded, not
// rejected — but f is then guaranteed never to run.
func (p *WorkerPool) Submit(f func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closing {
		return
	}
	p.items = append(p.items, f)
	p.cond.Signal()
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if len(p.items) > 0 {
			item := p.items[0]
			p.items = p.items[1:]
			p.mu.Unlock()
			routine.RunSafe(item)
			p.mu.Lock()
			continue
		}
		if p.closing {
			return
		}
		p.cond.Wait()
	}
}

// Close sets the shutdown flag, wakes every idle worker, and blocks until
// all of them have returned. Work items still queued at the moment Close
// is called are discarded — spec.md §4.3 explicitly leaves their side
// effects unreliable, and items already dequeued by a worker run to
// completion before that worker exits.
//
// Close is idempotent: calling it more than once is a no-op after the
// first call returns.
func (p *WorkerPool) Close() error {
	return p.closed.CloseOnce(func() error {
		p.mu.Lock()
		p.closing = true
		p.items = nil
		p.cond.Broadcast()
		p.mu.Unlock()
		p.wg.Wait()
		close(p.done)
		return nil
	})
}

// Done returns a channel that closes once Close has finished joining every
// worker goroutine. Useful in tests driven by goleak, which need to wait
// for a pool's goroutines to actually exit before asserting no leaks.
func (p *WorkerPool) Done() <-chan struct{} {
	return p.done
}

var _ future.Executor = (*WorkerPool)(nil)
