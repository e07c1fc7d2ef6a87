package combinator

import (
	"sync"

	"github.com/wrenfield/asyncrt/cache/lru"
	"github.com/wrenfield/asyncrt/future"
)

// Memo caches in-flight and completed Futures by key, so concurrent callers
// asking for the same key share a single Launch instead of each starting
// redundant work. It evicts least-recently-used keys once its capacity is
// reached, backed by cache/lru.
//
// This plays the role the b97tsk-async reference repo's Memo event type
// plays there, but expressed as a cache of Futures rather than as its own
// watchable primitive — consistent with this module's combinator-over-
// Future style.
type Memo[K comparable, V any] struct {
	mu    sync.Mutex
	cache *lru.Cache[K, *future.Future[V]]
}

// NewMemo creates a Memo that retains up to capacity keys.
func NewMemo[K comparable, V any](capacity int) *Memo[K, V] {
	return &Memo[K, V]{cache: lru.New[K, *future.Future[V]](capacity)}
}

// GetOrLaunch returns the cached Future for key if present, launching f on
// ex and caching the result otherwise. A failed Future is cached like any
// other result — callers that want failures retried should Forget the key
// themselves after observing the error.
func (m *Memo[K, V]) GetOrLaunch(key K, ex future.Executor, f func() (V, error)) *future.Future[V] {
	m.mu.Lock()
	if fut, ok := m.cache.Get(key); ok {
		m.mu.Unlock()
		return fut
	}
	fut := Launch(ex, f)
	m.cache.Put(key, fut)
	m.mu.Unlock()
	return fut
}

// Forget evicts key, so the next GetOrLaunch for it starts fresh work.
func (m *Memo[K, V]) Forget(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Delete(key)
}

// Len reports how many keys are currently cached.
func (m *Memo[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.Len()
}
