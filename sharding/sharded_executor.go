// Package sharding fans a keyed workload out across several fixed-size
// worker pools, routing each key to the same pool every time via a
// consistent-hash ring. It is not part of the core runtime in spec.md;
// it exercises consisthash.Ring (carried over from the teacher) against
// pool.WorkerPool so that continuations for a given key always land on one
// pool; with one worker per shard they serialize, which matters for callers
// that need per-key ordering without paying for a single global worker pool.
package sharding

import (
	"strconv"

	"github.com/wrenfield/asyncrt/consisthash"
	"github.com/wrenfield/asyncrt/pool"
)

// ShardedExecutor routes SubmitKeyed calls to one of its underlying WorkerPools,
// keyed by an arbitrary string. The same key always maps to the same
// shard for the lifetime of the ShardedExecutor.
type ShardedExecutor struct {
	shards []*pool.WorkerPool
	ring   *consisthash.Ring[int]
}

// NewShardedExecutor creates shards shards, each a pool.WorkerPool with
// workersPerShard workers,
// and arranges them on a consistent-hash ring with replicas virtual nodes
// per shard (150-200 is a reasonable default per consisthash's own doc
// comment).
func NewShardedExecutor(shards int, workersPerShard int, replicas int) *ShardedExecutor {
	if shards <= 0 {
		panic("sharding: NewShardedExecutor requires shards > 0")
	}
	se := &ShardedExecutor{
		shards: make([]*pool.WorkerPool, shards),
	}
	ring := consisthash.NewRing[int](replicas, func(shard int) string {
		return strconv.Itoa(shard)
	})
	for i := 0; i < shards; i++ {
		se.shards[i] = pool.NewWorkerPool(workersPerShard)
		ring.Add(i)
	}
	se.ring = ring
	return se
}

// SubmitKeyed routes f to the shard owning key. Two calls with the same
// key are always handled by the same shard; when workersPerShard is 1 they
// therefore run in submission order relative to each other.
func (se *ShardedExecutor) SubmitKeyed(key string, f func()) {
	shard, ok := se.ring.Get(key)
	if !ok {
		return
	}
	se.shards[shard].Submit(f)
}

// Shard returns the future.Executor for key's shard directly, for callers
// that want to pass it to a combinator rather than call SubmitKeyed.
func (se *ShardedExecutor) Shard(key string) *pool.WorkerPool {
	shard, ok := se.ring.Get(key)
	if !ok {
		return nil
	}
	return se.shards[shard]
}

// Close closes every shard and waits for all of their workers to exit.
func (se *ShardedExecutor) Close() error {
	var first error
	for _, s := range se.shards {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
