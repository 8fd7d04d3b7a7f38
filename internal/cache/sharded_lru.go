package cache

import (
	"context"
	"hash/maphash"

	"github.com/hupe1980/histogo/resource"
)

// shardCount must stay a power of two so the hash can be masked instead of
// divided.
const shardCount = 64

// ShardedLRUCache spreads entries over independent LRUCache shards to keep
// lock contention down when many consumers read payload objects at once.
type ShardedLRUCache struct {
	shards [shardCount]*LRUCache
	seed   maphash.Seed
}

// NewShardedLRUCache splits capacity evenly across the shards. rc may be
// nil; when set, all shards draw on the same buffer budget.
func NewShardedLRUCache(capacity int64, rc *resource.Controller) *ShardedLRUCache {
	perShard := capacity / shardCount
	if perShard < 1 {
		perShard = 1
	}

	s := &ShardedLRUCache{seed: maphash.MakeSeed()}
	for i := range s.shards {
		s.shards[i] = NewLRUCache(perShard, rc)
	}
	return s
}

func (s *ShardedLRUCache) shard(name string) *LRUCache {
	return s.shards[maphash.String(s.seed, name)&(shardCount-1)]
}

func (s *ShardedLRUCache) Get(ctx context.Context, name string) ([]byte, bool) {
	return s.shard(name).Get(ctx, name)
}

func (s *ShardedLRUCache) Set(ctx context.Context, name string, b []byte) {
	s.shard(name).Set(ctx, name, b)
}

// Invalidate removes matching entries from every shard. Retention pruning
// calls this rarely, so the shards are walked one after another.
func (s *ShardedLRUCache) Invalidate(predicate func(name string) bool) {
	for _, shard := range s.shards {
		shard.Invalidate(predicate)
	}
}

func (s *ShardedLRUCache) Close() error {
	for _, shard := range s.shards {
		if err := shard.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Stats sums hit and miss counts over all shards.
func (s *ShardedLRUCache) Stats() (hits, misses int64) {
	for _, shard := range s.shards {
		h, m := shard.Stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// Size sums the cached bytes over all shards.
func (s *ShardedLRUCache) Size() int64 {
	var total int64
	for _, shard := range s.shards {
		total += shard.Size()
	}
	return total
}
