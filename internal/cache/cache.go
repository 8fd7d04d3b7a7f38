package cache

import "context"

// ObjectCache memoizes immutable payload objects by name. Values go in and
// come out as raw byte slices; neither side may mutate them afterwards.
//
// Get and Set take a context because a distributed implementation may need
// one. The in-tree LRU caches never block on it.
type ObjectCache interface {
	Get(ctx context.Context, name string) (b []byte, ok bool)
	Set(ctx context.Context, name string, b []byte)

	// Invalidate drops every entry whose name the predicate accepts.
	Invalidate(predicate func(name string) bool)

	// Stats reports lifetime hit and miss counts.
	Stats() (hits, misses int64)

	Close() error
}
