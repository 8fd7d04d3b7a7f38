package cache

import (
	"context"
	"testing"

	"github.com/hupe1980/histogo/resource"
	"github.com/stretchr/testify/assert"
)

func TestLRU_EdgeCases(t *testing.T) {
	rc := resource.NewController(resource.Config{BufferLimitBytes: 100})
	c := NewLRUCache(50, rc)
	ctx := context.Background()

	// Object larger than capacity is not cached.
	c.Set(ctx, "big", make([]byte, 60))
	_, ok := c.Get(ctx, "big")
	assert.False(t, ok)

	// Update existing object, growing and shrinking.
	c.Set(ctx, "obj", make([]byte, 10))
	assert.Equal(t, int64(10), c.Size())

	c.Set(ctx, "obj", make([]byte, 20))
	assert.Equal(t, int64(20), c.Size())

	c.Set(ctx, "obj", make([]byte, 5))
	assert.Equal(t, int64(5), c.Size())

	// An update the controller refuses keeps the old value.
	rc2 := resource.NewController(resource.Config{BufferLimitBytes: 10})
	c2 := NewLRUCache(50, rc2)
	c2.Set(ctx, "obj", make([]byte, 8))
	c2.Set(ctx, "obj", make([]byte, 12))

	val, ok := c2.Get(ctx, "obj")
	assert.True(t, ok)
	assert.Len(t, val, 8)
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRUCache(30, nil)
	ctx := context.Background()

	c.Set(ctx, "a", make([]byte, 10))
	c.Set(ctx, "b", make([]byte, 10))
	c.Set(ctx, "c", make([]byte, 10))

	// Touch "a" so "b" is the least recently used.
	_, _ = c.Get(ctx, "a")

	c.Set(ctx, "d", make([]byte, 10))

	_, ok := c.Get(ctx, "b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, int64(30), c.Size())
}

func TestLRU_EvictionReleasesBudget(t *testing.T) {
	rc := resource.NewController(resource.Config{BufferLimitBytes: 30})
	c := NewLRUCache(20, rc)
	ctx := context.Background()

	c.Set(ctx, "a", make([]byte, 10))
	c.Set(ctx, "b", make([]byte, 10))
	assert.Equal(t, int64(20), rc.BufferUsage())

	// Adding a third entry evicts the oldest and hands its bytes back.
	c.Set(ctx, "c", make([]byte, 10))
	assert.Equal(t, int64(20), rc.BufferUsage())

	c.Invalidate(func(string) bool { return true })
	assert.Equal(t, int64(0), rc.BufferUsage())
	assert.Equal(t, int64(0), c.Size())
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRUCache(100, nil)
	ctx := context.Background()

	c.Set(ctx, "obj", []byte{1})
	c.Get(ctx, "obj")   // Hit
	c.Get(ctx, "other") // Miss

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRU_Invalidate(t *testing.T) {
	c := NewLRUCache(100, nil)
	ctx := context.Background()

	c.Set(ctx, "payloads/a", []byte("a"))
	c.Set(ctx, "payloads/b", []byte("b"))
	c.Set(ctx, "CURRENT", []byte("c"))

	c.Invalidate(func(name string) bool {
		return name != "CURRENT"
	})

	_, ok := c.Get(ctx, "payloads/a")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "CURRENT")
	assert.True(t, ok)
}
