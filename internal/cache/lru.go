package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/histogo/resource"
)

// node is an entry in the intrusive LRU list. root.next is the most
// recently used entry, root.prev the next eviction victim.
type node struct {
	prev, next *node
	name       string
	value      []byte
}

// LRUCache is a byte-bounded ObjectCache with least-recently-used eviction.
// With a resource.Controller attached, cached bytes count against its buffer
// budget, so the cache yields memory to payload rendering instead of
// competing with it.
type LRUCache struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	nodes    map[string]*node
	root     node
	rc       *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

// NewLRUCache creates a cache holding at most capacity bytes. rc may be nil.
func NewLRUCache(capacity int64, rc *resource.Controller) *LRUCache {
	c := &LRUCache{
		capacity: capacity,
		nodes:    make(map[string]*node),
		rc:       rc,
	}
	c.root.prev = &c.root
	c.root.next = &c.root
	return c
}

func (c *LRUCache) unlink(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *LRUCache) pushFront(n *node) {
	n.prev = &c.root
	n.next = c.root.next
	n.prev.next = n
	n.next.prev = n
}

// Get returns the cached object and marks it recently used.
func (c *LRUCache) Get(ctx context.Context, name string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.nodes[name]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.unlink(n)
	c.pushFront(n)
	return n.value, true
}

// Set caches an object. Objects larger than the whole cache are skipped, as
// are objects the controller has no budget for; an update whose growth is
// denied keeps the previous value.
func (c *LRUCache) Set(ctx context.Context, name string, b []byte) {
	size := int64(len(b))
	if size > c.capacity {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.nodes[name]; ok {
		c.update(n, b, size)
		return
	}

	// Make room first, so freed bytes are back in the controller before the
	// new acquisition.
	for c.size+size > c.capacity && c.evictOldest() {
	}
	if c.rc != nil && !c.rc.TryAcquireBuffer(size) {
		return
	}

	n := &node{name: name, value: b}
	c.nodes[name] = n
	c.pushFront(n)
	c.size += size
}

func (c *LRUCache) update(n *node, b []byte, size int64) {
	c.unlink(n)
	c.pushFront(n)

	old := int64(len(n.value))
	if c.rc != nil {
		switch {
		case size > old:
			if !c.rc.TryAcquireBuffer(size - old) {
				return
			}
		case size < old:
			c.rc.ReleaseBuffer(old - size)
		}
	}

	n.value = b
	c.size += size - old
	for c.size > c.capacity && c.evictOldest() {
	}
}

// evictOldest drops the least recently used entry, reporting false when the
// cache is empty.
func (c *LRUCache) evictOldest() bool {
	victim := c.root.prev
	if victim == &c.root {
		return false
	}
	c.remove(victim)
	return true
}

func (c *LRUCache) remove(n *node) {
	c.unlink(n)
	delete(c.nodes, n.name)
	c.size -= int64(len(n.value))
	if c.rc != nil {
		c.rc.ReleaseBuffer(int64(len(n.value)))
	}
}

// Invalidate removes entries matching the predicate.
func (c *LRUCache) Invalidate(predicate func(name string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for n := c.root.next; n != &c.root; {
		next := n.next
		if predicate(n.name) {
			c.remove(n)
		}
		n = next
	}
}

func (c *LRUCache) Close() error { return nil }

// Stats returns lifetime hit and miss counts.
func (c *LRUCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the cached bytes.
func (c *LRUCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
