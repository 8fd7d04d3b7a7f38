package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/histogo/internal/cache"
)

// DefaultMaxCachedObjectBytes is the per-object size ceiling for caching.
// Payload envelopes are small; anything past this is streamed uncached.
const DefaultMaxCachedObjectBytes = 4 << 20

// CachingStore wraps a Store and serves repeated reads of immutable
// objects from an in-memory cache. It is meant for consumers that poll a
// remote store, where the current pointer and recent payload objects get
// fetched over and over.
type CachingStore struct {
	inner    Store
	cache    cache.ObjectCache
	maxBytes int64
}

// NewCachingStore layers an object cache over inner. maxObjectBytes caps
// the size of objects admitted to the cache and defaults to
// DefaultMaxCachedObjectBytes if <= 0.
func NewCachingStore(inner Store, c cache.ObjectCache, maxObjectBytes int64) *CachingStore {
	if maxObjectBytes <= 0 {
		maxObjectBytes = DefaultMaxCachedObjectBytes
	}
	return &CachingStore{
		inner:    inner,
		cache:    c,
		maxBytes: maxObjectBytes,
	}
}

// Open opens a blob for reading. Small objects are fetched whole on first
// access and served from memory afterwards; larger objects pass through to
// the inner store.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if data, ok := s.cache.Get(ctx, name); ok {
		return &memoryBlob{data: data}, nil
	}

	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	if b.Size() > s.maxBytes {
		return b, nil
	}

	data, err := readBlob(ctx, b)
	closeErr := b.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}

	s.cache.Set(ctx, name, data)
	return &memoryBlob{data: data}, nil
}

// Create passes through to the inner store. The name is invalidated up
// front since a rewrite changes content the cache may still hold.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	s.invalidate(name)
	return s.inner.Create(ctx, name)
}

// Put writes a blob atomically and drops any cached copy.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Delete removes a blob and drops any cached copy.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List passes through to the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Stats returns the hit/miss counters of the underlying cache.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.cache.Stats()
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(key string) bool {
		return key == name
	})
}

// readBlob reads the full contents of an open blob.
func readBlob(ctx context.Context, b Blob) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		mapped, err := m.Bytes()
		if err == nil {
			out := make([]byte, len(mapped))
			copy(out, mapped)
			return out, nil
		}
	}

	size := b.Size()
	if size == 0 {
		return nil, nil
	}

	data := make([]byte, size)
	n, err := b.ReadAt(ctx, data, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return data[:n], nil
}
