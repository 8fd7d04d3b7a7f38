package redis

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/histogo/blobstore"
	"github.com/redis/go-redis/v9"
)

// Store implements blobstore.Store on top of Redis string keys.
type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets an expiry on every written blob. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// NewStore creates a new Redis blob store.
// keyPrefix is prepended to all names (e.g. "histogo:").
func NewStore(client redis.UniversalClient, keyPrefix string, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: keyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

// Open opens a blob for reading. The value is fetched once; reads are served
// from memory.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return &redisBlob{data: data}, nil
}

// Put writes a blob. The write is atomic: readers see either the old value
// or the new one.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	return s.client.Set(ctx, s.key(name), data, s.ttl).Err()
}

// Create creates a blob for streaming writes. Data is buffered in memory and
// committed on Close.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return &redisWritableBlob{
		store: s,
		ctx:   ctx,
		name:  name,
	}, nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.client.Del(ctx, s.key(name)).Err()
}

// List returns all blob names with the given prefix, sorted. Keys are walked
// with SCAN, so large keyspaces do not block the server.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string

	iter := s.client.Scan(ctx, 0, s.key(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

// redisBlob implements blobstore.Blob over the fetched value.
type redisBlob struct {
	data []byte
}

func (b *redisBlob) Close() error {
	return nil
}

func (b *redisBlob) Size() int64 {
	return int64(len(b.data))
}

func (b *redisBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, blobstore.ErrNegativeOffset
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *redisBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 {
		return nil, blobstore.ErrNegativeOffset
	}
	if off >= int64(len(b.data)) {
		return nil, io.EOF
	}
	end := off + length
	if end > int64(len(b.data)) {
		end = int64(len(b.data))
	}
	return io.NopCloser(bytes.NewReader(b.data[off:end])), nil
}

// redisWritableBlob buffers writes and commits them as one SET on Close.
type redisWritableBlob struct {
	store  *Store
	ctx    context.Context
	name   string
	buf    bytes.Buffer
	closed bool
}

func (w *redisWritableBlob) Write(p []byte) (int, error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	return w.buf.Write(p)
}

func (w *redisWritableBlob) Sync() error {
	return nil
}

func (w *redisWritableBlob) Close() error {
	if w.closed {
		return io.ErrClosedPipe
	}
	w.closed = true
	return w.store.Put(w.ctx, w.name, w.buf.Bytes())
}
