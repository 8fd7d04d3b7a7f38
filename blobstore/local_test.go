package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	return store
}

func TestLocalStore_CreateThenOpen(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	w, err := store.Create(ctx, "payloads/00000001")
	require.NoError(t, err)

	_, err = w.Write([]byte("sampled "))
	require.NoError(t, err)
	_, err = w.Write([]byte("latencies"))
	require.NoError(t, err)

	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	blob, err := store.Open(ctx, "payloads/00000001")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(len("sampled latencies")), blob.Size())

	p := make([]byte, 9)
	n, err := blob.ReadAt(ctx, p, 8)
	require.NoError(t, err)
	assert.Equal(t, "latencies", string(p[:n]))
}

func TestLocalStore_CreateIsInvisibleUntilClose(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	w, err := store.Create(ctx, "payloads/pending")
	require.NoError(t, err)

	_, err = w.Write([]byte("half written"))
	require.NoError(t, err)

	// The write is still parked in a temp file.
	_, err = store.Open(ctx, "payloads/pending")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Close())

	blob, err := store.Open(ctx, "payloads/pending")
	require.NoError(t, err)
	require.NoError(t, blob.Close())
}

func TestLocalStore_OpenMissing(t *testing.T) {
	store := newTestLocalStore(t)

	_, err := store.Open(context.Background(), "payloads/no-such")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_ReadAt(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	require.NoError(t, store.Put(ctx, "histogram.bin", []byte("0123456789")))

	blob, err := store.Open(ctx, "histogram.bin")
	require.NoError(t, err)
	defer blob.Close()

	t.Run("interior", func(t *testing.T) {
		p := make([]byte, 4)
		n, err := blob.ReadAt(ctx, p, 3)
		require.NoError(t, err)
		assert.Equal(t, "3456", string(p[:n]))
	})

	t.Run("clipped at end", func(t *testing.T) {
		p := make([]byte, 4)
		n, err := blob.ReadAt(ctx, p, 8)
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, "89", string(p[:n]))
	})

	t.Run("empty buffer", func(t *testing.T) {
		n, err := blob.ReadAt(ctx, nil, 5)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("negative offset", func(t *testing.T) {
		_, err := blob.ReadAt(ctx, make([]byte, 1), -1)
		assert.ErrorIs(t, err, ErrNegativeOffset)
	})
}

func TestLocalStore_ReadRange(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	require.NoError(t, store.Put(ctx, "histogram.bin", []byte("0123456789")))

	blob, err := store.Open(ctx, "histogram.bin")
	require.NoError(t, err)
	defer blob.Close()

	readRange := func(t *testing.T, off, length int64) string {
		t.Helper()

		rc, err := blob.ReadRange(ctx, off, length)
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)

		return string(data)
	}

	t.Run("interior", func(t *testing.T) {
		assert.Equal(t, "2345", readRange(t, 2, 4))
	})

	t.Run("clipped at end", func(t *testing.T) {
		assert.Equal(t, "789", readRange(t, 7, 100))
	})

	t.Run("zero length", func(t *testing.T) {
		assert.Empty(t, readRange(t, 4, 0))
	})

	t.Run("past end", func(t *testing.T) {
		_, err := blob.ReadRange(ctx, 10, 1)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("negative offset", func(t *testing.T) {
		_, err := blob.ReadRange(ctx, -1, 4)
		assert.ErrorIs(t, err, ErrNegativeOffset)
	})
}

func TestLocalStore_PutReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	require.NoError(t, store.Put(ctx, "CURRENT", []byte("payloads/00000001")))
	require.NoError(t, store.Put(ctx, "CURRENT", []byte("payloads/00000002")))

	data, err := ReadAll(ctx, store, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "payloads/00000002", string(data))

	// Neither Put nor Create may leave temp files behind.
	entries, err := os.ReadDir(store.root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestLocalStore_ListByPrefix(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	for _, name := range []string{
		"payloads/00000002",
		"payloads/00000001",
		"snapshots/latest",
		"CURRENT",
	} {
		require.NoError(t, store.Put(ctx, name, []byte(name)))
	}

	names, err := store.List(ctx, "payloads/")
	require.NoError(t, err)
	assert.Equal(t, []string{"payloads/00000001", "payloads/00000002"}, names)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"CURRENT", "payloads/00000001", "payloads/00000002", "snapshots/latest"}, all)
}

func TestLocalStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	require.NoError(t, store.Put(ctx, "payloads/gone", []byte("x")))
	require.NoError(t, store.Delete(ctx, "payloads/gone"))

	_, err := store.Open(ctx, "payloads/gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_MappableBytes(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	payload := []byte("mapped histogram state")
	require.NoError(t, store.Put(ctx, "snapshots/latest", payload))

	blob, err := store.Open(ctx, "snapshots/latest")
	require.NoError(t, err)
	defer blob.Close()

	m, ok := blob.(Mappable)
	require.True(t, ok, "local blobs should expose their mapping")

	data, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestLocalStore_NestedDirectories(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	name := "sessions/ab12/payloads/00000007"
	require.NoError(t, store.Put(ctx, name, []byte("deep")))

	// The hierarchy exists on disk exactly as named.
	_, err := os.Stat(filepath.Join(store.root, "sessions", "ab12", "payloads", "00000007"))
	require.NoError(t, err)

	data, err := ReadAll(ctx, store, name)
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))
}
