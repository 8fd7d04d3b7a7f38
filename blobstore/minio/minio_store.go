package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/histogo/blobstore"
)

// Store implements blobstore.Store on a MinIO or other S3-compatible bucket.
type Store struct {
	client *minio.Client
	bucket string
	root   string
}

// NewStore creates a Store writing under rootPrefix in bucket. A service
// typically namespaces by session or application, e.g. "telemetry/prod/".
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{client: client, bucket: bucket, root: rootPrefix}
}

func (s *Store) object(name string) string {
	return path.Join(s.root, name)
}

// missingObject reports whether err means the object does not exist.
func missingObject(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// Open stats the object to learn its size; the bytes are fetched lazily by
// the returned Blob's range reads.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.object(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	switch {
	case missingObject(err):
		return nil, blobstore.ErrNotFound
	case err != nil:
		return nil, err
	}
	return &minioBlob{store: s, key: key, size: info.Size}, nil
}

// Put writes a blob in a single request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.object(name),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

// Create starts a streaming upload. Bytes written to the returned blob are
// piped into a multipart upload; the object appears when Close succeeds.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	result := make(chan error, 1)

	go func() {
		// Size -1 switches the client to multipart streaming.
		_, err := s.client.PutObject(ctx, s.bucket, s.object(name), pr, -1, minio.PutObjectOptions{})
		pr.CloseWithError(err)
		result <- err
	}()

	return &minioUpload{pw: pw, result: result}, nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.object(name), minio.RemoveObjectOptions{})
	if missingObject(err) {
		return nil
	}
	return err
}

// List returns all blob names with the given prefix, sorted. Names come back
// without the store's root prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{Prefix: s.object(prefix), Recursive: true}

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := obj.Key
		if rest, ok := strings.CutPrefix(name, s.root); ok {
			name = strings.TrimPrefix(rest, "/")
		}
		if name == "" {
			continue
		}
		names = append(names, name)
	}

	slices.Sort(names)
	return names, nil
}

type minioBlob struct {
	store *Store
	key   string
	size  int64
}

func (b *minioBlob) Size() int64 { return b.size }

func (b *minioBlob) Close() error { return nil }

func (b *minioBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	switch {
	case off < 0:
		return nil, blobstore.ErrNegativeOffset
	case off >= b.size:
		return nil, io.EOF
	case length <= 0:
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	end := min(off+length, b.size) - 1

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return nil, err
	}
	return b.store.client.GetObject(ctx, b.store.bucket, b.key, opts)
}

func (b *minioBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	r, err := b.ReadRange(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n, err := io.ReadFull(r, p)
	if err == io.ErrUnexpectedEOF {
		// The range was clipped at the object's end.
		err = io.EOF
	}
	return n, err
}

// minioUpload feeds a background multipart upload through a pipe.
type minioUpload struct {
	pw     *io.PipeWriter
	result chan error
	closed atomic.Bool
}

func (u *minioUpload) Write(p []byte) (int, error) {
	return u.pw.Write(p)
}

// Sync is a no-op; durability comes from the upload completing in Close.
func (u *minioUpload) Sync() error { return nil }

// Close finishes the stream and blocks until the upload result is known.
func (u *minioUpload) Close() error {
	if !u.closed.CompareAndSwap(false, true) {
		return errors.New("minio: upload already closed")
	}
	if err := u.pw.Close(); err != nil {
		return err
	}
	return <-u.result
}
