package s3

import (
	"bytes"
	"context"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/histogo/blobstore"
)

// Client is the subset of the S3 API the store uses. *s3.Client satisfies it.
//
// Defining the surface as an interface keeps the store testable without a
// live bucket.
type Client interface {
	manager.UploadAPIClient

	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store implements blobstore.Store backed by Amazon S3.
type Store struct {
	client Client
	bucket string
	root   string
	upload UploadConfig
}

// Option configures a Store.
type Option func(*Store)

// WithUploadConfig overrides the default upload settings.
func WithUploadConfig(cfg UploadConfig) Option {
	return func(s *Store) {
		s.upload = cfg
	}
}

// NewStore creates a new S3 blob store.
// rootPrefix is prepended to all names (e.g. "telemetry/service-a/").
func NewStore(client Client, bucket, rootPrefix string, opts ...Option) *Store {
	s := &Store{
		client: client,
		bucket: bucket,
		root:   rootPrefix,
		upload: DefaultUploadConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) object(name string) string {
	return path.Join(s.root, name)
}

// Open opens a blob for reading. Reads are served with ranged GETs, so large
// archives never have to be fetched whole.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	return statObject(ctx, s.client, s.bucket, s.object(name))
}

// Create starts a streaming upload. Data is committed only when Close
// returns nil; a failed upload leaves no object behind.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return startManagedUpload(ctx, newUploader(s.client, s.upload), s.bucket, s.object(name), s.upload.EnableChecksum), nil
}

// Put writes a blob in a single request. When checksums are enabled the
// object carries a CRC32C trailer that S3 verifies server-side.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	key := s.object(name)
	if s.upload.EnableChecksum {
		return putWithChecksum(ctx, s.client, s.bucket, key, data)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

// Delete removes a blob. S3 treats deleting a missing object as success,
// which matches the blobstore contract.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.object(name)),
	})
	return err
}

// List returns all blob names with the given prefix, sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	return listObjects(ctx, s.client, s.bucket, s.object(prefix), s.root)
}
