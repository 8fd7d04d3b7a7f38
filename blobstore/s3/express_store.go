package s3

import (
	"bytes"
	"context"
	"errors"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/hupe1980/histogo/blobstore"
)

// ErrConflict reports that a conditional write lost to an existing object.
var ErrConflict = errors.New("s3: object already exists")

// ExpressStore is a blobstore.Store for S3 Express One Zone directory
// buckets (names ending in --azid--x-s3).
//
// Express buckets trade S3's multi-AZ durability for single-digit
// millisecond access, which suits deployments where the payload reader sits
// next to the writer, such as a dashboard tailing fresh uploads. They also
// support If-None-Match conditional writes, so PutIfNotExists can guard two
// uploaders racing on the same sequence number without a DynamoDB table.
type ExpressStore struct {
	client Client
	bucket string
	root   string
	upload UploadConfig
}

// NewExpressStore creates a store on a directory bucket. rootPrefix is
// prepended to every name.
func NewExpressStore(client Client, bucket, rootPrefix string) *ExpressStore {
	return &ExpressStore{
		client: client,
		bucket: bucket,
		root:   rootPrefix,
		upload: DefaultUploadConfig(),
	}
}

func (s *ExpressStore) object(name string) string {
	return path.Join(s.root, name)
}

func (s *ExpressStore) putInput(name string, data []byte) *s3.PutObjectInput {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.object(name)),
		Body:   bytes.NewReader(data),
	}
	if s.upload.EnableChecksum {
		in.ContentLength = aws.Int64(int64(len(data)))
		in.ChecksumCRC32C = aws.String(checksumBase64(data))
	}
	return in
}

func (s *ExpressStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	return statObject(ctx, s.client, s.bucket, s.object(name))
}

// Put writes a blob, replacing any existing object.
func (s *ExpressStore) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.putInput(name, data))
	return err
}

// PutIfNotExists writes a blob only when the name is still free. It returns
// ErrConflict when the object already exists.
func (s *ExpressStore) PutIfNotExists(ctx context.Context, name string, data []byte) error {
	in := s.putInput(name, data)
	// On directory buckets the existence check and the write are one
	// request.
	in.IfNoneMatch = aws.String("*")

	_, err := s.client.PutObject(ctx, in)
	if err == nil {
		return nil
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return ErrConflict
		}
	}
	return err
}

func (s *ExpressStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return startManagedUpload(ctx, newUploader(s.client, s.upload), s.bucket, s.object(name), s.upload.EnableChecksum), nil
}

func (s *ExpressStore) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.object(name)),
	})
	return err
}

func (s *ExpressStore) List(ctx context.Context, prefix string) ([]string, error) {
	return listObjects(ctx, s.client, s.bucket, s.object(prefix), s.root)
}
