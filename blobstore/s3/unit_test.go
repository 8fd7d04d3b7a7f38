package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/histogo/blobstore"
)

func TestStore_Open(t *testing.T) {
	ctx := context.Background()
	client := new(mockS3)
	store := NewStore(client, "test-bucket", "prefix")

	t.Run("missing", func(t *testing.T) {
		client.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
			return *in.Bucket == "test-bucket" && *in.Key == "prefix/foo"
		})).Return(nil, &types.NotFound{}).Once()

		_, err := store.Open(ctx, "foo")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("missing by error code", func(t *testing.T) {
		// Some S3-compatible backends return a bare API error instead of
		// the typed NotFound.
		client.On("HeadObject", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "NotFound"}).Once()

		_, err := store.Open(ctx, "foo")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("found", func(t *testing.T) {
		client.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
			return *in.Key == "prefix/bar"
		})).Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(2048)}, nil).Once()

		blob, err := store.Open(ctx, "bar")
		require.NoError(t, err)
		assert.Equal(t, int64(2048), blob.Size())
	})
}

func TestStore_Delete(t *testing.T) {
	client := new(mockS3)
	store := NewStore(client, "test-bucket", "prefix")

	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Bucket == "test-bucket" && *in.Key == "prefix/del"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	require.NoError(t, store.Delete(context.Background(), "del"))
	client.AssertExpectations(t)
}

func TestStore_List(t *testing.T) {
	client := new(mockS3)
	store := NewStore(client, "test-bucket", "prefix/")

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return *in.Bucket == "test-bucket" && *in.Prefix == "prefix"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("prefix/payloads/00000002")},
			{Key: aws.String("prefix/CURRENT")},
		},
	}, nil).Once()

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"CURRENT", "payloads/00000002"}, names)
}

func TestStore_List_Pagination(t *testing.T) {
	client := new(mockS3)
	store := NewStore(client, "test-bucket", "prefix/")

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return in.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("next-page"),
		Contents:              []types.Object{{Key: aws.String("prefix/payloads/00000001")}},
	}, nil).Once()

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return in.ContinuationToken != nil && *in.ContinuationToken == "next-page"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{{Key: aws.String("prefix/payloads/00000002")}},
	}, nil).Once()

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"payloads/00000001", "payloads/00000002"}, names)
}

func TestObjectBlob_ReadAt(t *testing.T) {
	ctx := context.Background()
	client := new(mockS3)
	blob := &objectBlob{client: client, bucket: "b", key: "k", size: 10}

	client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return *in.Bucket == "b" && *in.Key == "k" && *in.Range == "bytes=0-4"
	})).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("telem")),
	}, nil).Once()

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "telem", string(buf))

	// Neither of these reaches the API.
	_, err = blob.ReadAt(ctx, buf, 10)
	assert.ErrorIs(t, err, io.EOF)
	_, err = blob.ReadAt(ctx, buf, -1)
	assert.ErrorIs(t, err, blobstore.ErrNegativeOffset)

	client.AssertExpectations(t)
}

func TestObjectBlob_ReadRange(t *testing.T) {
	client := new(mockS3)
	blob := &objectBlob{client: client, bucket: "b", key: "k", size: 10}

	client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return *in.Range == "bytes=2-6"
	})).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("lemet")),
	}, nil).Once()

	r, err := blob.ReadRange(context.Background(), 2, 5)
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "lemet", string(got))
}

func TestStore_Create(t *testing.T) {
	client := new(mockS3)
	store := NewStore(client, "test-bucket", "prefix")

	// A small body fits into one part, so the upload manager issues a single
	// PutObject carrying the checksum algorithm.
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Key == "prefix/new" && in.ChecksumAlgorithm == types.ChecksumAlgorithmCrc32c
	})).Run(func(args mock.Arguments) {
		in := args.Get(1).(*s3.PutObjectInput)
		_, _ = io.ReadAll(in.Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	wb, err := store.Create(context.Background(), "new")
	require.NoError(t, err)

	_, err = wb.Write([]byte("streamed envelope"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	// A second Close reports the cached result, and writes after Close fail.
	assert.NoError(t, wb.Close())
	_, err = wb.Write([]byte("late"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestStore_Put_Checksum(t *testing.T) {
	t.Run("attached", func(t *testing.T) {
		client := new(mockS3)
		store := NewStore(client, "test-bucket", "prefix")

		client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return *in.Key == "prefix/small" && in.ChecksumCRC32C != nil && *in.ChecksumCRC32C != ""
		})).Return(&s3.PutObjectOutput{}, nil).Once()

		require.NoError(t, store.Put(context.Background(), "small", []byte("payload bytes")))
		client.AssertExpectations(t)
	})

	t.Run("disabled", func(t *testing.T) {
		client := new(mockS3)
		cfg := DefaultUploadConfig()
		cfg.EnableChecksum = false
		store := NewStore(client, "test-bucket", "prefix", WithUploadConfig(cfg))

		client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return *in.Key == "prefix/small" && in.ChecksumCRC32C == nil
		})).Return(&s3.PutObjectOutput{}, nil).Once()

		require.NoError(t, store.Put(context.Background(), "small", []byte("payload bytes")))
		client.AssertExpectations(t)
	})
}

func TestExpressStore_PutIfNotExists(t *testing.T) {
	client := new(mockS3)
	store := NewExpressStore(client, "bucket--usw2-az1--x-s3", "telemetry")

	t.Run("created", func(t *testing.T) {
		client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return *in.Key == "telemetry/payload-1" && in.IfNoneMatch != nil
		})).Return(&s3.PutObjectOutput{}, nil).Once()

		assert.NoError(t, store.PutIfNotExists(context.Background(), "payload-1", []byte("data")))
	})

	t.Run("conflict", func(t *testing.T) {
		client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return *in.Key == "telemetry/payload-2"
		})).Return(nil, &smithy.GenericAPIError{Code: "PreconditionFailed"}).Once()

		err := store.PutIfNotExists(context.Background(), "payload-2", []byte("data"))
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestChecksumBase64(t *testing.T) {
	// Known vector: CRC32C("123456789") = 0xE3069283.
	assert.Equal(t, "4waSgw==", checksumBase64([]byte("123456789")))
}
