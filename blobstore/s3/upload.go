package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/histogo/internal/hash"
)

// UploadConfig tunes how objects are written. The defaults suit payload
// uploads: a single cycle rarely produces more than a few megabytes, so most
// objects go up in one part.
type UploadConfig struct {
	// PartSize is the part size for multipart uploads, in bytes.
	PartSize int64

	// Concurrency is how many parts upload in parallel.
	Concurrency int

	// EnableChecksum attaches a CRC32C checksum that S3 verifies on receipt.
	EnableChecksum bool

	// LeavePartsOnError keeps the parts of a failed multipart upload around
	// instead of aborting it. Useful only for debugging; orphaned parts are
	// billed until removed.
	LeavePartsOnError bool
}

// DefaultUploadConfig returns the settings NewStore starts from.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:       8 << 20,
		Concurrency:    5,
		EnableChecksum: true,
	}
}

func newUploader(client Client, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = cfg.PartSize
		u.Concurrency = cfg.Concurrency
		u.LeavePartsOnError = cfg.LeavePartsOnError
	})
}

// checksumBase64 encodes a CRC32C sum the way the S3 API wants it: the
// checksum's big-endian bytes, base64 encoded.
func checksumBase64(data []byte) string {
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], hash.CRC32C(data))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// putWithChecksum writes an object in a single request with server-side
// CRC32C verification.
func putWithChecksum(ctx context.Context, client Client, bucket, key string, data []byte) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:         aws.String(bucket),
		Key:            aws.String(key),
		Body:           bytes.NewReader(data),
		ContentLength:  aws.Int64(int64(len(data))),
		ChecksumCRC32C: aws.String(checksumBase64(data)),
	})
	return err
}

// managedUpload implements blobstore.WritableBlob by feeding a pipe into the
// SDK's upload manager. The object becomes visible only once Close returns
// nil; a failed upload is aborted by the manager and leaves nothing behind.
type managedUpload struct {
	pw     *io.PipeWriter
	result chan error

	closed   atomic.Bool
	closeMu  sync.Mutex
	closeErr error
}

func startManagedUpload(ctx context.Context, uploader *manager.Uploader, bucket, key string, withChecksum bool) *managedUpload {
	pr, pw := io.Pipe()
	u := &managedUpload{
		pw:     pw,
		result: make(chan error, 1),
	}

	go func() {
		input := &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   pr,
		}
		if withChecksum {
			// Streaming bodies cannot be pre-hashed, so let the SDK
			// checksum each part as it goes out.
			input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
		}

		_, err := uploader.Upload(ctx, input)

		// Unblock a writer still feeding the pipe.
		_ = pr.CloseWithError(err)
		u.result <- err
	}()

	return u
}

func (u *managedUpload) Write(p []byte) (int, error) {
	if u.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	return u.pw.Write(p)
}

// Close signals EOF to the upload manager and waits for the upload to
// finish. Subsequent calls return the first result.
func (u *managedUpload) Close() error {
	u.closeMu.Lock()
	defer u.closeMu.Unlock()

	if !u.closed.CompareAndSwap(false, true) {
		return u.closeErr
	}

	if err := u.pw.Close(); err != nil {
		u.closeErr = err
		return err
	}
	u.closeErr = <-u.result
	return u.closeErr
}

// Sync is a no-op. S3 has no durability boundary short of completing the
// upload, which happens on Close.
func (u *managedUpload) Sync() error { return nil }
