package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/hupe1980/histogo/blobstore"
)

// notFound reports whether err means the object does not exist. HeadObject
// surfaces types.NotFound, GetObject surfaces types.NoSuchKey, and some
// S3-compatible backends only set the API error code.
func notFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		code := ae.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}

// statObject resolves a key into an objectBlob via HeadObject.
func statObject(ctx context.Context, client Client, bucket, key string) (*objectBlob, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	switch {
	case notFound(err):
		return nil, blobstore.ErrNotFound
	case err != nil:
		return nil, err
	}
	return &objectBlob{client: client, bucket: bucket, key: key, size: *head.ContentLength}, nil
}

// objectBlob serves reads with ranged GETs, so consumers never fetch more of
// an archived payload than they ask for. Store and ExpressStore both hand
// out this type.
type objectBlob struct {
	client Client
	bucket string
	key    string
	size   int64
}

func (b *objectBlob) Size() int64 { return b.size }

func (b *objectBlob) Close() error { return nil }

// ReadRange returns the body of a GET over [off, off+length), clipped at the
// object's end. The caller owns the body and must close it.
func (b *objectBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	switch {
	case off < 0:
		return nil, blobstore.ErrNegativeOffset
	case off >= b.size:
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := min(off+length, b.size) - 1

	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ReadAt implements the Blob read contract over a single ranged GET.
func (b *objectBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	r, err := b.ReadRange(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n, err := io.ReadFull(r, p)
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		// The range was clipped at the object's end.
		return n, io.EOF
	}
	return n, err
}

// listObjects pages through ListObjectsV2 and returns names under prefix,
// relative to root, sorted.
func listObjects(ctx context.Context, client Client, bucket, prefix, root string) ([]string, error) {
	pager := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	var names []string
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			name := *obj.Key
			if rest, ok := strings.CutPrefix(name, root); ok {
				name = strings.TrimPrefix(rest, "/")
			}
			if name == "" {
				continue
			}
			names = append(names, name)
		}
	}

	slices.Sort(names)
	return names, nil
}
