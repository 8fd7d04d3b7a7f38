package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/mock"
)

// mockReturn unpacks a recorded call into the typed output and error. The
// comma-ok assertion turns a recorded nil into a typed nil pointer.
func mockReturn[T any](args mock.Arguments) (T, error) {
	out, _ := args.Get(0).(T)
	return out, args.Error(1)
}

// mockS3 implements Client against recorded expectations.
type mockS3 struct {
	mock.Mock
}

func (m *mockS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return mockReturn[*s3.HeadObjectOutput](m.Called(ctx, in))
}

func (m *mockS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return mockReturn[*s3.GetObjectOutput](m.Called(ctx, in))
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return mockReturn[*s3.PutObjectOutput](m.Called(ctx, in))
}

func (m *mockS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return mockReturn[*s3.DeleteObjectOutput](m.Called(ctx, in))
}

func (m *mockS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return mockReturn[*s3.ListObjectsV2Output](m.Called(ctx, in))
}

func (m *mockS3) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return mockReturn[*s3.CreateMultipartUploadOutput](m.Called(ctx, in))
}

func (m *mockS3) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return mockReturn[*s3.UploadPartOutput](m.Called(ctx, in))
}

func (m *mockS3) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return mockReturn[*s3.CompleteMultipartUploadOutput](m.Called(ctx, in))
}

func (m *mockS3) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return mockReturn[*s3.AbortMultipartUploadOutput](m.Called(ctx, in))
}
