// Package s3 backs blobstore.Store with Amazon S3.
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "telemetry/")
//
// Reads use ranged GETs, so a consumer can pull a payload envelope's header
// without downloading the whole object. Small writes go up in one request
// with a CRC32C checksum the service verifies; Create streams through the
// SDK's upload manager and switches to multipart for large archives.
//
// Standard buckets cannot compare-and-swap, which matters once several
// uploaders share a prefix. Two remedies are provided: DDBCommitStore moves
// the CURRENT pointer into a DynamoDB commit log with conditional writes,
// and ExpressStore uses the If-None-Match support of S3 Express One Zone
// directory buckets.
package s3
