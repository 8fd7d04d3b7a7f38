// Package blobstore abstracts where archived telemetry ends up.
//
// A Store holds named byte objects: rendered payloads, the CURRENT pointer,
// session snapshots. The uploader writes through it; readers and retention
// scans go through Open, ReadAll and List. All implementations are safe for
// concurrent use.
//
// In-tree stores:
//
//   - MemoryStore keeps objects in a map, for tests and embedding
//   - LocalStore writes a directory tree and maps objects read-only
//   - s3.Store targets Amazon S3, with ranged reads and multipart uploads
//   - minio.Store speaks to MinIO and other S3-compatible systems
//   - redis.Store parks small, short-lived archives in Redis
//
// NewCachingStore layers an in-memory object cache over any of them.
//
// Remote backends should implement ReadRange so callers can read just an
// envelope header out of a large object; stores that cannot are still
// usable through ReadAll.
package blobstore
