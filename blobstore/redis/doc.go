// Package redis provides a blobstore.Store implementation backed by Redis.
//
// Payloads land in plain string keys, so any Redis deployment works,
// including Cluster and Sentinel through go-redis UniversalClient. The store
// suits hot telemetry data with short retention: recent payload documents a
// dashboard polls, or a staging area before batch upload to S3.
//
// # Basic Usage
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := redisblob.NewStore(client, "histogo:",
//	    redisblob.WithTTL(15*time.Minute),
//	)
//
// An optional TTL bounds retention server-side; expired blobs simply report
// blobstore.ErrNotFound.
package redis
