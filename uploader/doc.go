// Package uploader ships rendered telemetry payloads to a blob store.
//
// An Uploader periodically renders a payload from its Source, wraps it in an
// envelope carrying session and encoding metadata, compresses it, and writes
// it under payloads/<unix-nanos>-<uuid>. After each successful cycle it
// points the CURRENT object at the newest upload and prunes payloads beyond
// the retention limit.
//
// Usage:
//
//	svc := histogo.New()
//	store, _ := blobstore.NewLocalStore("./telemetry")
//
//	up := uploader.New(svc, store,
//	    uploader.WithInterval(time.Minute),
//	    uploader.WithSubsets(core.AllPlain, core.AllKeyed),
//	    uploader.WithRetention(100),
//	)
//	go up.Run(ctx)
//
// Shipping is resource-bounded: a semaphore caps concurrent cycles, an
// optional buffer budget caps in-flight payload bytes, and an optional rate
// limit caps upload throughput. See the resource package.
//
// Pointing the uploader at a commit-backed store such as s3.DDBCommitStore
// makes the CURRENT update an atomic conditional write, so concurrent
// publishers cannot clobber each other's pointer.
package uploader
