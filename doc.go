// Package histogo collects product telemetry into named histograms.
//
// Histogo is an embeddable telemetry aggregator: applications record events
// into cheap histogram handles, a single worker goroutine folds the samples
// into storages, and the collected values are rendered into compact payloads
// for shipping, persisted across sessions, or archived to blob storage.
//
// # Quick Start
//
//	svc := histogo.New()
//	defer svc.Close()
//
//	starts, _ := svc.NewCount("app.starts")
//	latency, _ := svc.NewLinear("request.latency_ms", 0, 5000, 50)
//	feature, _ := svc.NewKeyedFlag("feature.used")
//
//	starts.Inc()
//	latency.Record(137)
//	feature.Record("dark-mode")
//
//	payload, _ := svc.Payload(ctx, core.AllPlain, core.SimpleJSON)
//
// # Histogram Kinds
//
// Four plain kinds, each with a keyed variant holding independent contents
// per dynamic string key:
//
//	// Flag: did the event happen this session?
//	f, _ := svc.NewFlag("crash.recovered")
//	f.Record()
//
//	// Count: how often did it happen? Saturates, never wraps.
//	c, _ := svc.NewCount("cache.misses")
//	c.Add(3)
//
//	// Enum: how often did each variant happen?
//	e, _ := svc.NewEnum("dialog.choice", 3)
//	e.Record(core.Count(1))
//
//	// Linear: how are values distributed over fixed buckets?
//	l, _ := svc.NewLinear("startup.ms", 0, 10000, 100)
//	l.Record(4231)
//
// # Recording Model
//
// Handles never block and never lock: recording is one atomic check and one
// buffered channel send. The worker owns all storage mutation, so payloads
// are consistent cuts and storages need no synchronization of their own.
// When the buffer is full the sample is dropped and counted instead;
// telemetry deliberately sheds load before it slows the application down.
//
// # Sessions
//
// Every service carries a session UUID. SaveState and RestoreState persist
// histogram contents across restarts, and the uploader package stamps the
// session into upload envelopes so a backend can stitch a session's payloads
// together.
//
// # Key Features
//
//   - Flag, count, enum and linear histograms, plain and keyed
//   - Lock-free recording through a single-writer worker
//   - Full and delta payload rendering (dirty tracking via roaring bitmaps)
//   - Session persistence with checksummed, compressed snapshots
//   - Payload archival to local disk, S3, MinIO or Redis blob stores
package histogo
