// Package fs is the seam between snapshot persistence and the disk.
//
// State files are written through [WriteFileAtomic], so a crash mid-write
// never leaves a torn file where a snapshot used to be. [FaultyFS] wraps any
// [FileSystem] and injects write, sync, or close failures, which is how the
// crash-safety tests exercise those paths:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.SetLimit(1024) // writes fail after 1KB in total
//
// Operations take no context.Context on purpose: local file syscalls are
// not cancellable, and the slow remote stores live behind blobstore.Store,
// which is context-aware.
package fs
