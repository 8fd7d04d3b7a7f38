// Package cache provides LRU caching for immutable blob objects.
//
// The ShardedLRUCache keeps recently fetched payload objects in memory,
// keyed by object name. It uses 64-way sharding to reduce lock contention
// and can be tied to a resource.Controller so cached bytes count against
// the process buffer budget.
package cache
