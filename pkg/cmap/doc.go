// Package cmap provides a string-keyed concurrent map for ssess.
//
// The map is split into shards, each guarded by its own RWMutex, so
// operations on unrelated session identifiers rarely contend:
//
//   - Sharding: murmur3 of the key picks the shard (power-of-two count)
//   - Conditional writes: SetIfAbsent, DeleteIf and Update run under the shard lock
//   - Iteration: Range walks shard by shard while holding read locks
//
// Usage:
//
//	m := cmap.New[*Record]()
//	m.Set(identifier, rec)
//	rec, ok := m.Get(identifier)
//
// Range is not a consistent snapshot across shards. Callers that need to
// act on what they saw must re-check under DeleteIf or Update.
package cmap
