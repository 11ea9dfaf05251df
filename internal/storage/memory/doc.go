// Package memory provides an in-process session storage backend.
//
// Records live in a sharded concurrent map, so unrelated identifiers never
// contend on the same lock. Every Store owns its data: two stores in one
// process never see each other's records.
//
// Thread Safety:
//
// All operations are safe for concurrent use. Lock and ClearOld share one
// advisory lock table, so a sweep never removes a record that an open
// session is about to rewrite.
package memory
