// Package storage defines the contract between the session orchestrator
// and the medium that holds encrypted session envelopes.
//
// A Storage never sees plaintext or raw session ids: it is handed opaque
// identifiers and opaque envelopes. Backends:
//
//   - memory: sharded in-process map, for tests and single-process hosts
//   - file:   one JSON file per session in a directory
//   - badger: embedded Badger key-value store
//   - redis:  Redis, shared by several application instances
//
// Open builds a backend from Config by name. Every backend passes the
// conformance suite in package storagetest.
package storage
