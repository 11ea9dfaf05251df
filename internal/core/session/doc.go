// Package session sequences the crypt provider and a storage backend through
// the lifecycle a host runtime drives for every request.
//
// A Handler is created per request. Construction validates the host's
// security settings and runs the fixation guard: when strict mode is on, a
// client-presented id with no stored session behind it is discarded and a
// fresh id is minted through the host Environment.
//
// After that the host calls Open (takes the per-identifier advisory lock),
// Read and Write any number of times, and Close. Destroy and GC are side
// operations and do not require the handler to be open.
//
// Storage failures during Write, Destroy and GC are logged and reported as
// false. They never surface as errors to the host.
package session
