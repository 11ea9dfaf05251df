// Package redis provides a session storage backend on Redis.
//
// Key layout, with the default prefix "ssess":
//
//	ssess:rec:<identifier>    JSON record {"data", "time"}
//	ssess:idx                 sorted set, member = identifier, score = record time
//	ssess:lock:<identifier>   lock token, SET NX PX <lock ttl>
//
// Save writes the record and its index entry in one MULTI block, so the
// index score always matches the record time. Sweeps read candidates from
// the index and delete through a Lua script that re-checks the score.
// Unlock deletes the lock key only if it still holds this store's token,
// so a lock that expired and was taken by another instance is never
// released by mistake.
package redis
