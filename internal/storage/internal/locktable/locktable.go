// Package locktable implements the per-identifier advisory lock used by the
// in-process storage backends.
package locktable

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/yndnr/ssess-go/pkg/cmap"
)

type entry struct {
	token string
	since time.Time
}

// Table tracks which identifiers are locked, since when and by which
// acquisition. A lock older than the TTL is treated as abandoned and may be
// taken over. A zero TTL means locks never expire.
type Table struct {
	held *cmap.Map[entry]
	ttl  time.Duration
	now  func() time.Time
	seq  atomic.Uint64
}

// New creates a lock table.
func New(ttl time.Duration) *Table {
	return &Table{
		held: cmap.New[entry](),
		ttl:  ttl,
		now:  time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (t *Table) WithClock(now func() time.Time) *Table {
	t.now = now
	return t
}

// TryLock makes a single attempt to lock id.
func (t *Table) TryLock(id string) bool {
	_, ok := t.TryLockOwned(id)
	return ok
}

// TryLockOwned makes a single attempt to lock id and returns the token that
// identifies this acquisition. The token is unique within the table.
func (t *Table) TryLockOwned(id string) (string, bool) {
	now := t.now()
	tok := ""
	t.held.Update(id, func(cur entry, exists bool) (entry, bool) {
		if exists && !t.expired(cur.since, now) {
			return cur, true
		}
		tok = strconv.FormatUint(t.seq.Add(1), 36)
		return entry{token: tok, since: now}, true
	})
	return tok, tok != ""
}

// Unlock releases id regardless of who holds it. Unlocking a free identifier
// is a no-op.
func (t *Table) Unlock(id string) {
	t.held.Delete(id)
}

// UnlockOwned releases id only while tok still names the current holder.
// A holder whose lock was taken over after expiry releases nothing.
func (t *Table) UnlockOwned(id, tok string) bool {
	return t.held.DeleteIf(id, func(cur entry) bool {
		return cur.token == tok
	})
}

// Locked reports whether id is currently held by a live lock.
func (t *Table) Locked(id string) bool {
	cur, ok := t.held.Get(id)
	return ok && !t.expired(cur.since, t.now())
}

// Len returns the number of entries, including expired ones not yet reclaimed.
func (t *Table) Len() int {
	return t.held.Count()
}

func (t *Table) expired(since, now time.Time) bool {
	return t.ttl > 0 && now.Sub(since) >= t.ttl
}
