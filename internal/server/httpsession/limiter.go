package httpsession

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/ssess-go/pkg/cmap"
)

// limiterIdleTTL is how long an unused per-IP limiter is kept.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// mintLimiter bounds how fast a single client IP can obtain new ids.
type mintLimiter struct {
	limit   rate.Limit
	burst   int
	entries *cmap.Map[*limiterEntry]
	now     func() time.Time
}

// newMintLimiter returns nil when perSecond is not positive, which disables
// limiting.
func newMintLimiter(perSecond float64, burst int) *mintLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &mintLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		entries: cmap.New[*limiterEntry](),
		now:     time.Now,
	}
}

// Allow reports whether ip may mint one more id now.
func (l *mintLimiter) Allow(ip string) bool {
	if l == nil {
		return true
	}

	now := l.now()
	var e *limiterEntry
	l.entries.Update(ip, func(cur *limiterEntry, exists bool) (*limiterEntry, bool) {
		if !exists {
			cur = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		}
		e = cur
		return cur, true
	})
	e.lastSeen.Store(now.UnixNano())
	return e.lim.AllowN(now, 1)
}

// Prune drops limiters unused for longer than limiterIdleTTL and returns how
// many were removed.
func (l *mintLimiter) Prune() int {
	if l == nil {
		return 0
	}

	cutoff := l.now().Add(-limiterIdleTTL).UnixNano()
	var stale []string
	l.entries.Range(func(ip string, e *limiterEntry) bool {
		if e.lastSeen.Load() < cutoff {
			stale = append(stale, ip)
		}
		return true
	})

	removed := 0
	for _, ip := range stale {
		if l.entries.DeleteIf(ip, func(e *limiterEntry) bool { return e.lastSeen.Load() < cutoff }) {
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked client IPs.
func (l *mintLimiter) Len() int {
	if l == nil {
		return 0
	}
	return l.entries.Count()
}
