// Package memory provides an in-process session storage backend.
package memory

import (
	"context"
	"log/slog"
	"time"

	"github.com/yndnr/ssess-go/internal/core/domain"
	"github.com/yndnr/ssess-go/internal/storage/internal/locktable"
	"github.com/yndnr/ssess-go/internal/storage/internal/record"
	"github.com/yndnr/ssess-go/pkg/cmap"
)

// Store keeps encrypted session envelopes in memory.
type Store struct {
	records *cmap.Map[record.Record]
	locks   *locktable.Table
	logger  *slog.Logger
	now     func() time.Time
	lockTTL time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithLockTTL sets how long a lock may be held before it counts as abandoned.
// Zero means locks never expire.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.lockTTL = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the time source used for record stamps and lock ages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		records: cmap.New[record.Record](),
		logger:  slog.Default(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}
	s.locks = locktable.New(s.lockTTL).WithClock(s.now)
	s.logger = s.logger.With("backend", "memory")

	return s
}

// Save stores envelope under identifier, replacing any previous record.
func (s *Store) Save(_ context.Context, identifier, envelope string) error {
	s.records.Set(identifier, record.New(envelope, s.now()))
	return nil
}

// Get returns the envelope stored under identifier.
func (s *Store) Get(_ context.Context, identifier string) (string, error) {
	r, ok := s.records.Get(identifier)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return r.Data, nil
}

// SessionExists reports whether a record exists for identifier.
func (s *Store) SessionExists(_ context.Context, identifier string) bool {
	return s.records.Has(identifier)
}

// Destroy removes the record for identifier.
func (s *Store) Destroy(_ context.Context, identifier string) error {
	if _, ok := s.records.Pop(identifier); !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

// ClearOld removes every record saved at or before now minus maxAge.
func (s *Store) ClearOld(ctx context.Context, maxAge time.Duration) error {
	_, err := s.ClearOldCount(ctx, maxAge)
	return err
}

// ClearOldCount is ClearOld that also reports how many records were removed.
func (s *Store) ClearOldCount(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := record.Cutoff(s.now(), maxAge)

	var candidates []string
	s.records.Range(func(id string, r record.Record) bool {
		if r.Expired(cutoff) {
			candidates = append(candidates, id)
		}
		return true
	})

	removed, skipped := 0, 0
	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return removed, domain.ErrUnableToDelete.WithCause(err)
		}
		tok, locked := s.locks.TryLockOwned(id)
		if !locked {
			skipped++
			continue
		}
		// Re-check under the lock: a save since the scan makes the record young again.
		if s.records.DeleteIf(id, func(r record.Record) bool { return r.Expired(cutoff) }) {
			removed++
		}
		s.locks.UnlockOwned(id, tok)
	}

	if removed > 0 || skipped > 0 {
		s.logger.Debug("cleared old sessions", "removed", removed, "skipped_locked", skipped)
	}
	return removed, nil
}

// Lock makes a single attempt to take the advisory lock for identifier.
func (s *Store) Lock(_ context.Context, identifier string) bool {
	return s.locks.TryLock(identifier)
}

// Unlock releases the advisory lock for identifier.
func (s *Store) Unlock(_ context.Context, identifier string) {
	s.locks.Unlock(identifier)
}

// LockOwned is Lock that returns a token naming this acquisition.
func (s *Store) LockOwned(_ context.Context, identifier string) (string, bool) {
	return s.locks.TryLockOwned(identifier)
}

// UnlockOwned releases the lock only while token still names its holder.
func (s *Store) UnlockOwned(_ context.Context, identifier, token string) {
	s.locks.UnlockOwned(identifier, token)
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	return s.records.Count()
}

// Close drops all records.
func (s *Store) Close() error {
	s.records.Clear()
	return nil
}
