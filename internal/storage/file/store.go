package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yndnr/ssess-go/internal/core/domain"
	"github.com/yndnr/ssess-go/internal/storage/internal/locktable"
	"github.com/yndnr/ssess-go/internal/storage/internal/record"
)

// DefaultPrefix is prepended to every session file name.
const DefaultPrefix = "ssess_"

// Config configures the file backend.
type Config struct {
	// Dir is the storage directory. Empty means os.TempDir()/ssess.
	Dir string

	// Prefix is prepended to identifiers to form file names.
	// Default: "ssess_"
	Prefix string

	// LockTTL is how long a lock may be held before it counts as abandoned.
	// Zero means locks never expire.
	LockTTL time.Duration
}

// DefaultDir returns the directory used when Config.Dir is empty.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "ssess")
}

// Store keeps each session record in its own file.
type Store struct {
	dir    string
	prefix string
	locks  *locktable.Table
	logger *slog.Logger
	now    func() time.Time
	remove func(name string) error
}

// Option configures the Store.
type Option func(*Store)

// WithClock replaces the time source used for record stamps and lock ages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New opens the storage directory, creating it if needed.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	if err := bootstrap(cfg.Dir); err != nil {
		return nil, err
	}

	s := &Store{
		dir:    cfg.Dir,
		prefix: cfg.Prefix,
		logger: logger.With("backend", "file", "dir", cfg.Dir),
		now:    time.Now,
		remove: os.Remove,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.locks = locktable.New(cfg.LockTTL).WithClock(s.now)

	return s, nil
}

// bootstrap makes sure dir exists and can be read and written.
func bootstrap(dir string) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return domain.ErrUnableToCreateDirectory.WithDetails(dir).WithCause(err)
		}
	}

	if _, err := os.ReadDir(dir); err != nil {
		return domain.ErrDirectoryNotReadable.WithDetails(dir).WithCause(err)
	}

	probe, err := os.CreateTemp(dir, ".ssess-probe-*")
	if err != nil {
		return domain.ErrDirectoryNotWritable.WithDetails(dir).WithCause(err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(identifier string) (string, error) {
	if identifier == "" || identifier == "." || identifier == ".." ||
		strings.ContainsAny(identifier, `/\`+"\x00") {
		return "", fmt.Errorf("file: invalid identifier %q", identifier)
	}
	return filepath.Join(s.dir, s.prefix+identifier), nil
}

// Save writes envelope for identifier, replacing any previous record.
func (s *Store) Save(_ context.Context, identifier, envelope string) error {
	path, err := s.path(identifier)
	if err != nil {
		return domain.ErrUnableToSave.WithCause(err)
	}

	data, err := record.Encode(record.New(envelope, s.now()))
	if err != nil {
		return domain.ErrUnableToSave.WithCause(err)
	}

	if err := writeAtomic(s.dir, path, data); err != nil {
		return domain.ErrUnableToSave.WithCause(err)
	}
	return nil
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".ssess-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (s *Store) read(path string) (record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return record.Record{}, err
	}
	return record.Decode(data)
}

// Get returns the envelope stored for identifier.
func (s *Store) Get(_ context.Context, identifier string) (string, error) {
	path, err := s.path(identifier)
	if err != nil {
		return "", domain.ErrSessionNotFound
	}

	r, err := s.read(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", domain.ErrSessionNotFound
	case err != nil:
		return "", domain.ErrUnableToFetch.WithCause(err)
	}
	return r.Data, nil
}

// SessionExists reports whether a record file exists for identifier.
func (s *Store) SessionExists(_ context.Context, identifier string) bool {
	path, err := s.path(identifier)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Destroy removes the record file for identifier.
func (s *Store) Destroy(_ context.Context, identifier string) error {
	path, err := s.path(identifier)
	if err != nil {
		return domain.ErrSessionNotFound
	}

	err = s.remove(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return domain.ErrSessionNotFound
	case err != nil:
		return domain.ErrUnableToDelete.WithCause(err)
	}
	return nil
}

// ClearOld removes every record saved at or before now minus maxAge.
func (s *Store) ClearOld(ctx context.Context, maxAge time.Duration) error {
	_, err := s.ClearOldCount(ctx, maxAge)
	return err
}

// ClearOldCount is ClearOld that also reports how many records were removed.
// Files that cannot be parsed are logged and left in place.
func (s *Store) ClearOldCount(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, domain.ErrUnableToDelete.WithDetails("list directory").WithCause(err)
	}

	cutoff := record.Cutoff(s.now(), maxAge)
	var errs []error
	removed := 0

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, s.prefix) {
			continue
		}
		id := strings.TrimPrefix(name, s.prefix)
		path := filepath.Join(s.dir, name)

		r, err := s.read(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("skipping unreadable session file", "file", name, "error", err)
			}
			continue
		}
		if !r.Expired(cutoff) {
			continue
		}

		tok, locked := s.locks.TryLockOwned(id)
		if !locked {
			continue
		}
		ok, err := s.removeIfExpired(path, cutoff)
		s.locks.UnlockOwned(id, tok)

		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("cleared old sessions", "removed", removed)
	}
	if len(errs) > 0 {
		return removed, domain.ErrUnableToDelete.WithCause(errors.Join(errs...))
	}
	return removed, nil
}

// removeIfExpired re-reads path and removes it if still expired.
// The caller holds the identifier lock.
func (s *Store) removeIfExpired(path string, cutoff float64) (bool, error) {
	r, err := s.read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil || !r.Expired(cutoff) {
		return false, nil
	}
	if err := s.remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	return true, nil
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

// Close is a no-op; records stay on disk.
func (s *Store) Close() error {
	return nil
}
