package storage

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/ssess-go/internal/core/domain"
	badgerstore "github.com/yndnr/ssess-go/internal/storage/badger"
	filestore "github.com/yndnr/ssess-go/internal/storage/file"
	"github.com/yndnr/ssess-go/internal/storage/memory"
	redisstore "github.com/yndnr/ssess-go/internal/storage/redis"
)

// Storage persists encrypted session envelopes under opaque identifiers.
//
// Implementations must be safe for concurrent use. Lock is advisory: it
// serializes cooperating callers but does not block Save or Get.
type Storage interface {
	// Save stores envelope under identifier, overwriting any previous record
	// and stamping it with the current time. Fails with ErrUnableToSave.
	Save(ctx context.Context, identifier, envelope string) error

	// Get returns the stored envelope.
	// Fails with ErrSessionNotFound or ErrUnableToFetch.
	Get(ctx context.Context, identifier string) (string, error)

	// SessionExists reports whether a record exists. It never fails and
	// never caches.
	SessionExists(ctx context.Context, identifier string) bool

	// Destroy removes the record.
	// Fails with ErrSessionNotFound or ErrUnableToDelete.
	Destroy(ctx context.Context, identifier string) error

	// ClearOld removes every record stamped at or before now minus maxAge.
	// Identifiers that are currently locked are skipped. All candidates are
	// attempted; failures are reported as one ErrUnableToDelete.
	ClearOld(ctx context.Context, maxAge time.Duration) error

	// Lock makes a single non-blocking attempt to take the advisory lock.
	Lock(ctx context.Context, identifier string) bool

	// Unlock releases the advisory lock. Releasing a free lock is a no-op.
	Unlock(ctx context.Context, identifier string)

	// Close releases backend resources.
	Close() error
}

// SweepCounter is implemented by backends that report how many records a
// ClearOld pass removed. All bundled backends implement it.
type SweepCounter interface {
	ClearOldCount(ctx context.Context, maxAge time.Duration) (int, error)
}

// OwnedLocker is implemented by backends that tie each lock acquisition to
// a token. UnlockOwned releases the lock only while the token still names
// its holder, so a holder whose lock expired and was taken over cannot
// release the new holder's lock. All bundled backends implement it.
type OwnedLocker interface {
	LockOwned(ctx context.Context, identifier string) (token string, ok bool)
	UnlockOwned(ctx context.Context, identifier, token string)
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Backends returns the names accepted by Open.
func Backends() []string {
	return []string{BackendMemory, BackendFile, BackendBadger, BackendRedis}
}

// Config selects and configures a backend.
type Config struct {
	// Backend is one of memory, file, badger, redis.
	// Default: file
	Backend string

	// Dir is the directory for the file and badger backends.
	Dir string

	// Prefix namespaces file names (file), keys (badger) or key prefixes (redis).
	// Empty uses the backend default.
	Prefix string

	// LockTTL is how long a lock may be held before it counts as abandoned.
	// Zero uses the backend default (never for in-process backends, 30s for redis).
	LockTTL time.Duration

	// Badger holds badger tuning. Dir, Prefix and LockTTL above take precedence.
	Badger badgerstore.Config

	// Redis holds connection settings. Prefix and LockTTL above take precedence.
	Redis redisstore.Config

	// Registerer receives backend metrics when set.
	Registerer prometheus.Registerer
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendFile
	}

	switch backend {
	case BackendMemory:
		return memory.New(memory.WithLockTTL(cfg.LockTTL), memory.WithLogger(logger)), nil

	case BackendFile:
		s, err := filestore.New(filestore.Config{
			Dir:     cfg.Dir,
			Prefix:  cfg.Prefix,
			LockTTL: cfg.LockTTL,
		}, logger)
		if err != nil {
			return nil, err
		}
		return s, nil

	case BackendBadger:
		bc := cfg.Badger
		if cfg.Dir != "" {
			bc.Dir = cfg.Dir
		}
		if cfg.Prefix != "" {
			bc.Prefix = cfg.Prefix
		}
		if cfg.LockTTL > 0 {
			bc.LockTTL = cfg.LockTTL
		}
		s, err := badgerstore.New(bc, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Registerer != nil {
			s.RegisterMetrics(cfg.Registerer)
		}
		return s, nil

	case BackendRedis:
		rc := cfg.Redis
		if cfg.Prefix != "" {
			rc.Prefix = cfg.Prefix
		}
		if cfg.LockTTL > 0 {
			rc.LockTTL = cfg.LockTTL
		}
		s, err := redisstore.New(ctx, rc, logger)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, domain.ErrUnknownBackend.WithDetails(cfg.Backend)
	}
}
