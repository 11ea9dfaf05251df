package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yndnr/ssess-go/internal/core/domain"
	"github.com/yndnr/ssess-go/internal/storage/internal/record"
	"github.com/yndnr/ssess-go/pkg/cmap"
	"github.com/yndnr/ssess-go/pkg/token"
)

const (
	// DefaultPrefix namespaces every key.
	DefaultPrefix = "ssess"

	// DefaultLockTTL bounds how long an abandoned lock blocks a session.
	DefaultLockTTL = 30 * time.Second
)

// Config configures the redis backend.
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int

	// Prefix namespaces every key. Default: "ssess"
	Prefix string

	// LockTTL is the expiry of lock keys. Default: 30s
	LockTTL time.Duration

	// DialTimeout bounds the initial connection. Default: 5s
	DialTimeout time.Duration
}

const clearIfOldScript = `
local score = redis.call("ZSCORE", KEYS[2], ARGV[1])
if not score then
  return 0
end
if tonumber(score) <= tonumber(ARGV[2]) then
  redis.call("DEL", KEYS[1])
  redis.call("ZREM", KEYS[2], ARGV[1])
  return 1
end
return 0
`

var clearIfOldLua = goredis.NewScript(clearIfOldScript)

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var unlockLua = goredis.NewScript(unlockScript)

// Store keeps session records in Redis.
type Store struct {
	client  goredis.UniversalClient
	owned   bool
	prefix  string
	lockTTL time.Duration
	tokens  *cmap.Map[string]
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithClock replaces the time source used for record stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config, logger *slog.Logger, opts ...Option) (*Store, error) {
	if cfg.Addr == "" {
		return nil, domain.ErrUnableToSetupStorage.WithDetails("redis: addr is required")
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, domain.ErrUnableToSetupStorage.WithDetails("redis: ping " + cfg.Addr).WithCause(err)
	}

	s := NewWithClient(client, cfg, logger, opts...)
	s.owned = true
	s.logger.Info("redis store connected", "addr", cfg.Addr, "db", cfg.DB)
	return s, nil
}

// NewWithClient wraps an existing client. The caller keeps ownership of it.
func NewWithClient(client goredis.UniversalClient, cfg Config, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}

	s := &Store{
		client:  client,
		prefix:  cfg.Prefix,
		lockTTL: cfg.LockTTL,
		tokens:  cmap.New[string](),
		logger:  logger.With("backend", "redis"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) recordKey(identifier string) string {
	return s.prefix + ":rec:" + identifier
}

func (s *Store) indexKey() string {
	return s.prefix + ":idx"
}

func (s *Store) lockKey(identifier string) string {
	return s.prefix + ":lock:" + identifier
}

// Save writes the record and its index entry atomically.
func (s *Store) Save(ctx context.Context, identifier, envelope string) error {
	r := record.New(envelope, s.now())
	data, err := record.Encode(r)
	if err != nil {
		return domain.ErrUnableToSave.WithCause(err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(identifier), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), goredis.Z{Score: r.Time, Member: identifier})
		return nil
	})
	if err != nil {
		return domain.ErrUnableToSave.WithCause(err)
	}
	return nil
}

// Get returns the envelope stored under identifier.
func (s *Store) Get(ctx context.Context, identifier string) (string, error) {
	data, err := s.client.Get(ctx, s.recordKey(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", domain.ErrSessionNotFound
		}
		return "", domain.ErrUnableToFetch.WithCause(err)
	}

	r, err := record.Decode(data)
	if err != nil {
		return "", domain.ErrUnableToFetch.WithCause(err)
	}
	return r.Data, nil
}

// SessionExists reports whether a record exists for identifier.
func (s *Store) SessionExists(ctx context.Context, identifier string) bool {
	n, err := s.client.Exists(ctx, s.recordKey(identifier)).Result()
	if err != nil {
		s.logger.Warn("exists check failed", "identifier", identifier, "error", err)
		return false
	}
	return n == 1
}

// Destroy removes the record and its index entry.
func (s *Store) Destroy(ctx context.Context, identifier string) error {
	var del *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		del = pipe.Del(ctx, s.recordKey(identifier))
		pipe.ZRem(ctx, s.indexKey(), identifier)
		return nil
	})
	if err != nil {
		return domain.ErrUnableToDelete.WithCause(err)
	}
	if del.Val() == 0 {
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
	max := strconv.FormatFloat(cutoff, 'f', -1, 64)

	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), &goredis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		return 0, domain.ErrUnableToDelete.WithDetails("scan index").WithCause(err)
	}

	var errs []error
	removed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		tok, locked := s.LockOwned(ctx, id)
		if !locked {
			continue
		}
		n, err := clearIfOldLua.Run(ctx, s.client,
			[]string{s.recordKey(id), s.indexKey()}, id, max).Int()
		s.UnlockOwned(ctx, id, tok)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		removed += n
	}

	if removed > 0 {
		s.logger.Debug("cleared old sessions", "removed", removed)
	}
	if len(errs) > 0 {
		return removed, domain.ErrUnableToDelete.WithCause(errors.Join(errs...))
	}
	return removed, nil
}

// Lock makes a single SET NX attempt on the lock key.
// The acquisition token is remembered per identifier for Unlock.
func (s *Store) Lock(ctx context.Context, identifier string) bool {
	tok, ok := s.LockOwned(ctx, identifier)
	if ok {
		s.tokens.Set(identifier, tok)
	}
	return ok
}

// Unlock releases the lock taken by the last successful Lock on this store,
// if that acquisition still owns the key.
func (s *Store) Unlock(ctx context.Context, identifier string) {
	tok, ok := s.tokens.Pop(identifier)
	if !ok {
		return
	}
	s.UnlockOwned(ctx, identifier, tok)
}

// LockOwned makes a single SET NX attempt and returns the token stored in
// the lock key.
func (s *Store) LockOwned(ctx context.Context, identifier string) (string, bool) {
	tok, err := token.GenerateWithLength(16)
	if err != nil {
		s.logger.Warn("lock token generation failed", "error", err)
		return "", false
	}

	ok, err := s.client.SetNX(ctx, s.lockKey(identifier), tok, s.lockTTL).Result()
	if err != nil {
		s.logger.Warn("lock attempt failed", "identifier", identifier, "error", err)
		return "", false
	}
	if !ok {
		return "", false
	}
	return tok, true
}

// UnlockOwned deletes the lock key only while it still holds tok.
func (s *Store) UnlockOwned(ctx context.Context, identifier, tok string) {
	if err := unlockLua.Run(ctx, s.client, []string{s.lockKey(identifier)}, tok).Err(); err != nil {
		s.logger.Warn("unlock failed", "identifier", identifier, "error", err)
	}
}

// Close releases the client if New created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
