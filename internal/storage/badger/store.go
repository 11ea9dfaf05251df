package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/ssess-go/internal/core/domain"
	"github.com/yndnr/ssess-go/internal/storage/internal/locktable"
	"github.com/yndnr/ssess-go/internal/storage/internal/record"
)

// Store keeps session records in a Badger database.
type Store struct {
	db     *badgerdb.DB
	cfg    Config
	prefix []byte
	locks  *locktable.Table
	logger *slog.Logger
	now    func() time.Time

	// Internal counters
	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64

	// Prometheus metrics
	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsGCRuns       prometheus.Counter

	// Shutdown
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
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

// New opens a Badger-backed store.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Store, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, domain.ErrUnableToSetupStorage.WithDetails("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	logger = logger.With("backend", "badger")

	dbOpts := badgerdb.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		dbOpts = badgerdb.DefaultOptions("").WithInMemory(true)
	}
	dbOpts.Logger = &badgerLogger{logger: logger}
	dbOpts.BlockCacheSize = cfg.CacheSize
	dbOpts.ValueLogFileSize = cfg.ValueLogFileSize
	dbOpts.NumMemtables = cfg.NumMemtables
	dbOpts.SyncWrites = cfg.SyncWrites && !cfg.InMemory

	db, err := badgerdb.Open(dbOpts)
	if err != nil {
		return nil, domain.ErrUnableToSetupStorage.WithDetails("badger: open db").WithCause(err)
	}

	s := &Store{
		db:     db,
		cfg:    cfg,
		prefix: []byte(cfg.Prefix),
		logger: logger,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.locks = locktable.New(cfg.LockTTL).WithClock(s.now)

	if !cfg.InMemory {
		s.wg.Add(1)
		go s.gcLoop()
	}

	logger.Info("badger store opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"cache_size", cfg.CacheSize,
		"gc_interval", cfg.GCInterval)

	return s, nil
}

func (s *Store) key(identifier string) []byte {
	k := make([]byte, 0, len(s.prefix)+len(identifier))
	k = append(k, s.prefix...)
	return append(k, identifier...)
}

// Save stores envelope under identifier, replacing any previous record.
func (s *Store) Save(_ context.Context, identifier, envelope string) error {
	value, err := record.Encode(record.New(envelope, s.now()))
	if err != nil {
		return domain.ErrUnableToSave.WithCause(err)
	}
	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(s.key(identifier), value)
	})
	if err != nil {
		return domain.ErrUnableToSave.WithCause(err)
	}
	return nil
}

func (s *Store) get(txn *badgerdb.Txn, key []byte) (record.Record, error) {
	item, err := txn.Get(key)
	if err != nil {
		return record.Record{}, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return record.Record{}, err
	}
	return record.Decode(value)
}

// Get returns the envelope stored under identifier.
func (s *Store) Get(_ context.Context, identifier string) (string, error) {
	var r record.Record
	err := s.db.View(func(txn *badgerdb.Txn) error {
		var err error
		r, err = s.get(txn, s.key(identifier))
		return err
	})
	switch {
	case errors.Is(err, badgerdb.ErrKeyNotFound):
		return "", domain.ErrSessionNotFound
	case err != nil:
		return "", domain.ErrUnableToFetch.WithCause(err)
	}
	return r.Data, nil
}

// SessionExists reports whether a record exists for identifier.
func (s *Store) SessionExists(_ context.Context, identifier string) bool {
	err := s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(s.key(identifier))
		return err
	})
	if err != nil && !errors.Is(err, badgerdb.ErrKeyNotFound) {
		s.logger.Warn("exists check failed", "identifier", identifier, "error", err)
	}
	return err == nil
}

// Destroy removes the record for identifier.
func (s *Store) Destroy(_ context.Context, identifier string) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		key := s.key(identifier)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	switch {
	case errors.Is(err, badgerdb.ErrKeyNotFound):
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
func (s *Store) ClearOldCount(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := record.Cutoff(s.now(), maxAge)

	candidates, err := s.scanExpired(cutoff)
	if err != nil {
		return 0, domain.ErrUnableToDelete.WithDetails("scan").WithCause(err)
	}

	var errs []error
	removed := 0
	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		tok, locked := s.locks.TryLockOwned(id)
		if !locked {
			continue
		}
		ok, err := s.deleteIfExpired(id, cutoff)
		s.locks.UnlockOwned(id, tok)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
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

func (s *Store) scanExpired(cutoff float64) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			r, err := record.Decode(value)
			if err != nil {
				s.logger.Warn("skipping malformed record", "key", string(item.Key()), "error", err)
				continue
			}
			if r.Expired(cutoff) {
				ids = append(ids, string(item.Key()[len(s.prefix):]))
			}
		}
		return nil
	})
	return ids, err
}

// deleteIfExpired re-checks the record inside a write transaction.
func (s *Store) deleteIfExpired(identifier string, cutoff float64) (bool, error) {
	deleted := false
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		key := s.key(identifier)
		r, err := s.get(txn, key)
		if errors.Is(err, badgerdb.ErrKeyNotFound) || errors.Is(err, record.ErrMalformed) {
			return nil
		}
		if err != nil {
			return err
		}
		if !r.Expired(cutoff) {
			return nil
		}
		deleted = true
		return txn.Delete(key)
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
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

// GC runs value log garbage collection until nothing more can be rewritten.
// Returns the number of value log files rewritten.
func (s *Store) GC(ctx context.Context) (int, error) {
	startTime := time.Now()

	rewrites := 0
	for ctx.Err() == nil {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badgerdb.ErrNoRewrite) || errors.Is(err, badgerdb.ErrRejected) ||
				errors.Is(err, badgerdb.ErrGCInMemoryMode) {
				break
			}
			return rewrites, fmt.Errorf("gc: %w", err)
		}
		rewrites++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcRuns.Add(1)
	if s.metricsGCRuns != nil {
		s.metricsGCRuns.Inc()
	}

	s.logger.Debug("value log gc completed",
		"rewrites", rewrites,
		"elapsed", time.Since(startTime))

	return rewrites, nil
}

// Stats contains storage statistics.
type Stats struct {
	LSMSize      int64
	ValueLogSize int64
	LastGCTime   int64 // Unix milliseconds
	GCRuns       uint64
}

// Stats returns storage statistics.
func (s *Store) Stats() Stats {
	lsm, vlog := s.db.Size()
	return Stats{
		LSMSize:      lsm,
		ValueLogSize: vlog,
		LastGCTime:   s.lastGCTime.Load(),
		GCRuns:       s.gcRuns.Load(),
	}
}

// Close stops background loops and closes the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		if cerr := s.db.Close(); cerr != nil {
			err = fmt.Errorf("badger: close db: %w", cerr)
		}
		s.logger.Info("badger store closed")
	})
	return err
}

// RegisterMetrics registers Badger size gauges with reg and starts a loop
// that refreshes them. Returns the store for method chaining.
func (s *Store) RegisterMetrics(reg prometheus.Registerer) *Store {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ssess",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})
	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ssess",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})
	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ssess",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger value log GC run",
	})
	s.metricsGCRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ssess",
		Subsystem: "badger",
		Name:      "gc_runs_total",
		Help:      "Number of Badger value log GC runs",
	})

	reg.MustRegister(
		s.metricsLSMSize,
		s.metricsValueLogSize,
		s.metricsLastGCTime,
		s.metricsGCRuns,
	)

	s.updateMetrics()
	s.wg.Add(1)
	go s.metricsUpdateLoop()

	return s
}

func (s *Store) updateMetrics() {
	stats := s.Stats()
	s.metricsLSMSize.Set(float64(stats.LSMSize))
	s.metricsValueLogSize.Set(float64(stats.ValueLogSize))
	if stats.LastGCTime > 0 {
		s.metricsLastGCTime.Set(float64(stats.LastGCTime) / 1000.0) // ms to seconds
	}
}

// metricsUpdateLoop periodically refreshes the size gauges.
func (s *Store) metricsUpdateLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateMetrics()
		case <-s.stopCh:
			return
		}
	}
}

// gcLoop runs periodic value log garbage collection.
func (s *Store) gcLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.GC(ctx); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
			cancel()

		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
