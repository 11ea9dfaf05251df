package badger

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/ssess-go/internal/core/domain"
)

func newTestStore(t *testing.T, dir string, opts ...Option) *Store {
	t.Helper()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = time.Hour // keep the loop quiet during tests
	s, err := New(cfg, slog.Default(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNew_RequiresDir(t *testing.T) {
	if _, err := New(Config{}, nil); !errors.Is(err, domain.ErrUnableToSetupStorage) {
		t.Errorf("New() error = %v, want ErrUnableToSetupStorage", err)
	}
}

func TestNew_OpenFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := New(DefaultConfig(path), nil); !errors.Is(err, domain.ErrUnableToSetupStorage) {
		t.Errorf("New() on a regular file error = %v, want ErrUnableToSetupStorage", err)
	}
}

func TestStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := newTestStore(t, dir)
	if err := s.Save(ctx, "id", "envelope"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := newTestStore(t, dir)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "id")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got != "envelope" {
		t.Errorf("Get() after reopen = %q, want %q", got, "envelope")
	}
}

func TestStore_KeyLayout(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	defer s.Close()

	if err := s.Save(context.Background(), "abc", "x"); err != nil {
		t.Fatal(err)
	}
	err := s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte("ssess_abc"))
		return err
	})
	if err != nil {
		t.Errorf("record not stored under prefixed key: %v", err)
	}
}

func TestStore_ClearOld_ByAge(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestStore(t, t.TempDir(), WithClock(func() time.Time { return now }))
	defer s.Close()
	ctx := context.Background()

	_ = s.Save(ctx, "old", "x")
	now = now.Add(2 * time.Hour)
	_ = s.Save(ctx, "young", "y")

	removed, err := s.ClearOldCount(ctx, time.Hour)
	if err != nil {
		t.Fatalf("ClearOldCount() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if s.SessionExists(ctx, "old") || !s.SessionExists(ctx, "young") {
		t.Error("ClearOld removed the wrong records")
	}
}

func TestStore_ClearOld_SkipsMalformed(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte("ssess_bad"), []byte("garbage"))
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ClearOld(ctx, 0); err != nil {
		t.Fatalf("ClearOld() error = %v", err)
	}
	if !s.SessionExists(ctx, "bad") {
		t.Error("malformed record should be left in place")
	}
	if _, err := s.Get(ctx, "bad"); !errors.Is(err, domain.ErrUnableToFetch) {
		t.Errorf("Get(malformed) error = %v, want ErrUnableToFetch", err)
	}
}

func TestStore_GCAndStats(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_ = s.Save(ctx, "id", "payload")
	}
	if _, err := s.GC(ctx); err != nil {
		t.Fatalf("GC() error = %v", err)
	}

	stats := s.Stats()
	if stats.GCRuns != 1 {
		t.Errorf("GCRuns = %d, want 1", stats.GCRuns)
	}
	if stats.LastGCTime == 0 {
		t.Error("LastGCTime should be set after GC")
	}
}

func TestStore_RegisterMetrics(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	defer s.Close()

	reg := prometheus.NewRegistry()
	s.RegisterMetrics(reg)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"ssess_badger_lsm_size_bytes",
		"ssess_badger_value_log_size_bytes",
		"ssess_badger_last_gc_timestamp_seconds",
		"ssess_badger_gc_runs_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestStore_CloseIdempotent(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{Dir: "/tmp/x", GCThreshold: 1.5}
	cfg.applyDefaults()

	def := DefaultConfig("/tmp/x")
	if cfg.Prefix != def.Prefix || cfg.GCInterval != def.GCInterval || cfg.GCThreshold != def.GCThreshold {
		t.Errorf("applyDefaults() = %+v", cfg)
	}
}
