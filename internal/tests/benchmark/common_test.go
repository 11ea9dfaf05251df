package benchmark

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/yndnr/ssess-go/internal/core/crypt"
	"github.com/yndnr/ssess-go/internal/storage"
	redisstore "github.com/yndnr/ssess-go/internal/storage/redis"
	"github.com/yndnr/ssess-go/internal/telemetry/logger"
	"github.com/yndnr/ssess-go/pkg/token"
)

// PayloadSizes are the plaintext sizes, in bytes, used for crypto benchmarks.
var PayloadSizes = []int{64, 1024, 16 * 1024}

// SmallSessionCounts for quick benchmarks.
var SmallSessionCounts = []int{1000, 5000, 10000}

const benchSecret = "benchmark-application-secret"

func newProvider(b *testing.B, cipher string) *crypt.Provider {
	b.Helper()
	p, err := crypt.NewFromNames([]byte(benchSecret), "sha512", cipher)
	if err != nil {
		b.Fatalf("NewFromNames(%s) error = %v", cipher, err)
	}
	return p
}

func newSessionID(b *testing.B) string {
	b.Helper()
	id, err := token.NewSessionID()
	if err != nil {
		b.Fatalf("NewSessionID() error = %v", err)
	}
	return id
}

func payload(size int) string {
	return strings.Repeat("x", size)
}

// openBackend opens the named backend in a throwaway location. The redis
// backend runs against an in-process miniredis.
func openBackend(b *testing.B, backend string) storage.Storage {
	b.Helper()

	cfg := storage.Config{Backend: backend}
	switch backend {
	case storage.BackendFile:
		cfg.Dir = b.TempDir()
	case storage.BackendBadger:
		cfg.Badger.InMemory = true
	case storage.BackendRedis:
		mr := miniredis.RunT(b)
		cfg.Redis = redisstore.Config{Addr: mr.Addr()}
	}

	s, err := storage.Open(context.Background(), cfg, logger.Slog(logger.NewNop()))
	if err != nil {
		b.Fatalf("Open(%s) error = %v", backend, err)
	}
	b.Cleanup(func() { s.Close() })
	return s
}

// prefill seals count sessions into s and returns their ids.
func prefill(b *testing.B, ctx context.Context, p *crypt.Provider, s storage.Storage, count int) []string {
	b.Helper()
	ids := make([]string, count)
	for i := range ids {
		ids[i] = newSessionID(b)
		env, err := p.Encrypt(ids[i], `{"user":"bench"}`)
		if err != nil {
			b.Fatalf("Encrypt() error = %v", err)
		}
		if err := s.Save(ctx, p.MakeIdentifier(ids[i]), env); err != nil {
			b.Fatalf("Save() error = %v", err)
		}
	}
	return ids
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithSessionCounts runs a benchmark function with various session counts.
func runWithSessionCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("sessions_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
