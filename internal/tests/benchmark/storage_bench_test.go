package benchmark

import (
	"context"
	"testing"
	"time"

	"github.com/yndnr/ssess-go/internal/storage"
)

// BenchmarkStorageSave measures Save on every bundled backend.
func BenchmarkStorageSave(b *testing.B) {
	for _, backend := range storage.Backends() {
		b.Run(backend, func(b *testing.B) {
			ctx := context.Background()
			p := newProvider(b, "aes-128-gcm")
			s := openBackend(b, backend)
			ids := prefill(b, ctx, p, s, 100)
			env, _ := p.Encrypt(ids[0], `{"user":"bench"}`)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := s.Save(ctx, p.MakeIdentifier(ids[i%len(ids)]), env); err != nil {
					b.Fatalf("Save() error = %v", err)
				}
			}
		})
	}
}

// BenchmarkStorageGet measures Get on every bundled backend.
func BenchmarkStorageGet(b *testing.B) {
	for _, backend := range storage.Backends() {
		b.Run(backend, func(b *testing.B) {
			ctx := context.Background()
			p := newProvider(b, "aes-128-gcm")
			s := openBackend(b, backend)
			ids := prefill(b, ctx, p, s, 100)
			identifiers := make([]string, len(ids))
			for i, id := range ids {
				identifiers[i] = p.MakeIdentifier(id)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := s.Get(ctx, identifiers[i%len(identifiers)]); err != nil {
					b.Fatalf("Get() error = %v", err)
				}
			}
		})
	}
}

// BenchmarkStorageLockUnlock measures an uncontended lock round trip.
func BenchmarkStorageLockUnlock(b *testing.B) {
	for _, backend := range storage.Backends() {
		b.Run(backend, func(b *testing.B) {
			ctx := context.Background()
			s := openBackend(b, backend)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if !s.Lock(ctx, "bench-lock") {
					b.Fatal("Lock() = false")
				}
				s.Unlock(ctx, "bench-lock")
			}
		})
	}
}

// BenchmarkMemoryClearOld measures a GC pass over a populated memory store
// where nothing has expired yet.
func BenchmarkMemoryClearOld(b *testing.B) {
	runWithSessionCounts(b, SmallSessionCounts, func(b *testing.B, count int) {
		ctx := context.Background()
		p := newProvider(b, "aes-128-gcm")
		s := openBackend(b, storage.BackendMemory)
		prefill(b, ctx, p, s, count)

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if err := s.ClearOld(ctx, time.Hour); err != nil {
				b.Fatalf("ClearOld() error = %v", err)
			}
		}

		b.StopTimer()
		reportMemory(b, "mem")
	})
}
