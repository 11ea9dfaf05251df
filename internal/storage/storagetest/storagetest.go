// Package storagetest provides a conformance suite that every storage
// backend runs from its own tests.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/ssess-go/internal/core/domain"
	"github.com/yndnr/ssess-go/internal/storage"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) storage.Storage

// Run runs the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storage)
	}{
		{"SaveGet", testSaveGet},
		{"SaveOverwrites", testSaveOverwrites},
		{"GetMissing", testGetMissing},
		{"SessionExists", testSessionExists},
		{"Destroy", testDestroy},
		{"DestroyMissing", testDestroyMissing},
		{"ClearOldZeroRemovesAll", testClearOldZero},
		{"ClearOldLargeKeepsAll", testClearOldLarge},
		{"ClearOldEmpty", testClearOldEmpty},
		{"ClearOldSkipsLocked", testClearOldSkipsLocked},
		{"LockUnlock", testLockUnlock},
		{"LockIndependentIdentifiers", testLockIndependent},
		{"OwnedLock", testOwnedLock},
		{"ConcurrentSaves", testConcurrentSaves},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() {
				if err := s.Close(); err != nil {
					t.Errorf("Close() error = %v", err)
				}
			})
			tt.fn(t, s)
		})
	}
}

func testSaveGet(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	envelope := `{"data":"c2VjcmV0","iv":"bm9uY2U="}`

	if err := s.Save(ctx, "id-1", envelope); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Get(ctx, "id-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != envelope {
		t.Errorf("Get() = %q, want %q", got, envelope)
	}
}

func testSaveOverwrites(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	mustSave(t, s, "id-1", "first")
	mustSave(t, s, "id-1", "second")

	got, err := s.Get(ctx, "id-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "second" {
		t.Errorf("Get() = %q, want %q", got, "second")
	}
}

func testGetMissing(t *testing.T, s storage.Storage) {
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func testSessionExists(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	if s.SessionExists(ctx, "id-1") {
		t.Error("SessionExists() = true before Save")
	}
	mustSave(t, s, "id-1", "x")
	if !s.SessionExists(ctx, "id-1") {
		t.Error("SessionExists() = false after Save")
	}
	if err := s.Destroy(ctx, "id-1"); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if s.SessionExists(ctx, "id-1") {
		t.Error("SessionExists() = true after Destroy")
	}
}

func testDestroy(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	mustSave(t, s, "id-1", "x")
	mustSave(t, s, "id-2", "y")

	if err := s.Destroy(ctx, "id-1"); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if _, err := s.Get(ctx, "id-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Get() after Destroy error = %v, want ErrSessionNotFound", err)
	}
	if got, err := s.Get(ctx, "id-2"); err != nil || got != "y" {
		t.Errorf("Get(id-2) = %q, %v; Destroy touched another record", got, err)
	}
}

func testDestroyMissing(t *testing.T, s storage.Storage) {
	if err := s.Destroy(context.Background(), "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Destroy(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func testClearOldZero(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		mustSave(t, s, fmt.Sprintf("id-%d", i), "x")
	}
	if err := s.ClearOld(ctx, 0); err != nil {
		t.Fatalf("ClearOld(0) error = %v", err)
	}
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("id-%d", i)
		if s.SessionExists(ctx, id) {
			t.Errorf("%s survived ClearOld(0)", id)
		}
	}
}

func testClearOldLarge(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	mustSave(t, s, "id-1", "x")
	mustSave(t, s, "id-2", "y")

	if err := s.ClearOld(ctx, 24*time.Hour); err != nil {
		t.Fatalf("ClearOld(24h) error = %v", err)
	}
	if !s.SessionExists(ctx, "id-1") || !s.SessionExists(ctx, "id-2") {
		t.Error("ClearOld(24h) removed a fresh record")
	}
}

func testClearOldEmpty(t *testing.T, s storage.Storage) {
	if err := s.ClearOld(context.Background(), 0); err != nil {
		t.Errorf("ClearOld() on empty store error = %v", err)
	}
}

func testClearOldSkipsLocked(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	mustSave(t, s, "locked", "x")
	mustSave(t, s, "free", "y")

	if !s.Lock(ctx, "locked") {
		t.Fatal("Lock() failed")
	}
	if err := s.ClearOld(ctx, 0); err != nil {
		t.Fatalf("ClearOld() error = %v", err)
	}
	if !s.SessionExists(ctx, "locked") {
		t.Error("ClearOld() removed a locked record")
	}
	if s.SessionExists(ctx, "free") {
		t.Error("ClearOld() kept an unlocked expired record")
	}

	s.Unlock(ctx, "locked")
	if err := s.ClearOld(ctx, 0); err != nil {
		t.Fatalf("ClearOld() error = %v", err)
	}
	if s.SessionExists(ctx, "locked") {
		t.Error("record should be removed once unlocked")
	}
}

func testLockUnlock(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	if !s.Lock(ctx, "id-1") {
		t.Fatal("first Lock() should succeed")
	}
	if s.Lock(ctx, "id-1") {
		t.Error("second Lock() on a held identifier should fail")
	}
	s.Unlock(ctx, "id-1")
	s.Unlock(ctx, "id-1") // idempotent
	if !s.Lock(ctx, "id-1") {
		t.Error("Lock() after Unlock should succeed")
	}
	s.Unlock(ctx, "id-1")

	// Unlocking something never locked is harmless.
	s.Unlock(ctx, "never-locked")
}

func testLockIndependent(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	if !s.Lock(ctx, "a") || !s.Lock(ctx, "b") {
		t.Fatal("locks on different identifiers should not interfere")
	}
	s.Unlock(ctx, "a")
	if s.Lock(ctx, "b") {
		t.Error("unlocking a should not release b")
	}
	s.Unlock(ctx, "b")
}

func testOwnedLock(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	ol, ok := s.(storage.OwnedLocker)
	if !ok {
		t.Skip("backend does not implement storage.OwnedLocker")
	}

	tok, ok := ol.LockOwned(ctx, "id-1")
	if !ok || tok == "" {
		t.Fatalf("LockOwned() = (%q, %v), want a token", tok, ok)
	}
	if _, ok := ol.LockOwned(ctx, "id-1"); ok {
		t.Error("second LockOwned() on a held identifier should fail")
	}
	if s.Lock(ctx, "id-1") {
		t.Error("Lock() should see the owned lock as held")
	}

	ol.UnlockOwned(ctx, "id-1", tok+"-other")
	if _, ok := ol.LockOwned(ctx, "id-1"); ok {
		t.Error("UnlockOwned() with a foreign token released the lock")
	}

	ol.UnlockOwned(ctx, "id-1", tok)
	again, ok := ol.LockOwned(ctx, "id-1")
	if !ok {
		t.Fatal("LockOwned() after the owner released should succeed")
	}
	if again == tok {
		t.Errorf("new acquisition reused token %q", tok)
	}
	ol.UnlockOwned(ctx, "id-1", again)
}

// RunLockTakeover checks that a holder whose lock expired cannot release the
// lock of whoever took it over. s must use a lock TTL, and expire must move
// time past it.
func RunLockTakeover(t *testing.T, s storage.Storage, expire func()) {
	t.Helper()
	ctx := context.Background()
	ol, ok := s.(storage.OwnedLocker)
	if !ok {
		t.Fatalf("%T does not implement storage.OwnedLocker", s)
	}

	first, ok := ol.LockOwned(ctx, "taken-over")
	if !ok {
		t.Fatal("first LockOwned() failed")
	}
	expire()

	second, ok := ol.LockOwned(ctx, "taken-over")
	if !ok {
		t.Fatal("expired lock should be taken over")
	}

	ol.UnlockOwned(ctx, "taken-over", first)
	if _, ok := ol.LockOwned(ctx, "taken-over"); ok {
		t.Fatal("third caller acquired the lock: the expired holder released the new holder's lock")
	}

	ol.UnlockOwned(ctx, "taken-over", second)
	if _, ok := ol.LockOwned(ctx, "taken-over"); !ok {
		t.Error("LockOwned() after the current holder released should succeed")
	}
}

func testConcurrentSaves(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	const workers, perWorker = 4, 10

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				if err := s.Save(ctx, id, id); err != nil {
					t.Errorf("Save(%s) error = %v", id, err)
				}
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		for i := 0; i < perWorker; i++ {
			id := fmt.Sprintf("w%d-%d", w, i)
			if got, err := s.Get(ctx, id); err != nil || got != id {
				t.Errorf("Get(%s) = %q, %v", id, got, err)
			}
		}
	}
}

func mustSave(t *testing.T, s storage.Storage, id, envelope string) {
	t.Helper()
	if err := s.Save(context.Background(), id, envelope); err != nil {
		t.Fatalf("Save(%s) error = %v", id, err)
	}
}
