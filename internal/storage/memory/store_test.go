package memory

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestStore_ClearOld_ByAge(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(WithClock(clock.Now))
	ctx := context.Background()

	_ = s.Save(ctx, "old", "x")
	clock.Advance(30 * time.Minute)
	_ = s.Save(ctx, "young", "y")
	clock.Advance(30 * time.Minute)

	removed, err := s.ClearOldCount(ctx, 45*time.Minute)
	if err != nil {
		t.Fatalf("ClearOldCount() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if s.SessionExists(ctx, "old") {
		t.Error("old record should be removed")
	}
	if !s.SessionExists(ctx, "young") {
		t.Error("young record should be kept")
	}
}

func TestStore_ClearOld_Boundary(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(WithClock(clock.Now))
	ctx := context.Background()

	_ = s.Save(ctx, "id", "x")
	clock.Advance(time.Hour)

	// A record exactly maxAge old is expired.
	if n, _ := s.ClearOldCount(ctx, time.Hour); n != 1 {
		t.Errorf("record at exactly maxAge: removed = %d, want 1", n)
	}
}

func TestStore_SaveRefreshesTime(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(WithClock(clock.Now))
	ctx := context.Background()

	_ = s.Save(ctx, "id", "v1")
	clock.Advance(50 * time.Minute)
	_ = s.Save(ctx, "id", "v2")
	clock.Advance(20 * time.Minute)

	if n, _ := s.ClearOldCount(ctx, time.Hour); n != 0 {
		t.Errorf("rewritten record was removed")
	}
}

func TestStore_AbandonedLockExpires(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(WithClock(clock.Now), WithLockTTL(10*time.Second))
	ctx := context.Background()

	if !s.Lock(ctx, "id") {
		t.Fatal("Lock() failed")
	}
	if s.Lock(ctx, "id") {
		t.Fatal("live lock was stolen")
	}
	clock.Advance(10 * time.Second)
	if !s.Lock(ctx, "id") {
		t.Error("abandoned lock should be taken over")
	}
}

func TestStore_InstancesAreIsolated(t *testing.T) {
	a, b := New(), New()
	ctx := context.Background()

	_ = a.Save(ctx, "id", "x")
	if b.SessionExists(ctx, "id") {
		t.Error("stores should not share records")
	}
	if !a.Lock(ctx, "id") || !b.Lock(ctx, "id") {
		t.Error("stores should not share locks")
	}
}

func TestStore_ClearOld_CanceledContext(t *testing.T) {
	s := New()
	_ = s.Save(context.Background(), "id", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.ClearOld(ctx, 0); err == nil {
		t.Error("ClearOld() with canceled context should fail")
	}
}

func TestStore_CountAndClose(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Save(ctx, "a", "x")
	_ = s.Save(ctx, "b", "y")

	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2", s.Count())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("Count() after Close = %d, want 0", s.Count())
	}
}
