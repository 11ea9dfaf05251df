package httpsession

import (
	"context"
	"testing"
	"time"

	"github.com/yndnr/ssess-go/internal/server/config"
)

func TestSweeper_Sweep(t *testing.T) {
	f := newFixture(t, func(c *config.SessionSection) { c.MaxLife = 60 })

	stale := sessionCookie(t, f.serve(t, "", setValue("k", "v")), f.cfg.CookieName).Value
	f.clock.Advance(2 * time.Minute)
	fresh := sessionCookie(t, f.serve(t, "", setValue("k", "v")), f.cfg.CookieName).Value

	s := NewSweeper(f.manager, 0)
	if !s.Sweep(context.Background()) {
		t.Fatal("Sweep() = false")
	}
	if f.exists(stale) {
		t.Error("expired session survived")
	}
	if !f.exists(fresh) {
		t.Error("live session was removed")
	}
}

func TestSweeper_StartStop(t *testing.T) {
	f := newFixture(t, func(c *config.SessionSection) { c.MaxLife = 60 })
	stale := sessionCookie(t, f.serve(t, "", setValue("k", "v")), f.cfg.CookieName).Value
	f.clock.Advance(2 * time.Minute)

	s := NewSweeper(f.manager, 5*time.Millisecond)
	s.Start(context.Background())
	s.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for f.exists(stale) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	s.Stop()

	if f.exists(stale) {
		t.Error("background sweep did not remove the expired session")
	}
}

func TestSweeper_ZeroInterval(t *testing.T) {
	f := newFixture(t, func(c *config.SessionSection) { c.GCInterval = 0 })
	s := NewSweeper(f.manager, 0)
	s.Start(context.Background())
	s.Stop()
}
