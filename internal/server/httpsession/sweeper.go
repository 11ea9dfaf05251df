package httpsession

import (
	"context"
	"sync"
	"time"

	"github.com/yndnr/ssess-go/internal/core/session"
)

// Sweeper runs session GC on a fixed interval and prunes idle mint limiters.
type Sweeper struct {
	manager  *Manager
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper returns a Sweeper for m. A non-positive interval falls back to
// session.gc_interval; if that is zero too, Start does nothing.
func NewSweeper(m *Manager, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = m.cfg.GCInterval
	}
	return &Sweeper{manager: m, interval: interval}
}

// Start launches the sweep loop. It returns immediately.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil || s.interval <= 0 {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

// Stop ends the loop and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one GC pass and reports whether it succeeded.
func (s *Sweeper) Sweep(ctx context.Context) bool {
	m := s.manager
	log := m.log.WithContext(ctx)

	if n := m.limiter.Prune(); n > 0 {
		log.Debug("pruned idle mint limiters", "count", n)
	}

	env := sweepEnv{}
	opts := append(m.handlerOptions(log), session.WithInsecureSettingsAllowed(true))
	h, err := session.NewHandler(ctx, m.crypt, m.store, env, opts...)
	if err != nil {
		log.Error("failed to create gc handler", "error", err)
		return false
	}
	return h.GC(ctx, m.cfg.MaxLife)
}

// sweepEnv is the environment of a GC pass, which has no client.
type sweepEnv struct{}

func (sweepEnv) Setting(string) bool            { return false }
func (sweepEnv) PresentedID() string            { return "" }
func (sweepEnv) SessionID() string              { return "" }
func (sweepEnv) SetSessionID(string)            {}
func (sweepEnv) MintSessionID() (string, error) { return "", nil }

var _ session.Environment = sweepEnv{}

