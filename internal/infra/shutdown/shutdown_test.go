package shutdown

import (
	"context"
	"errors"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/yndnr/ssess-go/internal/telemetry/logger"
)

func newTestHandler() *Handler {
	return NewHandler(5*time.Second, logger.NewNop())
}

type orderRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *orderRecorder) hook(name string, err error) func(context.Context) error {
	return func(context.Context) error {
		r.mu.Lock()
		r.order = append(r.order, name)
		r.mu.Unlock()
		return err
	}
}

func (r *orderRecorder) got() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.order, ",")
}

func waitAsync(t *testing.T, h *Handler, ctx context.Context) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.Wait(ctx)
	}()
	return errCh
}

func receive(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
		return nil
	}
}

func TestHandler_Done(t *testing.T) {
	h := newTestHandler()

	select {
	case <-h.Done():
		t.Error("Done channel should not be closed initially")
	default:
	}
}

func TestHandler_Trigger_ReverseOrder(t *testing.T) {
	h := newTestHandler()
	rec := &orderRecorder{}

	h.OnShutdown("http", rec.hook("http", nil))
	h.OnShutdown("sweeper", rec.hook("sweeper", nil))
	h.OnShutdown("storage", rec.hook("storage", nil))

	errCh := waitAsync(t, h, context.Background())
	h.Trigger()
	h.Trigger()

	if err := receive(t, errCh); err != nil {
		t.Errorf("Wait() returned error: %v", err)
	}
	if got := rec.got(); got != "storage,sweeper,http" {
		t.Errorf("hooks called in order %q, want storage,sweeper,http", got)
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done channel should be closed after Wait completes")
	}
}

func TestHandler_Wait_Signal(t *testing.T) {
	h := newTestHandler()
	rec := &orderRecorder{}
	h.OnShutdown("only", rec.hook("only", nil))

	errCh := waitAsync(t, h, context.Background())
	time.Sleep(50 * time.Millisecond)

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	if err := receive(t, errCh); err != nil {
		t.Errorf("Wait() returned error: %v", err)
	}
	if rec.got() != "only" {
		t.Errorf("hook not run: %q", rec.got())
	}
}

func TestHandler_Wait_ContextDone(t *testing.T) {
	h := newTestHandler()
	rec := &orderRecorder{}
	h.OnShutdown("only", rec.hook("only", nil))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := waitAsync(t, h, ctx)
	cancel()

	if err := receive(t, errCh); err != nil {
		t.Errorf("Wait() returned error: %v", err)
	}
	if rec.got() != "only" {
		t.Errorf("hook not run: %q", rec.got())
	}
}

func TestHandler_Wait_HookErrorsJoined(t *testing.T) {
	h := newTestHandler()
	rec := &orderRecorder{}
	errStorage := errors.New("storage close failed")
	errHTTP := errors.New("listener close failed")

	h.OnShutdown("http", rec.hook("http", errHTTP))
	h.OnShutdown("storage", rec.hook("storage", errStorage))

	errCh := waitAsync(t, h, context.Background())
	h.Trigger()

	err := receive(t, errCh)
	if !errors.Is(err, errStorage) || !errors.Is(err, errHTTP) {
		t.Errorf("Wait() error = %v, want both hook errors", err)
	}
	if rec.got() != "storage,http" {
		t.Errorf("a failing hook stopped later hooks: %q", rec.got())
	}
	if !strings.Contains(err.Error(), "storage:") {
		t.Errorf("error %q should name the hook", err)
	}
}

func TestHandler_HookTimeoutContext(t *testing.T) {
	h := NewHandler(10*time.Millisecond, logger.NewNop())
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	errCh := waitAsync(t, h, context.Background())
	h.Trigger()

	if err := receive(t, errCh); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := newTestHandler()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown("noop", func(context.Context) error { return nil })
		}()
	}
	wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.hooks) != 50 {
		t.Errorf("expected 50 hooks, got %d", len(h.hooks))
	}
}
