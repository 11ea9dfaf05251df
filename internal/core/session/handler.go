package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/yndnr/ssess-go/internal/core/domain"
	"github.com/yndnr/ssess-go/internal/storage"
	"github.com/yndnr/ssess-go/internal/telemetry/logger"
)

// Host security settings consulted at construction.
const (
	SettingUseStrictMode  = "use_strict_mode"
	SettingUseCookies     = "use_cookies"
	SettingUseOnlyCookies = "use_only_cookies"
	SettingUseTransSID    = "use_trans_sid"
)

// Environment is the host runtime as seen by a Handler.
type Environment interface {
	// Setting returns the value of a boolean host setting.
	Setting(name string) bool

	// PresentedID is the id the client sent on the canonical channel,
	// or "" if it sent none.
	PresentedID() string

	// SessionID is the id in effect for the current request.
	SessionID() string

	// SetSessionID replaces the id in effect for the current request.
	SetSessionID(id string)

	// MintSessionID generates a new session id.
	MintSessionID() (string, error)
}

// Crypter derives identifiers and seals session data.
// *crypt.Provider implements it.
type Crypter interface {
	MakeIdentifier(sessionID string) string
	Encrypt(sessionID, plaintext string) (string, error)
	Decrypt(sessionID, envelope string) (string, error)
}

// State is the position of a Handler in its per-request lifecycle.
type State int

const (
	StateIdle State = iota
	StateOpening
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Handler runs one request's session lifecycle against a Crypter and a
// Storage. It is not meant to be shared between requests.
type Handler struct {
	crypt Crypter
	store storage.Storage
	env   Environment
	opts  options
	log   logger.Logger

	mu    sync.Mutex
	state State
	held  []heldLock // locks taken by Open and Claim, released by Close
}

// heldLock is one advisory lock acquisition. token is empty when the
// backend does not implement storage.OwnedLocker.
type heldLock struct {
	id    string
	token string
}

// NewHandler validates the host settings, runs the fixation guard and
// returns an idle Handler.
//
// The settings are checked in this order unless WithInsecureSettingsAllowed
// is given: use_cookies on, use_only_cookies on, use_trans_sid off,
// use_strict_mode on. The first violation is returned; each one wraps
// domain.ErrInsecureSettings.
func NewHandler(ctx context.Context, crypt Crypter, store storage.Storage, env Environment, opts ...Option) (*Handler, error) {
	if crypt == nil || store == nil || env == nil {
		return nil, domain.ErrMissingArgument.WithDetails("crypter, storage and environment are required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	h := &Handler{
		crypt: crypt,
		store: store,
		env:   env,
		opts:  o,
		log:   o.logger.WithContext(ctx),
		state: StateIdle,
	}

	if !o.allowInsecure {
		if err := checkSettings(env); err != nil {
			return nil, err
		}
	}

	if err := h.guardFixation(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

func checkSettings(env Environment) error {
	switch {
	case !env.Setting(SettingUseCookies):
		return domain.ErrUseCookiesDisabled
	case !env.Setting(SettingUseOnlyCookies):
		return domain.ErrUseOnlyCookiesDisabled
	case env.Setting(SettingUseTransSID):
		return domain.ErrUseTransSIDEnabled
	case !env.Setting(SettingUseStrictMode):
		return domain.ErrUseStrictModeDisabled
	}
	return nil
}

// guardFixation replaces a presented id that has no stored session.
func (h *Handler) guardFixation(ctx context.Context) error {
	if !h.env.Setting(SettingUseStrictMode) {
		return nil
	}
	presented := h.env.PresentedID()
	if presented == "" {
		return nil
	}
	if h.store.SessionExists(ctx, h.crypt.MakeIdentifier(presented)) {
		return nil
	}

	minted, err := h.env.MintSessionID()
	if err != nil {
		return domain.ErrUnableToGenerateRandomness.WithCause(err)
	}
	h.env.SetSessionID(minted)
	h.opts.metrics.IncFixationRejected()
	h.log.Info("rejected unknown presented session id", "presented_id", presented)
	return nil
}

// State returns the current lifecycle state.
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handler) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// Open takes the advisory lock for the current session id, retrying at a
// fixed interval. It fails with domain.ErrLockTimeout when the configured
// lock timeout passes, or with the context's error when ctx is done.
//
// savePath and name are the host's storage location and session name; the
// backend is fixed at construction so they are only logged.
func (h *Handler) Open(ctx context.Context, savePath, name string) error {
	h.mu.Lock()
	if h.state != StateIdle {
		st := h.state
		h.mu.Unlock()
		return domain.ErrInvalidArgument.WithDetails("open called in state " + st.String())
	}
	h.state = StateOpening
	h.mu.Unlock()

	h.log.Debug("opening session", "save_path", savePath, "name", name)

	id := h.crypt.MakeIdentifier(h.env.SessionID())
	start := h.opts.now()
	lock, err := h.acquire(ctx, id)
	if err != nil {
		h.setState(StateIdle)
		if errors.Is(err, domain.ErrLockTimeout) {
			h.opts.metrics.ObserveOperation(OpOpen, ResultTimeout)
		} else {
			h.opts.metrics.ObserveOperation(OpOpen, ResultError)
		}
		h.log.Warn("failed to acquire session lock", "identifier", id, "error", err)
		return err
	}
	h.opts.metrics.ObserveLockWait(h.opts.now().Sub(start))
	h.opts.metrics.ObserveOperation(OpOpen, ResultOK)

	h.mu.Lock()
	h.held = append(h.held, lock)
	h.state = StateOpen
	h.mu.Unlock()
	return nil
}

// Claim takes the advisory lock for another session id, typically one that
// replaces the opened id, and holds it alongside the lock from Open until
// Close. It waits like Open does. Claiming an id already held is a no-op.
func (h *Handler) Claim(ctx context.Context, sessionID string) error {
	id := h.crypt.MakeIdentifier(sessionID)

	h.mu.Lock()
	if h.state != StateOpen {
		st := h.state
		h.mu.Unlock()
		return domain.ErrInvalidArgument.WithDetails("claim called in state " + st.String())
	}
	for _, l := range h.held {
		if l.id == id {
			h.mu.Unlock()
			return nil
		}
	}
	h.mu.Unlock()

	lock, err := h.acquire(ctx, id)
	if err != nil {
		h.log.Warn("failed to claim session lock", "identifier", id, "error", err)
		return err
	}

	h.mu.Lock()
	h.held = append(h.held, lock)
	h.mu.Unlock()
	return nil
}

func (h *Handler) tryLock(ctx context.Context, id string) (heldLock, bool) {
	if ol, ok := h.store.(storage.OwnedLocker); ok {
		tok, ok := ol.LockOwned(ctx, id)
		return heldLock{id: id, token: tok}, ok
	}
	return heldLock{id: id}, h.store.Lock(ctx, id)
}

func (h *Handler) release(ctx context.Context, l heldLock) {
	if ol, ok := h.store.(storage.OwnedLocker); ok && l.token != "" {
		ol.UnlockOwned(ctx, l.id, l.token)
		return
	}
	h.store.Unlock(ctx, l.id)
}

func (h *Handler) acquire(ctx context.Context, id string) (heldLock, error) {
	if lock, ok := h.tryLock(ctx, id); ok {
		return lock, nil
	}

	var deadline <-chan time.Time
	if h.opts.lockTimeout > 0 {
		timer := time.NewTimer(h.opts.lockTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(h.opts.lockRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return heldLock{}, ctx.Err()
		case <-deadline:
			return heldLock{}, domain.ErrLockTimeout.WithDetails("waited " + h.opts.lockTimeout.String())
		case <-ticker.C:
			if lock, ok := h.tryLock(ctx, id); ok {
				return lock, nil
			}
		}
	}
}

// Close releases the locks taken by Open and Claim. It is idempotent and
// always returns true. A lock that expired and was taken over by another
// holder is left alone when the backend implements storage.OwnedLocker.
func (h *Handler) Close(ctx context.Context) bool {
	h.mu.Lock()
	held := h.held
	h.held = nil
	h.state = StateClosing
	h.mu.Unlock()

	for i := len(held) - 1; i >= 0; i-- {
		h.release(ctx, held[i])
	}

	h.setState(StateIdle)
	return true
}

// Read returns the decrypted data stored for sessionID, or "" when there is
// none. A record that cannot be fetched or decrypted is handled according to
// the fetch and decrypt ReadFailurePolicy respectively.
func (h *Handler) Read(ctx context.Context, sessionID string) (string, error) {
	id := h.crypt.MakeIdentifier(sessionID)
	if !h.store.SessionExists(ctx, id) {
		h.opts.metrics.ObserveOperation(OpRead, ResultMiss)
		return "", nil
	}

	envelope, err := h.store.Get(ctx, id)
	if err != nil {
		h.opts.metrics.ObserveOperation(OpRead, ResultError)
		h.logStorageFailure("read", id, err)
		if h.opts.fetchPolicy == ReadFailureEmpty {
			return "", nil
		}
		return "", err
	}

	data, err := h.crypt.Decrypt(sessionID, envelope)
	if err != nil {
		h.opts.metrics.IncDecryptFailure()
		h.opts.metrics.ObserveOperation(OpRead, ResultError)
		if h.opts.decryptPolicy == ReadFailureEmpty {
			h.log.Warn("discarding undecryptable session data", "identifier", id, "code", domain.GetErrorCode(err))
			return "", nil
		}
		return "", err
	}

	h.opts.metrics.ObserveOperation(OpRead, ResultOK)
	return data, nil
}

// Write encrypts data and stores it for sessionID. A storage failure is
// logged and reported as (false, nil); a crypto failure is returned.
func (h *Handler) Write(ctx context.Context, sessionID, data string) (bool, error) {
	envelope, err := h.crypt.Encrypt(sessionID, data)
	if err != nil {
		h.opts.metrics.ObserveOperation(OpWrite, ResultError)
		return false, err
	}

	id := h.crypt.MakeIdentifier(sessionID)
	if err := h.store.Save(ctx, id, envelope); err != nil {
		h.opts.metrics.ObserveOperation(OpWrite, ResultError)
		h.logStorageFailure("write", id, err)
		return false, nil
	}

	h.opts.metrics.ObserveOperation(OpWrite, ResultOK)
	return true, nil
}

// Destroy removes the stored session. It returns false when the session does
// not exist or cannot be deleted.
func (h *Handler) Destroy(ctx context.Context, sessionID string) bool {
	id := h.crypt.MakeIdentifier(sessionID)
	if err := h.store.Destroy(ctx, id); err != nil {
		result := ResultError
		if errors.Is(err, domain.ErrSessionNotFound) {
			result = ResultMiss
		}
		h.opts.metrics.ObserveOperation(OpDestroy, result)
		h.logStorageFailure("destroy", id, err)
		return false
	}

	h.opts.metrics.ObserveOperation(OpDestroy, ResultOK)
	return true
}

// GC removes sessions last written more than maxLife seconds ago.
func (h *Handler) GC(ctx context.Context, maxLife float64) bool {
	maxAge := MaxLifeDuration(maxLife)

	var err error
	if sc, ok := h.store.(storage.SweepCounter); ok {
		var n int
		n, err = sc.ClearOldCount(ctx, maxAge)
		h.opts.metrics.AddGCRemoved(n)
		if n > 0 {
			h.log.Debug("removed expired sessions", "count", n, "max_age", maxAge)
		}
	} else {
		err = h.store.ClearOld(ctx, maxAge)
	}

	if err != nil {
		h.opts.metrics.ObserveOperation(OpGC, ResultError)
		h.logStorageFailure("gc", "", err)
		return false
	}
	h.opts.metrics.ObserveOperation(OpGC, ResultOK)
	return true
}

func (h *Handler) logStorageFailure(op, id string, err error) {
	args := []any{"op", op, "code", domain.GetErrorCode(err), "error", err}
	if id != "" {
		args = append(args, "identifier", id)
	}
	h.log.Warn("session storage operation failed", args...)
}

// MaxLifeDuration converts a lifetime in float seconds to a Duration.
// Negative and NaN values become zero; values past the Duration range
// saturate.
func MaxLifeDuration(maxLife float64) time.Duration {
	if math.IsNaN(maxLife) || maxLife <= 0 {
		return 0
	}
	ns := maxLife * float64(time.Second)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
