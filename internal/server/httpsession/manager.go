package httpsession

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/ssess-go/internal/core/domain"
	"github.com/yndnr/ssess-go/internal/core/session"
	"github.com/yndnr/ssess-go/internal/server/config"
	"github.com/yndnr/ssess-go/internal/storage"
	"github.com/yndnr/ssess-go/internal/telemetry/logger"
	"github.com/yndnr/ssess-go/pkg/token"
)

// Metrics is what the manager reports to. *metric.Registry implements it.
type Metrics interface {
	session.Metrics
	IncMintRateLimited()
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, string) {}
func (nopMetrics) ObserveLockWait(time.Duration) {}
func (nopMetrics) IncFixationRejected() {}
func (nopMetrics) IncDecryptFailure() {}
func (nopMetrics) AddGCRemoved(int) {}
func (nopMetrics) IncMintRateLimited() {}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt Metrics) Option {
	return func(m *Manager) {
		if mt != nil {
			m.metrics = mt
		}
	}
}

// WithMinter replaces the session id generator.
func WithMinter(mint func() (string, error)) Option {
	return func(m *Manager) {
		if mint != nil {
			m.mint = mint
		}
	}
}

// WithRandom replaces the source used to decide inline GC runs. It must
// return values in [0, 1).
func WithRandom(f func() float64) Option {
	return func(m *Manager) {
		if f != nil {
			m.random = f
		}
	}
}

// WithTrustedProxy makes the mint limiter key clients by X-Forwarded-For
// and X-Real-IP.
func WithTrustedProxy(trust bool) Option {
	return func(m *Manager) {
		m.trustProxy = trust
	}
}

// WithSavePath sets the location passed to Handler.Open. It only shows up
// in debug logs.
func WithSavePath(path string) Option {
	return func(m *Manager) {
		m.savePath = path
	}
}

// Manager binds the session orchestrator to HTTP requests.
type Manager struct {
	crypt session.Crypter
	store storage.Storage
	cfg   config.SessionSection

	log        logger.Logger
	metrics    Metrics
	mint       func() (string, error)
	random     func() float64
	trustProxy bool
	savePath   string
	limiter    *mintLimiter
}

// NewManager returns a Manager for the given session settings. cfg should
// already have passed config.Verify.
func NewManager(crypt session.Crypter, store storage.Storage, cfg config.SessionSection, opts ...Option) (*Manager, error) {
	if crypt == nil || store == nil {
		return nil, domain.ErrMissingArgument.WithDetails("crypter and storage are required")
	}
	if cfg.CookieName == "" {
		return nil, domain.ErrMissingArgument.WithDetails("session.cookie_name")
	}

	m := &Manager{
		crypt:   crypt,
		store:   store,
		cfg:     cfg,
		log:     logger.NewNop(),
		metrics: nopMetrics{},
		mint:    token.NewSessionID,
		random:  rand.Float64,
		limiter: newMintLimiter(cfg.MintRateLimit, cfg.MintBurst),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// handlerOptions returns the options for a per-request session.Handler.
func (m *Manager) handlerOptions(log logger.Logger) []session.Option {
	return append(m.cfg.HandlerOptions(),
		session.WithLogger(log),
		session.WithMetrics(m.metrics),
	)
}

func (m *Manager) requestLogger(ctx context.Context) logger.Logger {
	l := m.log.WithContext(ctx)
	if id := logger.RequestIDFromContext(ctx); id != "" {
		l = l.With("request_id", id)
	}
	return l
}

// minter returns the rate limited id generator for one client.
func (m *Manager) minter(ip string) func() (string, error) {
	return func() (string, error) {
		if !m.limiter.Allow(ip) {
			m.metrics.IncMintRateLimited()
			return "", domain.ErrRateLimited.WithDetails("session id minting limit reached")
		}
		return m.mint()
	}
}

// Middleware opens the request's session before next runs and commits it
// afterwards. The session lock is held for the whole request.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := m.requestLogger(ctx)
		mint := m.minter(ClientIP(r, m.trustProxy))
		env := newRequestEnv(m.cfg, r, mint)

		h, err := session.NewHandler(ctx, m.crypt, m.store, env, m.handlerOptions(log)...)
		if err != nil {
			m.fail(w, r, log, err)
			return
		}

		if env.SessionID() == "" {
			id, err := mint()
			if err != nil {
				m.fail(w, r, log, err)
				return
			}
			env.SetSessionID(id)
		}

		m.maybeCollect(ctx, h)

		if err := h.Open(ctx, m.savePath, m.cfg.CookieName); err != nil {
			m.fail(w, r, log, err)
			return
		}
		defer h.Close(context.WithoutCancel(ctx))

		sess := &Session{
			id:       env.SessionID(),
			openedID: env.SessionID(),
			values:   map[string]string{},
			w:        w,
			manager:  m,
			mint:     mint,
		}

		data, err := h.Read(ctx, sess.id)
		if err != nil {
			m.fail(w, r, log, err)
			return
		}
		if data != "" {
			sess.existing = true
			if err := json.Unmarshal([]byte(data), &sess.values); err != nil {
				log.Warn("discarding malformed session payload", "identifier", m.crypt.MakeIdentifier(sess.id), "error", err)
				sess.values = map[string]string{}
			}
		}

		if sess.id != env.PresentedID() {
			m.setCookie(w, sess.id)
		}

		next.ServeHTTP(w, r.WithContext(withSession(ctx, sess)))

		m.commit(context.WithoutCancel(ctx), h, sess, log)
	})
}

// maybeCollect runs GC inline with probability gc_probability.
func (m *Manager) maybeCollect(ctx context.Context, h *session.Handler) {
	if m.cfg.GCProbability <= 0 || m.random() >= m.cfg.GCProbability {
		return
	}
	h.GC(ctx, m.cfg.MaxLife)
}

func (m *Manager) commit(ctx context.Context, h *session.Handler, s *Session, log logger.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A regenerated id was minted after Open. Lock it before anything is
	// written or the old record is removed.
	if !s.destroyed && s.id != s.openedID {
		if err := h.Claim(ctx, s.id); err != nil {
			log.Error("failed to lock regenerated session id", "code", domain.GetErrorCode(err), "error", err)
			return
		}
	}

	for _, old := range s.replaced {
		h.Destroy(ctx, old)
	}
	if s.destroyed {
		if s.existing {
			h.Destroy(ctx, s.id)
		}
		return
	}
	if !s.modified && !s.existing {
		return
	}

	payload, err := json.Marshal(s.values)
	if err != nil {
		log.Error("failed to encode session values", "error", err)
		return
	}
	ok, err := h.Write(ctx, s.id, string(payload))
	if err != nil {
		log.Error("failed to seal session data", "code", domain.GetErrorCode(err), "error", err)
		return
	}
	if !ok {
		log.Warn("session data was not saved")
	}
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, m.cookie(id, 0))
}

func (m *Manager) expireCookie(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1))
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	path := m.cfg.CookiePath
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     path,
		Domain:   m.cfg.CookieDomain,
		MaxAge:   maxAge,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: m.cfg.CookieHTTPOnly,
		SameSite: parseSameSite(m.cfg.CookieSameSite),
	}
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

func (m *Manager) fail(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusTooManyRequests {
		err = domain.ErrRateLimited
	}
	if status >= http.StatusInternalServerError {
		log.Error("session setup failed", "code", domain.GetErrorCode(err), "error", err)
	} else {
		log.Warn("session setup rejected", "code", domain.GetErrorCode(err), "error", err)
	}
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "1")
	}
	WriteError(w, r, status, err)
}

// StatusFor maps a session error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBadRequest), errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrMissingArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON body of an error response.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteError writes err as a JSON error response. Errors without a domain
// code are reported as internal errors and their text is not exposed.
func WriteError(w http.ResponseWriter, r *http.Request, status int, err error) {
	body := ErrorBody{
		Code:      domain.GetErrorCode(err),
		RequestID: logger.RequestIDFromContext(r.Context()),
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		body.Message = de.Message
	}
	if body.Code == "" {
		body.Code = domain.ErrInternalServer.Code
		body.Message = domain.ErrInternalServer.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", body.Code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
