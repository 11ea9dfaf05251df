package httpsession

import (
	"net"
	"net/http"
	"strings"

	"github.com/yndnr/ssess-go/internal/core/session"
	"github.com/yndnr/ssess-go/internal/server/config"
)

// requestEnv is the session.Environment of a single HTTP request.
type requestEnv struct {
	settings  map[string]bool
	presented string
	current   string
	mint      func() (string, error)
}

func newRequestEnv(cfg config.SessionSection, r *http.Request, mint func() (string, error)) *requestEnv {
	env := &requestEnv{
		settings: map[string]bool{
			session.SettingUseStrictMode:  cfg.UseStrictMode,
			session.SettingUseCookies:     cfg.UseCookies,
			session.SettingUseOnlyCookies: cfg.UseOnlyCookies,
			session.SettingUseTransSID:    cfg.UseTransSID,
		},
		mint: mint,
	}
	env.presented = presentedID(cfg, r)
	env.current = env.presented
	return env
}

// presentedID returns the id the client sent: the session cookie, or the
// query parameter of the same name when cookies are not mandatory.
func presentedID(cfg config.SessionSection, r *http.Request) string {
	if cfg.UseCookies {
		if c, err := r.Cookie(cfg.CookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}
	if !cfg.UseOnlyCookies {
		return r.URL.Query().Get(cfg.CookieName)
	}
	return ""
}

func (e *requestEnv) Setting(name string) bool       { return e.settings[name] }
func (e *requestEnv) PresentedID() string            { return e.presented }
func (e *requestEnv) SessionID() string              { return e.current }
func (e *requestEnv) SetSessionID(id string)         { e.current = id }
func (e *requestEnv) MintSessionID() (string, error) { return e.mint() }

// ClientIP extracts the client address used for rate limiting. Proxy
// headers are honoured only when trustProxy is set.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

var _ session.Environment = (*requestEnv)(nil)
