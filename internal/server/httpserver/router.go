package httpserver

import (
	"net/http"

	"github.com/yndnr/ssess-go/internal/server/httpserver/handler"
	"github.com/yndnr/ssess-go/internal/server/httpsession"
	"github.com/yndnr/ssess-go/internal/telemetry/logger"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Sessions opens the session of each /session request.
	Sessions *httpsession.Manager

	// Logger for request logging. Nil discards logs.
	Logger logger.Logger

	// Metrics receives request observations. May be nil.
	Metrics RequestObserver

	// MetricsHandler serves MetricsPath. Nil disables the endpoint.
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter creates the HTTP router with all routes and middleware.
//
// Order: Recover -> RequestID -> AccessLog -> mux -> (session middleware) -> handler.
// The mux sits directly under AccessLog so the matched route pattern is
// visible when the request is logged.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	h := handler.New(log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Health)

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, cfg.MetricsHandler)
	}

	withSession := func(fn http.HandlerFunc) http.Handler {
		return cfg.Sessions.Middleware(fn)
	}
	mux.Handle("GET /session", withSession(h.ListValues))
	mux.Handle("GET /session/values/{key}", withSession(h.GetValue))
	mux.Handle("PUT /session/values/{key}", withSession(h.PutValue))
	mux.Handle("DELETE /session/values/{key}", withSession(h.DeleteValue))
	mux.Handle("POST /session/regenerate", withSession(h.Regenerate))
	mux.Handle("POST /session/destroy", withSession(h.Destroy))

	return Chain(mux,
		Recover(log),
		RequestID(),
		AccessLog(log, cfg.Metrics),
	)
}
