package handler

import (
	"encoding/json"
	"net/http"

	"github.com/yndnr/ssess-go/internal/core/domain"
	"github.com/yndnr/ssess-go/internal/server/httpsession"
	"github.com/yndnr/ssess-go/internal/telemetry/logger"
)

// Handler serves the demo endpoints.
type Handler struct {
	logger logger.Logger
}

// New creates a Handler. A nil logger discards output.
func New(l logger.Logger) *Handler {
	if l == nil {
		l = logger.NewNop()
	}
	return &Handler{logger: l}
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	response := NewResponse(logger.RequestIDFromContext(r.Context()), data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	response := NewErrorResponse(logger.RequestIDFromContext(r.Context()), code, message, nil)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// handleError converts session and storage errors to HTTP responses.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpsession.StatusFor(err)
	if code := domain.GetErrorCode(err); code != "" {
		h.writeError(w, r, status, code, err.Error())
		return
	}

	h.logger.WithContext(r.Context()).Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternalServer.Code, domain.ErrInternalServer.Message)
}

// currentSession returns the request's session or answers 500 when the
// session middleware is missing.
func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) (*httpsession.Session, bool) {
	s := httpsession.FromContext(r.Context())
	if s == nil {
		h.logger.WithContext(r.Context()).Error("session middleware not installed", "path", r.URL.Path)
		h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternalServer.Code, "no session in request")
		return nil, false
	}
	return s, true
}
