package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/yndnr/ssess-go/internal/core/domain"
)

// maxValueBody bounds the body of PUT /session/values/{key}.
const maxValueBody = 64 << 10

// ListValues handles GET /session.
func (h *Handler) ListValues(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, r, http.StatusOK, SessionResponse{
		New:    s.IsNew(),
		Values: s.Values(),
	})
}

// GetValue handles GET /session/values/{key}.
func (h *Handler) GetValue(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	v, found := s.Get(key)
	if !found {
		h.handleError(w, r, domain.ErrNotFound.WithDetails("key "+key))
		return
	}
	h.writeJSON(w, r, http.StatusOK, ValueResponse{Key: key, Value: v})
}

// PutValue handles PUT /session/values/{key}.
func (h *Handler) PutValue(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}

	var req PutValueRequest
	body := io.LimitReader(r.Body, maxValueBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.handleError(w, r, domain.ErrBadRequest.WithDetails("body must be {\"value\": string}").WithCause(err))
		return
	}

	key := r.PathValue("key")
	s.Set(key, req.Value)
	h.writeJSON(w, r, http.StatusOK, ValueResponse{Key: key, Value: req.Value})
}

// DeleteValue handles DELETE /session/values/{key}.
func (h *Handler) DeleteValue(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	if !s.Delete(key) {
		h.handleError(w, r, domain.ErrNotFound.WithDetails("key "+key))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Regenerate handles POST /session/regenerate.
func (h *Handler) Regenerate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	if _, err := s.Regenerate(); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Destroy handles POST /session/destroy.
func (h *Handler) Destroy(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	s.Destroy()
	w.WriteHeader(http.StatusNoContent)
}
