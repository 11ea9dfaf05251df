package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/ssess-go/internal/infra/buildinfo"
)

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Get()
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: info.Version,
		Commit:  info.Commit,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}
