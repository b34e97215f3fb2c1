package handler

import (
	"log/slog"
	"net/http"

	"github.com/redskie/bamaco/internal/api/response"
)

// Health handles GET /api/v1/health. It answers 503 when the backing store
// does not respond, so clients fall back to local-only mode.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: response.StatusUnavailable})
		return
	}
	response.JSON(w, http.StatusOK, response.Health{Status: response.StatusOK})
}
