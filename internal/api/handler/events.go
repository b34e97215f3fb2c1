package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/redskie/bamaco/internal/api/apierr"
	"github.com/redskie/bamaco/internal/events"
	"github.com/redskie/bamaco/internal/middleware"
	"github.com/redskie/bamaco/internal/model"
)

// Events handles GET /api/v1/events, streaming the change feed as SSE.
// ?collection= limits the stream to one collection.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if h.changes == nil {
		WriteError(w, apierr.NewNotFoundError())
		return
	}
	filter := model.Collection(r.URL.Query().Get("collection"))

	// The stream outlives the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	name := "sse:" + middleware.RequestIDFrom(r.Context())
	events.ServeSSE(w, r, h.changes, name, func(ev model.ChangeEvent) (string, string, bool) {
		if filter != "" && ev.Collection != filter {
			return "", "", false
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return "", "", false
		}
		return "change", string(data), true
	})
}
