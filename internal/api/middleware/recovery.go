package middleware

import (
	"log/slog"
	"net/http"

	"github.com/redskie/bamaco/internal/api/apierr"
	"github.com/redskie/bamaco/internal/middleware"
)

// Recovery answers a handler panic with the JSON internal error envelope
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, apiPanicHandler)
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
