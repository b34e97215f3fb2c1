package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/redskie/bamaco/internal/api/apierr"
)

// APIKeyHeader is the header the project API key travels in
const APIKeyHeader = "X-API-Key"

// APIKey rejects requests that do not carry key. An empty key disables the check.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		want := []byte(key)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := extractKey(r)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractKey reads the key from X-API-Key, falling back to a bearer token
func extractKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
