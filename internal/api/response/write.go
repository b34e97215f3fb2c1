// Package response writes JSON API responses.
package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// List writes a 200 with items, encoding a nil slice as []
func List[T any](w http.ResponseWriter, items []*T) {
	if items == nil {
		items = []*T{}
	}
	JSON(w, http.StatusOK, items)
}

// NoContent writes a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
