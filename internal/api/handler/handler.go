// Package handler serves the hosted store collections over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/redskie/bamaco/internal/api/response"
	"github.com/redskie/bamaco/internal/dependencies/clock"
	"github.com/redskie/bamaco/internal/events"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/storage"
)

// maxBodyBytes caps request bodies; the largest record is an article
const maxBodyBytes = 1 << 20

// Handler serves every store route. Each successful write is published on
// the change feed.
type Handler struct {
	store   storage.Storage
	changes *events.Broker[model.ChangeEvent]
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a store handler. A nil changes broker disables the feed.
func New(store storage.Storage, changes *events.Broker[model.ChangeEvent], clk clock.Clock, logger *slog.Logger) *Handler {
	return &Handler{
		store:   store,
		changes: changes,
		clock:   clk,
		logger:  logger,
	}
}

func (h *Handler) publish(c model.Collection, id string, op model.ChangeOp) {
	if h.changes == nil {
		return
	}
	h.changes.Publish(model.ChangeEvent{
		Collection: c,
		ID:         id,
		Op:         op,
		At:         h.clock.Now(),
	})
}

// decode reads a JSON body into v
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return NewInvalidRequestError("request body too large")
		}
		if errors.Is(err, io.EOF) {
			return NewInvalidRequestError("request body is required")
		}
		return NewInvalidRequestError("invalid request body")
	}
	return nil
}

func getOne[T any](w http.ResponseWriter, r *http.Request, get func(context.Context, string) (*T, error)) {
	v, err := get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, v)
}

func listAll[T any](w http.ResponseWriter, r *http.Request, list func(context.Context) ([]*T, error)) {
	items, err := list(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.List(w, items)
}

// putOne stores the body under the id from the path. bind copies the path id
// into the record so the two can never disagree.
func putOne[T any](h *Handler, w http.ResponseWriter, r *http.Request, c model.Collection, bind func(*T, string), save func(context.Context, *T) error) {
	var v T
	if err := decode(w, r, &v); err != nil {
		WriteError(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	bind(&v, id)
	if err := save(r.Context(), &v); err != nil {
		WriteError(w, err)
		return
	}
	h.publish(c, id, model.OpUpdated)
	response.JSON(w, http.StatusOK, &v)
}

func deleteOne(h *Handler, w http.ResponseWriter, r *http.Request, c model.Collection, del func(context.Context, string) error) {
	id := mux.Vars(r)["id"]
	if err := del(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	h.publish(c, id, model.OpDeleted)
	response.NoContent(w)
}
