package handler

import (
	"net/http"

	"github.com/redskie/bamaco/internal/api/response"
	"github.com/redskie/bamaco/internal/model"
)

// Queue requests

func (h *Handler) GetQueueRequest(w http.ResponseWriter, r *http.Request) {
	getOne(w, r, h.store.GetQueueRequest)
}

func (h *Handler) ListQueueRequests(w http.ResponseWriter, r *http.Request) {
	listAll(w, r, h.store.ListQueueRequests)
}

func (h *Handler) PutQueueRequest(w http.ResponseWriter, r *http.Request) {
	putOne(h, w, r, model.CollectionQueueRequests, func(q *model.QueueRequest, id string) {
		q.ID = id
	}, h.store.SaveQueueRequest)
}

// Queue entries are append-only and keep insertion order

// AppendQueueEntry handles POST /api/v1/queue/entries
func (h *Handler) AppendQueueEntry(w http.ResponseWriter, r *http.Request) {
	var entry model.QueueEntry
	if err := decode(w, r, &entry); err != nil {
		WriteError(w, err)
		return
	}
	if err := h.store.AppendQueueEntry(r.Context(), &entry); err != nil {
		WriteError(w, err)
		return
	}
	h.publish(model.CollectionQueueEntries, string(entry.FriendCode), model.OpCreated)
	response.JSON(w, http.StatusCreated, &entry)
}

func (h *Handler) ListQueueEntries(w http.ResponseWriter, r *http.Request) {
	listAll(w, r, h.store.ListQueueEntries)
}

// Notifications

func (h *Handler) GetNotification(w http.ResponseWriter, r *http.Request) {
	getOne(w, r, h.store.GetNotification)
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	listAll(w, r, h.store.ListNotifications)
}

func (h *Handler) PutNotification(w http.ResponseWriter, r *http.Request) {
	putOne(h, w, r, model.CollectionNotifications, func(n *model.Notification, id string) {
		n.ID = id
	}, h.store.SaveNotification)
}

// Reports

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	listAll(w, r, h.store.ListReports)
}

func (h *Handler) PutReport(w http.ResponseWriter, r *http.Request) {
	putOne(h, w, r, model.CollectionReports, func(rep *model.Report, id string) {
		rep.ID = id
	}, h.store.SaveReport)
}
