// Package queue runs the play-queue desk: players ask for a slot, admins
// approve or deny from their inbox, and anyone logged in can file a report.
package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/redskie/bamaco/internal/dependencies/clock"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/services/authz"
	"github.com/redskie/bamaco/internal/storage"
)

// Desk handles queue requests, the admin inbox and reports
type Desk struct {
	store   storage.QueueStore
	clock   clock.Clock
	logger  *slog.Logger
	entropy io.Reader
}

// Option configures a Desk
type Option func(*Desk)

// WithEntropy sets the randomness behind generated IDs
func WithEntropy(r io.Reader) Option {
	return func(d *Desk) {
		d.entropy = r
	}
}

// New creates a queue desk
func New(store storage.QueueStore, clk clock.Clock, logger *slog.Logger, opts ...Option) *Desk {
	d := &Desk{
		store:   store,
		clock:   clk,
		logger:  logger,
		entropy: ulid.DefaultEntropy(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RequestQueue files a pending request for the logged-in player and tells
// the admins about it
func (d *Desk) RequestQueue(ctx context.Context, actor *authz.Actor, ign string) (*model.QueueRequest, error) {
	if err := authz.RequireLogin(actor); err != nil {
		return nil, err
	}
	if ign == "" {
		ign = string(actor.FriendCode)
	}

	now := d.clock.Now()
	req := &model.QueueRequest{
		ID:          d.newID(now),
		FriendCode:  actor.FriendCode,
		IGN:         ign,
		Status:      model.RequestPending,
		RequestedAt: now,
	}
	if err := d.store.SaveQueueRequest(ctx, req); err != nil {
		return nil, storeError("request_queue", err)
	}

	if err := d.notify(ctx, &model.Notification{
		Type:      model.NotificationQueueRequest,
		RequestID: req.ID,
		PlayerIGN: ign,
		Message:   ign + " is requesting to join the queue",
	}); err != nil {
		return nil, err
	}

	d.logger.Info("queue requested",
		slog.String("request_id", req.ID),
		slog.String("friend_code", string(actor.FriendCode)))
	return req, nil
}

// HandleRequest approves or denies a pending request. Approval appends the
// player to the queue.
func (d *Desk) HandleRequest(ctx context.Context, actor *authz.Actor, id string, approved bool) (*model.QueueRequest, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}

	req, err := d.store.GetQueueRequest(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrRequestNotFound) {
			return nil, err
		}
		return nil, storeError("handle_request", err)
	}
	if req.Status != model.RequestPending {
		return nil, oops.
			Code("REQUEST_HANDLED").
			With("request_id", id).
			With("status", string(req.Status)).
			Wrap(model.ErrRequestHandled)
	}

	now := d.clock.Now()
	if approved {
		entry := &model.QueueEntry{
			Name:       req.IGN,
			FriendCode: req.FriendCode,
			JoinedAt:   now,
			Paid:       false,
		}
		if err := d.store.AppendQueueEntry(ctx, entry); err != nil {
			return nil, storeError("handle_request", err)
		}
		req.Status = model.RequestApproved
	} else {
		req.Status = model.RequestDenied
	}
	req.HandledAt = &now
	req.HandledBy = actor.FriendCode

	if err := d.store.SaveQueueRequest(ctx, req); err != nil {
		return nil, storeError("handle_request", err)
	}
	d.logger.Info("queue request handled",
		slog.String("request_id", id),
		slog.String("status", string(req.Status)),
		slog.String("admin", string(actor.FriendCode)))
	return req, nil
}

// Requests lists queue requests, optionally only the pending ones. Admin only.
func (d *Desk) Requests(ctx context.Context, actor *authz.Actor, pendingOnly bool) ([]*model.QueueRequest, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	all, err := d.store.ListQueueRequests(ctx)
	if err != nil {
		return nil, storeError("list_requests", err)
	}
	if !pendingOnly {
		return all, nil
	}
	var pending []*model.QueueRequest
	for _, r := range all {
		if r.Status == model.RequestPending {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// Queue lists the play queue in join order
func (d *Desk) Queue(ctx context.Context) ([]*model.QueueEntry, error) {
	entries, err := d.store.ListQueueEntries(ctx)
	if err != nil {
		return nil, storeError("queue", err)
	}
	return entries, nil
}

// Notifications lists the admin inbox. Admin only.
func (d *Desk) Notifications(ctx context.Context, actor *authz.Actor, unreadOnly bool) ([]*model.Notification, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	all, err := d.store.ListNotifications(ctx)
	if err != nil {
		return nil, storeError("notifications", err)
	}
	if !unreadOnly {
		return all, nil
	}
	var unread []*model.Notification
	for _, n := range all {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

// MarkNotificationRead marks one inbox entry read. Admin only.
func (d *Desk) MarkNotificationRead(ctx context.Context, actor *authz.Actor, id string) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}
	n, err := d.store.GetNotification(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotificationNotFound) {
			return err
		}
		return storeError("mark_read", err)
	}
	if n.Read {
		return nil
	}
	n.Read = true
	if err := d.store.SaveNotification(ctx, n); err != nil {
		return storeError("mark_read", err)
	}
	return nil
}

// SubmitReport files user feedback and tells the admins about it
func (d *Desk) SubmitReport(ctx context.Context, actor *authz.Actor, submittedBy string, typ model.ReportType, title, description string) (*model.Report, error) {
	if err := authz.RequireLogin(actor); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	var violations []string
	if !typ.Valid() {
		violations = append(violations, "Report type must be bug, feature, recommendation or other")
	}
	if title == "" || description == "" {
		violations = append(violations, "Please fill in all required fields")
	}
	if len(violations) > 0 {
		return nil, model.NewValidationError("report", violations...)
	}
	if submittedBy == "" {
		submittedBy = string(actor.FriendCode)
	}

	now := d.clock.Now()
	report := &model.Report{
		ID:          d.newID(now),
		Type:        typ,
		Title:       title,
		Description: description,
		SubmittedBy: submittedBy,
		FriendCode:  actor.FriendCode,
		Status:      model.RequestPending,
		CreatedAt:   now,
	}
	if err := d.store.SaveReport(ctx, report); err != nil {
		return nil, storeError("submit_report", err)
	}
	if err := d.notify(ctx, &model.Notification{
		Type:      model.NotificationReport,
		PlayerIGN: submittedBy,
		Message:   fmt.Sprintf("%s reported a %s: %s", submittedBy, typ, title),
	}); err != nil {
		return nil, err
	}
	return report, nil
}

// Reports lists submitted reports. Admin only.
func (d *Desk) Reports(ctx context.Context, actor *authz.Actor) ([]*model.Report, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	reports, err := d.store.ListReports(ctx)
	if err != nil {
		return nil, storeError("reports", err)
	}
	return reports, nil
}

func (d *Desk) notify(ctx context.Context, n *model.Notification) error {
	n.CreatedAt = d.clock.Now()
	n.ID = d.newID(n.CreatedAt)
	if err := d.store.SaveNotification(ctx, n); err != nil {
		return storeError("notify", err)
	}
	return nil
}

// newID returns a ULID, so IDs sort by creation time
func (d *Desk) newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), d.entropy).String()
}

func storeError(op string, err error) error {
	return oops.
		Code("TRANSIENT_STORE").
		With("operation", op).
		Wrap(fmt.Errorf("%w: %w", model.ErrTransientStore, err))
}
