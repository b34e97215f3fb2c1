package model

import "time"

// RequestStatus is the lifecycle state of a queue request
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestDenied   RequestStatus = "denied"
)

// QueueRequest asks an admin to add a player to the play queue
type QueueRequest struct {
	ID          string        `json:"id"`
	FriendCode  FriendCode    `json:"friendCode"`
	IGN         string        `json:"ign"`
	Status      RequestStatus `json:"status"`
	RequestedAt time.Time     `json:"requestedAt"`
	HandledAt   *time.Time    `json:"handledAt,omitempty"`
	HandledBy   FriendCode    `json:"handledBy,omitempty"`
}

// QueueEntry is one approved slot in the play queue
type QueueEntry struct {
	Name       string     `json:"name"`
	FriendCode FriendCode `json:"friendCode"`
	JoinedAt   time.Time  `json:"joinedAt"`
	Paid       bool       `json:"paid"`
}

// NotificationType identifies what an admin notification is about
type NotificationType string

const (
	NotificationQueueRequest NotificationType = "queue_request"
	NotificationReport       NotificationType = "report"
)

// Notification is an entry in the admin inbox
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	RequestID string           `json:"requestId,omitempty"`
	PlayerIGN string           `json:"playerIgn,omitempty"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// ReportType classifies user feedback
type ReportType string

const (
	ReportBug            ReportType = "bug"
	ReportFeature        ReportType = "feature"
	ReportRecommendation ReportType = "recommendation"
	ReportOther          ReportType = "other"
)

// Valid reports whether t is a known report type
func (t ReportType) Valid() bool {
	switch t {
	case ReportBug, ReportFeature, ReportRecommendation, ReportOther:
		return true
	}
	return false
}

// Report is user-submitted feedback
type Report struct {
	ID          string        `json:"id"`
	Type        ReportType    `json:"type"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	SubmittedBy string        `json:"submittedBy"`
	FriendCode  FriendCode    `json:"friendCode"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
}
