package model

import "time"

// Collection names a hosted-store collection
type Collection string

const (
	CollectionIdentities    Collection = "identities"
	CollectionGuilds        Collection = "guilds"
	CollectionAchievements  Collection = "achievements"
	CollectionArticles      Collection = "articles"
	CollectionQueueRequests Collection = "queue_requests"
	CollectionQueueEntries  Collection = "queue_entries"
	CollectionNotifications Collection = "notifications"
	CollectionReports       Collection = "reports"
)

// ChangeOp is the kind of write that produced a change event
type ChangeOp string

const (
	OpCreated ChangeOp = "created"
	OpUpdated ChangeOp = "updated"
	OpDeleted ChangeOp = "deleted"
)

// ChangeEvent is published on the store change feed after every write
type ChangeEvent struct {
	Collection Collection `json:"collection"`
	ID         string     `json:"id"`
	Op         ChangeOp   `json:"op"`
	At         time.Time  `json:"at"`
}
