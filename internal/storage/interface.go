package storage

import (
	"context"

	"github.com/redskie/bamaco/internal/model"
)

// IdentityStore persists identity records keyed by normalized friend code
type IdentityStore interface {
	GetIdentity(ctx context.Context, fc model.FriendCode) (*model.Identity, error)
	// CreateIdentity stores a new identity. It fails with model.ErrIdentityExists
	// if the friend code is taken, even under concurrent creates.
	CreateIdentity(ctx context.Context, identity *model.Identity) error
	// UpdateIdentity applies the patch atomically and returns the result
	UpdateIdentity(ctx context.Context, fc model.FriendCode, patch model.IdentityPatch) (*model.Identity, error)
	DeleteIdentity(ctx context.Context, fc model.FriendCode) error
	IdentityExists(ctx context.Context, fc model.FriendCode) (bool, error)
	ListIdentities(ctx context.Context) ([]*model.Identity, error)
}

// GuildStore persists guilds
type GuildStore interface {
	// CreateGuild stores a new guild. It fails with model.ErrGuildExists if
	// the id is taken.
	CreateGuild(ctx context.Context, guild *model.Guild) error
	SaveGuild(ctx context.Context, guild *model.Guild) error
	GetGuild(ctx context.Context, id string) (*model.Guild, error)
	DeleteGuild(ctx context.Context, id string) error
	ListGuilds(ctx context.Context) ([]*model.Guild, error)
}

// ContentStore persists achievements and articles
type ContentStore interface {
	SaveAchievement(ctx context.Context, a *model.Achievement) error
	GetAchievement(ctx context.Context, id string) (*model.Achievement, error)
	DeleteAchievement(ctx context.Context, id string) error
	ListAchievements(ctx context.Context) ([]*model.Achievement, error)

	SaveArticle(ctx context.Context, a *model.Article) error
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	DeleteArticle(ctx context.Context, id string) error
	ListArticles(ctx context.Context) ([]*model.Article, error)
}

// QueueStore persists queue requests, the play queue, the admin inbox and reports
type QueueStore interface {
	SaveQueueRequest(ctx context.Context, r *model.QueueRequest) error
	GetQueueRequest(ctx context.Context, id string) (*model.QueueRequest, error)
	ListQueueRequests(ctx context.Context) ([]*model.QueueRequest, error)

	AppendQueueEntry(ctx context.Context, e *model.QueueEntry) error
	ListQueueEntries(ctx context.Context) ([]*model.QueueEntry, error)

	SaveNotification(ctx context.Context, n *model.Notification) error
	GetNotification(ctx context.Context, id string) (*model.Notification, error)
	ListNotifications(ctx context.Context) ([]*model.Notification, error)

	SaveReport(ctx context.Context, r *model.Report) error
	ListReports(ctx context.Context) ([]*model.Report, error)
}

// Storage defines the interface for data persistence
type Storage interface {
	IdentityStore
	GuildStore
	ContentStore
	QueueStore

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error
}
