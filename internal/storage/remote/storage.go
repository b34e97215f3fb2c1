package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/storage"
)

// Storage talks to a hosted store server
type Storage struct {
	client *Client
}

// New creates a remote storage for the server at cfg.BaseURL
func New(cfg Config) *Storage {
	return &Storage{client: NewClient(cfg)}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Health(ctx)
}

func itemPath(collection, id string) string {
	return "/" + collection + "/" + url.PathEscape(id)
}

// Identity operations

func (s *Storage) GetIdentity(ctx context.Context, fc model.FriendCode) (*model.Identity, error) {
	var identity model.Identity
	if err := s.client.get(ctx, itemPath("identities", string(fc)), &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// CreateIdentity posts the identity; the server answers 409 when it exists
func (s *Storage) CreateIdentity(ctx context.Context, identity *model.Identity) error {
	return s.client.post(ctx, "/identities", identity, nil)
}

// UpdateIdentity sends the sparse patch; the server applies it atomically
func (s *Storage) UpdateIdentity(ctx context.Context, fc model.FriendCode, patch model.IdentityPatch) (*model.Identity, error) {
	var identity model.Identity
	if err := s.client.patch(ctx, itemPath("identities", string(fc)), patch, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *Storage) DeleteIdentity(ctx context.Context, fc model.FriendCode) error {
	return s.client.delete(ctx, itemPath("identities", string(fc)))
}

func (s *Storage) IdentityExists(ctx context.Context, fc model.FriendCode) (bool, error) {
	err := s.client.head(ctx, itemPath("identities", string(fc)))
	if err == nil {
		return true, nil
	}
	var se *StatusError
	if errors.Is(err, model.ErrIdentityNotFound) || (errors.As(err, &se) && se.Status == http.StatusNotFound) {
		return false, nil
	}
	return false, err
}

func (s *Storage) ListIdentities(ctx context.Context) ([]*model.Identity, error) {
	var list []*model.Identity
	err := s.client.get(ctx, "/identities", &list)
	return list, err
}

// Guild operations

// CreateGuild posts the guild; the server answers 409 when the id is taken
func (s *Storage) CreateGuild(ctx context.Context, guild *model.Guild) error {
	return s.client.post(ctx, "/guilds", guild, nil)
}

func (s *Storage) SaveGuild(ctx context.Context, guild *model.Guild) error {
	return s.client.put(ctx, itemPath("guilds", guild.ID), guild, nil)
}

func (s *Storage) GetGuild(ctx context.Context, id string) (*model.Guild, error) {
	var guild model.Guild
	if err := s.client.get(ctx, itemPath("guilds", id), &guild); err != nil {
		return nil, err
	}
	return &guild, nil
}

func (s *Storage) DeleteGuild(ctx context.Context, id string) error {
	return s.client.delete(ctx, itemPath("guilds", id))
}

func (s *Storage) ListGuilds(ctx context.Context) ([]*model.Guild, error) {
	var list []*model.Guild
	err := s.client.get(ctx, "/guilds", &list)
	return list, err
}

// Content operations

func (s *Storage) SaveAchievement(ctx context.Context, a *model.Achievement) error {
	return s.client.put(ctx, itemPath("achievements", a.ID), a, nil)
}

func (s *Storage) GetAchievement(ctx context.Context, id string) (*model.Achievement, error) {
	var a model.Achievement
	if err := s.client.get(ctx, itemPath("achievements", id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Storage) DeleteAchievement(ctx context.Context, id string) error {
	return s.client.delete(ctx, itemPath("achievements", id))
}

func (s *Storage) ListAchievements(ctx context.Context) ([]*model.Achievement, error) {
	var list []*model.Achievement
	err := s.client.get(ctx, "/achievements", &list)
	return list, err
}

func (s *Storage) SaveArticle(ctx context.Context, a *model.Article) error {
	return s.client.put(ctx, itemPath("articles", a.ID), a, nil)
}

func (s *Storage) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	var a model.Article
	if err := s.client.get(ctx, itemPath("articles", id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Storage) DeleteArticle(ctx context.Context, id string) error {
	return s.client.delete(ctx, itemPath("articles", id))
}

func (s *Storage) ListArticles(ctx context.Context) ([]*model.Article, error) {
	var list []*model.Article
	err := s.client.get(ctx, "/articles", &list)
	return list, err
}

// Queue operations

func (s *Storage) SaveQueueRequest(ctx context.Context, r *model.QueueRequest) error {
	return s.client.put(ctx, itemPath("queue/requests", r.ID), r, nil)
}

func (s *Storage) GetQueueRequest(ctx context.Context, id string) (*model.QueueRequest, error) {
	var r model.QueueRequest
	if err := s.client.get(ctx, itemPath("queue/requests", id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Storage) ListQueueRequests(ctx context.Context) ([]*model.QueueRequest, error) {
	var list []*model.QueueRequest
	err := s.client.get(ctx, "/queue/requests", &list)
	return list, err
}

func (s *Storage) AppendQueueEntry(ctx context.Context, e *model.QueueEntry) error {
	return s.client.post(ctx, "/queue/entries", e, nil)
}

func (s *Storage) ListQueueEntries(ctx context.Context) ([]*model.QueueEntry, error) {
	var list []*model.QueueEntry
	err := s.client.get(ctx, "/queue/entries", &list)
	return list, err
}

func (s *Storage) SaveNotification(ctx context.Context, n *model.Notification) error {
	return s.client.put(ctx, itemPath("notifications", n.ID), n, nil)
}

func (s *Storage) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	if err := s.client.get(ctx, itemPath("notifications", id), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Storage) ListNotifications(ctx context.Context) ([]*model.Notification, error) {
	var list []*model.Notification
	err := s.client.get(ctx, "/notifications", &list)
	return list, err
}

func (s *Storage) SaveReport(ctx context.Context, r *model.Report) error {
	return s.client.put(ctx, itemPath("reports", r.ID), r, nil)
}

func (s *Storage) ListReports(ctx context.Context) ([]*model.Report, error) {
	var list []*model.Report
	err := s.client.get(ctx, "/reports", &list)
	return list, err
}
