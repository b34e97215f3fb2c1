package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Values are copied on the way in and out so callers never share records.
type Storage struct {
	mu sync.RWMutex

	identities    map[model.FriendCode]*model.Identity
	guilds        map[string]*model.Guild
	achievements  map[string]*model.Achievement
	articles      map[string]*model.Article
	requests      map[string]*model.QueueRequest
	entries       []*model.QueueEntry
	notifications map[string]*model.Notification
	reports       map[string]*model.Report
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		identities:    make(map[model.FriendCode]*model.Identity),
		guilds:        make(map[string]*model.Guild),
		achievements:  make(map[string]*model.Achievement),
		articles:      make(map[string]*model.Article),
		requests:      make(map[string]*model.QueueRequest),
		notifications: make(map[string]*model.Notification),
		reports:       make(map[string]*model.Report),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

// Identity operations

func (s *Storage) GetIdentity(ctx context.Context, fc model.FriendCode) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[fc]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	return identity.Clone(), nil
}

func (s *Storage) CreateIdentity(ctx context.Context, identity *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[identity.FriendCode]; ok {
		return model.ErrIdentityExists
	}
	s.identities[identity.FriendCode] = identity.Clone()
	return nil
}

func (s *Storage) UpdateIdentity(ctx context.Context, fc model.FriendCode, patch model.IdentityPatch) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[fc]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	updated := identity.Clone()
	patch.Apply(updated)
	s.identities[fc] = updated
	return updated.Clone(), nil
}

func (s *Storage) DeleteIdentity(ctx context.Context, fc model.FriendCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.identities, fc)
	return nil
}

func (s *Storage) IdentityExists(ctx context.Context, fc model.FriendCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.identities[fc]
	return ok, nil
}

func (s *Storage) ListIdentities(ctx context.Context) ([]*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*model.Identity, 0, len(s.identities))
	for _, identity := range s.identities {
		result = append(result, identity.Clone())
	}
	slices.SortFunc(result, func(a, b *model.Identity) int {
		return cmp.Compare(a.FriendCode, b.FriendCode)
	})
	return result, nil
}

// Guild operations

func (s *Storage) CreateGuild(ctx context.Context, guild *model.Guild) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guilds[guild.ID]; ok {
		return model.ErrGuildExists
	}
	s.guilds[guild.ID] = copyGuild(guild)
	return nil
}

func (s *Storage) SaveGuild(ctx context.Context, guild *model.Guild) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds[guild.ID] = copyGuild(guild)
	return nil
}

func (s *Storage) GetGuild(ctx context.Context, id string) (*model.Guild, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	guild, ok := s.guilds[id]
	if !ok {
		return nil, model.ErrGuildNotFound
	}
	return copyGuild(guild), nil
}

func (s *Storage) DeleteGuild(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.guilds, id)
	return nil
}

func (s *Storage) ListGuilds(ctx context.Context) ([]*model.Guild, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCopies(s.guilds, copyGuild), nil
}

// Content operations

func (s *Storage) SaveAchievement(ctx context.Context, a *model.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.achievements[a.ID] = copyAchievement(a)
	return nil
}

func (s *Storage) GetAchievement(ctx context.Context, id string) (*model.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.achievements[id]
	if !ok {
		return nil, model.ErrAchievementNotFound
	}
	return copyAchievement(a), nil
}

func (s *Storage) DeleteAchievement(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.achievements, id)
	return nil
}

func (s *Storage) ListAchievements(ctx context.Context) ([]*model.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCopies(s.achievements, copyAchievement), nil
}

func (s *Storage) SaveArticle(ctx context.Context, a *model.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[a.ID] = copyArticle(a)
	return nil
}

func (s *Storage) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.articles[id]
	if !ok {
		return nil, model.ErrArticleNotFound
	}
	return copyArticle(a), nil
}

func (s *Storage) DeleteArticle(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.articles, id)
	return nil
}

func (s *Storage) ListArticles(ctx context.Context) ([]*model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCopies(s.articles, copyArticle), nil
}

// Queue operations

func (s *Storage) SaveQueueRequest(ctx context.Context, r *model.QueueRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = shallow(r)
	return nil
}

func (s *Storage) GetQueueRequest(ctx context.Context, id string) (*model.QueueRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, model.ErrRequestNotFound
	}
	return shallow(r), nil
}

func (s *Storage) ListQueueRequests(ctx context.Context) ([]*model.QueueRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCopies(s.requests, shallow[model.QueueRequest]), nil
}

func (s *Storage) AppendQueueEntry(ctx context.Context, e *model.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, shallow(e))
	return nil
}

func (s *Storage) ListQueueEntries(ctx context.Context) ([]*model.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*model.QueueEntry, 0, len(s.entries))
	for _, e := range s.entries {
		result = append(result, shallow(e))
	}
	return result, nil
}

func (s *Storage) SaveNotification(ctx context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = shallow(n)
	return nil
}

func (s *Storage) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, model.ErrNotificationNotFound
	}
	return shallow(n), nil
}

func (s *Storage) ListNotifications(ctx context.Context) ([]*model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCopies(s.notifications, shallow[model.Notification]), nil
}

func (s *Storage) SaveReport(ctx context.Context, r *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ID] = shallow(r)
	return nil
}

func (s *Storage) ListReports(ctx context.Context) ([]*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCopies(s.reports, shallow[model.Report]), nil
}

// sortedCopies returns copies of every value ordered by map key
func sortedCopies[V any](m map[string]*V, copyFn func(*V) *V) []*V {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	result := make([]*V, 0, len(keys))
	for _, k := range keys {
		result = append(result, copyFn(m[k]))
	}
	return result
}

func shallow[T any](v *T) *T {
	c := *v
	return &c
}

func copyGuild(g *model.Guild) *model.Guild {
	c := *g
	c.Members = append([]string(nil), g.Members...)
	return &c
}

func copyAchievement(a *model.Achievement) *model.Achievement {
	c := *a
	return &c
}

func copyArticle(a *model.Article) *model.Article {
	c := *a
	c.Tags = append([]string(nil), a.Tags...)
	return &c
}
