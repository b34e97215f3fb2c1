// Package players is the profile registry: listing, search and gated edits of
// identities, and the achievement and article lists each player holds.
package players

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/redskie/bamaco/internal/dependencies/clock"
	"github.com/redskie/bamaco/internal/dependencies/random"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/services/authz"
	"github.com/redskie/bamaco/internal/services/cache"
	"github.com/redskie/bamaco/internal/services/content"
	"github.com/redskie/bamaco/internal/storage"
)

const (
	// EditKeyLength matches the key issued at registration
	EditKeyLength = 32
	// DefaultRank is given to profiles created without one
	DefaultRank = "Unranked"

	keyAll = cache.KeyPlayersPrefix + "all"
)

// globMeta are the characters that turn a search term into a pattern
const globMeta = "*?[{"

// Stats summarizes the public player base
type Stats struct {
	TotalPlayers  int `json:"totalPlayers"`
	AverageRating int `json:"averageRating"`
	TopRating     int `json:"topRating"`
	ActiveGuilds  int `json:"activeGuilds"`
}

// Service is the player registry
type Service struct {
	store        storage.IdentityStore
	achievements *content.Achievements
	articles     *content.Articles
	cache        *cache.Cache
	clock        clock.Clock
	random       random.Random
	logger       *slog.Logger
}

// New creates the player registry. The cache is optional.
func New(
	store storage.IdentityStore,
	achievements *content.Achievements,
	articles *content.Articles,
	c *cache.Cache,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:        store,
		achievements: achievements,
		articles:     articles,
		cache:        c,
		clock:        clk,
		random:       rnd,
		logger:       logger,
	}
}

// Get returns a profile without its security fields
func (s *Service) Get(ctx context.Context, fc model.FriendCode) (*model.Identity, error) {
	identity, err := s.get(ctx, fc)
	if err != nil {
		return nil, err
	}
	return identity.Public(), nil
}

// List returns public profiles by rating, highest first. A limit of zero
// returns all of them.
func (s *Service) List(ctx context.Context, limit int) ([]*model.Identity, error) {
	all, err := s.public(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Search matches term against ign, name and nickname, ignoring case. Terms
// holding glob metacharacters are matched as patterns against the whole field.
func (s *Service) Search(ctx context.Context, term string) ([]*model.Identity, error) {
	all, err := s.public(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return all, nil
	}

	match := func(field string) bool { return strings.Contains(field, term) }
	if strings.ContainsAny(term, globMeta) {
		g, err := glob.Compile(term)
		if err != nil {
			return nil, model.NewValidationError("term", "Invalid search pattern")
		}
		match = g.Match
	}

	var result []*model.Identity
	for _, p := range all {
		if match(strings.ToLower(p.IGN)) || match(strings.ToLower(p.Name)) || match(strings.ToLower(p.Nickname)) {
			result = append(result, p)
		}
	}
	return result, nil
}

// ByGuild returns the public members of a guild
func (s *Service) ByGuild(ctx context.Context, guildID string) ([]*model.Identity, error) {
	all, err := s.public(ctx)
	if err != nil {
		return nil, err
	}
	var result []*model.Identity
	for _, p := range all {
		if p.GuildID == guildID {
			result = append(result, p)
		}
	}
	return result, nil
}

// Stats computes totals over the public profiles
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := s.public(ctx)
	if err != nil {
		return Stats{}, err
	}
	var (
		stats  = Stats{TotalPlayers: len(all)}
		total  int
		guilds = make(map[string]struct{})
	)
	for _, p := range all {
		total += p.Rating
		stats.TopRating = max(stats.TopRating, p.Rating)
		if p.GuildID != "" {
			guilds[p.GuildID] = struct{}{}
		}
	}
	if len(all) > 0 {
		// rounded to nearest
		stats.AverageRating = (total + len(all)/2) / len(all)
	}
	stats.ActiveGuilds = len(guilds)
	return stats, nil
}

// Create adds a profile on an admin's behalf. The returned identity carries
// its new edit key so it can be handed to the player.
func (s *Service) Create(ctx context.Context, actor *authz.Actor, identity *model.Identity) (*model.Identity, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	fc, err := model.ParseFriendCode(string(identity.FriendCode))
	if err != nil {
		return nil, err
	}

	p := identity.Clone()
	p.FriendCode = fc
	p.PasswordHash = ""
	p.EditKey = s.random.String(EditKeyLength, random.Alphanumeric)
	if p.IGN == "" {
		p.IGN = "Unknown"
	}
	if p.Rank == "" {
		p.Rank = DefaultRank
	}
	if p.Title == "" {
		p.Title = p.Trophy
	}
	if p.AchievementIDs == nil {
		p.AchievementIDs = []string{}
	}
	if p.ArticleIDs == nil {
		p.ArticleIDs = []string{}
	}
	p.IsPublic = true
	now := s.clock.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.store.CreateIdentity(ctx, p); err != nil {
		if errors.Is(err, model.ErrIdentityExists) {
			return nil, model.ErrAccountExists
		}
		return nil, storeError("create", err)
	}
	s.invalidate()
	s.logger.Info("player created",
		slog.String("friend_code", string(fc)),
		slog.String("ign", p.IGN))
	return p, nil
}

// Update applies patch for a caller the gate lets through. Only admins may
// change admin fields; passwords go through the auth orchestrator.
func (s *Service) Update(ctx context.Context, actor *authz.Actor, fc model.FriendCode, patch model.IdentityPatch, editKey string) (*model.Identity, error) {
	identity, err := s.get(ctx, fc)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, identity, editKey); err != nil {
		return nil, err
	}

	if actor.Authenticated() && actor.IsAdmin {
		patch.PasswordHash = nil
	} else {
		patch = patch.ProfileOnly()
	}
	now := s.clock.Now()
	patch.UpdatedAt = &now

	updated, err := s.store.UpdateIdentity(ctx, identity.FriendCode, patch)
	if err != nil {
		if errors.Is(err, model.ErrIdentityNotFound) {
			return nil, err
		}
		return nil, storeError("update", err)
	}
	s.invalidate()
	return updated.Public(), nil
}

// Delete removes a profile. Only the edit key proves the right to do so.
func (s *Service) Delete(ctx context.Context, fc model.FriendCode, editKey string) error {
	identity, err := s.get(ctx, fc)
	if err != nil {
		return err
	}
	if err := authz.RequireEditKey(identity, editKey); err != nil {
		return err
	}
	if err := s.store.DeleteIdentity(ctx, identity.FriendCode); err != nil {
		return storeError("delete", err)
	}
	s.invalidate()
	s.logger.Info("player deleted", slog.String("friend_code", string(identity.FriendCode)))
	return nil
}

// AssignAchievement gives an achievement to a player. Admin only.
func (s *Service) AssignAchievement(ctx context.Context, actor *authz.Actor, fc model.FriendCode, id string) error {
	return s.assign(ctx, actor, fc, id, achievementList(s.achievements))
}

// RemoveAchievement takes an achievement back from a player. Admin only.
func (s *Service) RemoveAchievement(ctx context.Context, actor *authz.Actor, fc model.FriendCode, id string) error {
	return s.remove(ctx, actor, fc, id, achievementList(s.achievements))
}

// AssignArticle credits an article to a player. Admin only.
func (s *Service) AssignArticle(ctx context.Context, actor *authz.Actor, fc model.FriendCode, id string) error {
	return s.assign(ctx, actor, fc, id, articleList(s.articles))
}

// RemoveArticle takes an article back from a player. Admin only.
func (s *Service) RemoveArticle(ctx context.Context, actor *authz.Actor, fc model.FriendCode, id string) error {
	return s.remove(ctx, actor, fc, id, articleList(s.articles))
}

// Achievements returns the achievements a player holds, skipping IDs that no
// longer resolve
func (s *Service) Achievements(ctx context.Context, fc model.FriendCode) ([]*model.Achievement, error) {
	identity, err := s.get(ctx, fc)
	if err != nil {
		return nil, err
	}
	return resolve(ctx, identity.AchievementIDs, s.achievements.Get)
}

// Articles returns the articles credited to a player
func (s *Service) Articles(ctx context.Context, fc model.FriendCode) ([]*model.Article, error) {
	identity, err := s.get(ctx, fc)
	if err != nil {
		return nil, err
	}
	return resolve(ctx, identity.ArticleIDs, s.articles.Get)
}

// heldList ties a player's ID list to the registry it indexes
type heldList struct {
	name    string
	assign  func(ctx context.Context, id string, fc model.FriendCode) error
	release func(ctx context.Context, id string) error
	ids     func(i *model.Identity) []string
	patch   func(ids []string) model.IdentityPatch
}

func achievementList(r *content.Achievements) heldList {
	return heldList{
		name: "achievement",
		assign: func(ctx context.Context, id string, fc model.FriendCode) error {
			_, err := r.Assign(ctx, id, fc)
			return err
		},
		release: r.Release,
		ids:     func(i *model.Identity) []string { return i.AchievementIDs },
		patch:   func(ids []string) model.IdentityPatch { return model.IdentityPatch{AchievementIDs: &ids} },
	}
}

func articleList(r *content.Articles) heldList {
	return heldList{
		name: "article",
		assign: func(ctx context.Context, id string, fc model.FriendCode) error {
			_, err := r.Assign(ctx, id, fc)
			return err
		},
		release: r.Release,
		ids:     func(i *model.Identity) []string { return i.ArticleIDs },
		patch:   func(ids []string) model.IdentityPatch { return model.IdentityPatch{ArticleIDs: &ids} },
	}
}

// assign marks the item held in its registry, then records it on the player.
// The registry hold is undone if the player record cannot be written.
func (s *Service) assign(ctx context.Context, actor *authz.Actor, fc model.FriendCode, id string, list heldList) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}
	identity, err := s.get(ctx, fc)
	if err != nil {
		return err
	}
	if err := list.assign(ctx, id, identity.FriendCode); err != nil {
		return err
	}

	ids := list.ids(identity)
	if slices.Contains(ids, id) {
		return nil
	}
	ids = append(slices.Clone(ids), id)
	if err := s.patchLists(ctx, identity.FriendCode, list.patch(ids)); err != nil {
		if rerr := list.release(ctx, id); rerr != nil {
			s.logger.Error("rolling back assignment failed",
				slog.String(list.name, id),
				slog.String("error", rerr.Error()))
		}
		return err
	}
	s.logger.Info(list.name+" assigned",
		slog.String("friend_code", string(identity.FriendCode)),
		slog.String("id", id))
	return nil
}

func (s *Service) remove(ctx context.Context, actor *authz.Actor, fc model.FriendCode, id string, list heldList) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}
	identity, err := s.get(ctx, fc)
	if err != nil {
		return err
	}
	if err := list.release(ctx, id); err != nil {
		return err
	}
	ids := slices.DeleteFunc(slices.Clone(list.ids(identity)), func(v string) bool { return v == id })
	if err := s.patchLists(ctx, identity.FriendCode, list.patch(ids)); err != nil {
		return err
	}
	s.logger.Info(list.name+" removed",
		slog.String("friend_code", string(identity.FriendCode)),
		slog.String("id", id))
	return nil
}

func (s *Service) patchLists(ctx context.Context, fc model.FriendCode, patch model.IdentityPatch) error {
	now := s.clock.Now()
	patch.UpdatedAt = &now
	if _, err := s.store.UpdateIdentity(ctx, fc, patch); err != nil {
		return storeError("update_lists", err)
	}
	s.invalidate()
	return nil
}

// get loads the full record, security fields included
func (s *Service) get(ctx context.Context, fc model.FriendCode) (*model.Identity, error) {
	fc = model.NormalizeFriendCode(string(fc))
	identity, err := s.store.GetIdentity(ctx, fc)
	if err != nil {
		if errors.Is(err, model.ErrIdentityNotFound) {
			return nil, err
		}
		return nil, storeError("get", err)
	}
	return identity, nil
}

// public returns every public profile by rating, cached
func (s *Service) public(ctx context.Context) ([]*model.Identity, error) {
	load := func(ctx context.Context) ([]*model.Identity, error) {
		all, err := s.store.ListIdentities(ctx)
		if err != nil {
			return nil, err
		}
		result := make([]*model.Identity, 0, len(all))
		for _, identity := range all {
			if identity.IsPublic {
				result = append(result, identity.Public())
			}
		}
		slices.SortStableFunc(result, func(a, b *model.Identity) int {
			return cmp.Compare(b.Rating, a.Rating)
		})
		return result, nil
	}

	var (
		all []*model.Identity
		err error
	)
	if s.cache != nil {
		all, err = cache.Get(ctx, s.cache, keyAll, 0, load)
	} else {
		all, err = load(ctx)
	}
	if err != nil {
		return nil, storeError("list", err)
	}
	return slices.Clone(all), nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.ClearPrefix(cache.KeyPlayersPrefix)
	}
}

func resolve[T any](ctx context.Context, ids []string, get func(context.Context, string) (T, error)) ([]T, error) {
	result := make([]T, 0, len(ids))
	for _, id := range ids {
		item, err := get(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrTransientStore) {
				return nil, err
			}
			continue
		}
		result = append(result, item)
	}
	return result, nil
}

func storeError(op string, err error) error {
	return oops.
		Code("TRANSIENT_STORE").
		With("operation", "player_"+op).
		Wrap(fmt.Errorf("%w: %w", model.ErrTransientStore, err))
}
