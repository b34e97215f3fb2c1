// Package guilds manages player guilds
package guilds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/redskie/bamaco/internal/dependencies/clock"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/services/authz"
	"github.com/redskie/bamaco/internal/services/cache"
	"github.com/redskie/bamaco/internal/storage"
)

// Service is the guild registry
type Service struct {
	store  storage.GuildStore
	cache  *cache.Cache
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a guild registry. The cache is optional.
func New(store storage.GuildStore, c *cache.Cache, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  c,
		clock:  clk,
		logger: logger,
	}
}

// Get returns one guild
func (s *Service) Get(ctx context.Context, id string) (*model.Guild, error) {
	guild, err := s.store.GetGuild(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrGuildNotFound) {
			return nil, err
		}
		return nil, storeError("get", err)
	}
	return guild, nil
}

// List returns every guild, cached under cache.KeyGuilds
func (s *Service) List(ctx context.Context) ([]*model.Guild, error) {
	var (
		guilds []*model.Guild
		err    error
	)
	if s.cache != nil {
		guilds, err = cache.Get(ctx, s.cache, cache.KeyGuilds, 0, s.store.ListGuilds)
	} else {
		guilds, err = s.store.ListGuilds(ctx)
	}
	if err != nil {
		return nil, storeError("list", err)
	}
	return guilds, nil
}

// Search matches term against name and motto, case-insensitively
func (s *Service) Search(ctx context.Context, term string) ([]*model.Guild, error) {
	guilds, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	var result []*model.Guild
	for _, g := range guilds {
		if strings.Contains(strings.ToLower(g.Name), term) || strings.Contains(strings.ToLower(g.Motto), term) {
			result = append(result, g)
		}
	}
	return result, nil
}

// Create stores a new guild. The creator leads it unless a leader is given.
// An existing id is never overwritten; changing a guild goes through Update.
func (s *Service) Create(ctx context.Context, actor *authz.Actor, guild *model.Guild) (*model.Guild, error) {
	if err := authz.RequireLogin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(guild.ID) == "" {
		return nil, model.NewValidationError("id", "Guild ID is required")
	}

	g := *guild
	if g.Leader == "" {
		g.Leader = actor.FriendCode
	}
	g.Leader = model.NormalizeFriendCode(string(g.Leader))
	if g.Members == nil {
		g.Members = []string{}
	}
	now := s.clock.Now()
	g.CreatedAt = now
	g.UpdatedAt = now

	if err := s.store.CreateGuild(ctx, &g); err != nil {
		if errors.Is(err, model.ErrGuildExists) {
			return nil, oops.
				Code("GUILD_EXISTS").
				With("guild_id", g.ID).
				Wrap(err)
		}
		return nil, storeError("create", err)
	}
	s.invalidate()
	s.logger.Info("guild created",
		slog.String("guild_id", g.ID),
		slog.String("leader", string(g.Leader)))
	return &g, nil
}

// Update applies patch for an admin or the guild's leader
func (s *Service) Update(ctx context.Context, actor *authz.Actor, id string, patch model.GuildPatch) (*model.Guild, error) {
	guild, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanManageGuild(actor, guild) {
		return nil, denied("update", id)
	}

	patch.Apply(guild)
	guild.UpdatedAt = s.clock.Now()
	if err := s.store.SaveGuild(ctx, guild); err != nil {
		return nil, storeError("update", err)
	}
	s.invalidate()
	return guild, nil
}

// Delete removes a guild for an admin or the guild's leader
func (s *Service) Delete(ctx context.Context, actor *authz.Actor, id string) error {
	guild, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanManageGuild(actor, guild) {
		return denied("delete", id)
	}
	if err := s.store.DeleteGuild(ctx, id); err != nil {
		return storeError("delete", err)
	}
	s.invalidate()
	s.logger.Info("guild deleted", slog.String("guild_id", id))
	return nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Clear(cache.KeyGuilds)
	}
}

func denied(action, id string) error {
	return oops.
		Code("NOT_AUTHORIZED").
		With("action", "guild_"+action).
		With("guild_id", id).
		Wrap(model.ErrNotAuthorized)
}

func storeError(op string, err error) error {
	return oops.
		Code("TRANSIENT_STORE").
		With("operation", "guild_"+op).
		Wrap(fmt.Errorf("%w: %w", model.ErrTransientStore, err))
}
