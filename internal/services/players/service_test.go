package players

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/redskie/bamaco/internal/dependencies/mocks"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/services/authz"
	"github.com/redskie/bamaco/internal/services/cache"
	"github.com/redskie/bamaco/internal/services/content"
	"github.com/redskie/bamaco/internal/storage/memory"
	"github.com/redskie/bamaco/internal/testutil"
)

const (
	aliceFC = "111222333444555"
	bobFC   = "222333444555666"
	editKey = "alice-edit-key"
)

var (
	admin = &authz.Actor{FriendCode: "999888777666555", IsAdmin: true}
	alice = &authz.Actor{FriendCode: aliceFC}
	bob   = &authz.Actor{FriendCode: bobFC}
)

type ServiceSuite struct {
	suite.Suite
	storage      *memory.Storage
	clock        *mocks.MockClock
	random       *mocks.MockRandom
	cache        *cache.Cache
	achievements *content.Achievements
	articles     *content.Articles
	service      *Service
	ctx          context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	logger := testutil.NopLogger()
	s.cache = cache.New(logger, cache.WithClock(s.clock), cache.WithRegisterer(prometheus.NewRegistry()))
	s.achievements = content.NewAchievements(s.storage, s.cache, s.clock, s.random, logger)
	s.articles = content.NewArticles(s.storage, s.cache, s.clock, s.random, logger)
	s.service = New(s.storage, s.achievements, s.articles, s.cache, s.clock, s.random, logger)
	s.ctx = context.Background()
}

func (s *ServiceSuite) seed(fc, ign string, rating int, public bool) {
	s.Require().NoError(s.storage.CreateIdentity(s.ctx, &model.Identity{
		FriendCode:     model.FriendCode(fc),
		PasswordHash:   "salt:hash",
		EditKey:        ign + "-edit-key",
		IGN:            ign,
		Name:           ign + " Name",
		Rating:         rating,
		IsPublic:       public,
		AchievementIDs: []string{},
		ArticleIDs:     []string{},
	}))
}

func (s *ServiceSuite) TestGetStripsSecurityFields() {
	s.seed(aliceFC, "alice", 12000, true)

	p, err := s.service.Get(s.ctx, "111-222-333-444-555")
	s.Require().NoError(err)
	s.Equal("alice", p.IGN)
	s.Empty(p.PasswordHash)
	s.Empty(p.EditKey)
}

func (s *ServiceSuite) TestGetUnknown() {
	_, err := s.service.Get(s.ctx, aliceFC)
	s.ErrorIs(err, model.ErrIdentityNotFound)
}

func (s *ServiceSuite) TestListPublicByRating() {
	s.seed(aliceFC, "alice", 12000, true)
	s.seed(bobFC, "bob", 14000, true)
	s.seed("333444555666777", "hidden", 15000, false)

	list, err := s.service.List(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("bob", list[0].IGN)
	s.Equal("alice", list[1].IGN)

	top, err := s.service.List(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(top, 1)
}

func (s *ServiceSuite) TestSearchSubstringAndPattern() {
	s.seed(aliceFC, "Alice", 12000, true)
	s.seed(bobFC, "Bobby", 14000, true)

	found, err := s.service.Search(s.ctx, "LIC")
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("Alice", found[0].IGN)

	found, err = s.service.Search(s.ctx, "b*y")
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("Bobby", found[0].IGN)

	found, err = s.service.Search(s.ctx, "name")
	s.Require().NoError(err)
	s.Len(found, 2)

	found, err = s.service.Search(s.ctx, "  ")
	s.Require().NoError(err)
	s.Len(found, 2)
}

func (s *ServiceSuite) TestByGuildAndStats() {
	s.seed(aliceFC, "alice", 12000, true)
	s.seed(bobFC, "bob", 14001, true)
	s.seed("333444555666777", "carol", 0, true)
	guild := "bamaco"
	_, err := s.service.Update(s.ctx, admin, aliceFC, model.IdentityPatch{GuildID: &guild}, "")
	s.Require().NoError(err)
	_, err = s.service.Update(s.ctx, admin, bobFC, model.IdentityPatch{GuildID: &guild}, "")
	s.Require().NoError(err)

	members, err := s.service.ByGuild(s.ctx, "bamaco")
	s.Require().NoError(err)
	s.Len(members, 2)

	stats, err := s.service.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(Stats{TotalPlayers: 3, AverageRating: 8667, TopRating: 14001, ActiveGuilds: 1}, stats)
}

func (s *ServiceSuite) TestStatsEmpty() {
	stats, err := s.service.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(Stats{}, stats)
}

func (s *ServiceSuite) TestCreateByAdmin() {
	s.random.QueueString("fresh-edit-key")

	p, err := s.service.Create(s.ctx, admin, &model.Identity{FriendCode: "111-222-333-444-555", Trophy: "Star"})
	s.Require().NoError(err)
	s.Equal(model.FriendCode(aliceFC), p.FriendCode)
	s.Equal("fresh-edit-key", p.EditKey)
	s.Equal("Unknown", p.IGN)
	s.Equal(DefaultRank, p.Rank)
	s.Equal("Star", p.Title)
	s.True(p.IsPublic)

	_, err = s.service.Create(s.ctx, admin, &model.Identity{FriendCode: aliceFC})
	s.ErrorIs(err, model.ErrAccountExists)
}

func (s *ServiceSuite) TestCreateRequiresAdmin() {
	_, err := s.service.Create(s.ctx, alice, &model.Identity{FriendCode: aliceFC})
	s.ErrorIs(err, model.ErrNotAuthorized)
}

func (s *ServiceSuite) TestCreateValidatesFriendCode() {
	_, err := s.service.Create(s.ctx, admin, &model.Identity{FriendCode: "123"})
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ServiceSuite) TestUpdateThroughGate() {
	s.seed(aliceFC, "alice", 12000, true)
	motto := "hello"

	_, err := s.service.Update(s.ctx, bob, aliceFC, model.IdentityPatch{Motto: &motto}, "")
	s.ErrorIs(err, model.ErrNotAuthorized)

	_, err = s.service.Update(s.ctx, nil, aliceFC, model.IdentityPatch{Motto: &motto}, "wrong")
	s.ErrorIs(err, model.ErrNotAuthorized)

	s.clock.Advance(time.Minute)
	updated, err := s.service.Update(s.ctx, nil, aliceFC, model.IdentityPatch{Motto: &motto}, "alice-edit-key")
	s.Require().NoError(err)
	s.Equal("hello", updated.Motto)
	s.Empty(updated.EditKey)
	s.True(s.clock.Now().Equal(updated.UpdatedAt))

	_, err = s.service.Update(s.ctx, alice, aliceFC, model.IdentityPatch{Motto: &motto}, "")
	s.NoError(err)
}

func (s *ServiceSuite) TestOwnerCannotGrantAdmin() {
	s.seed(aliceFC, "alice", 12000, true)
	yes := true
	hash := "evil:hash"

	_, err := s.service.Update(s.ctx, alice, aliceFC, model.IdentityPatch{IsAdmin: &yes, PasswordHash: &hash}, "")
	s.Require().NoError(err)

	stored, err := s.storage.GetIdentity(s.ctx, aliceFC)
	s.Require().NoError(err)
	s.False(stored.IsAdmin)
	s.Equal("salt:hash", stored.PasswordHash)

	_, err = s.service.Update(s.ctx, admin, aliceFC, model.IdentityPatch{IsAdmin: &yes, PasswordHash: &hash}, "")
	s.Require().NoError(err)
	stored, err = s.storage.GetIdentity(s.ctx, aliceFC)
	s.Require().NoError(err)
	s.True(stored.IsAdmin)
	s.Equal("salt:hash", stored.PasswordHash)
}

func (s *ServiceSuite) TestUpdateInvalidatesList() {
	s.seed(aliceFC, "alice", 12000, true)
	_, err := s.service.List(s.ctx, 0)
	s.Require().NoError(err)

	ign := "alice2"
	_, err = s.service.Update(s.ctx, alice, aliceFC, model.IdentityPatch{IGN: &ign}, "")
	s.Require().NoError(err)

	list, err := s.service.List(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal("alice2", list[0].IGN)
}

func (s *ServiceSuite) TestDeleteNeedsEditKey() {
	s.seed(aliceFC, "alice", 12000, true)

	s.ErrorIs(s.service.Delete(s.ctx, aliceFC, ""), model.ErrNotAuthorized)
	s.ErrorIs(s.service.Delete(s.ctx, aliceFC, "wrong"), model.ErrNotAuthorized)
	s.Require().NoError(s.service.Delete(s.ctx, aliceFC, editKey))

	_, err := s.service.Get(s.ctx, aliceFC)
	s.ErrorIs(err, model.ErrIdentityNotFound)
}

func (s *ServiceSuite) TestAssignAndRemoveAchievement() {
	s.seed(aliceFC, "alice", 12000, true)
	s.seed(bobFC, "bob", 12000, true)
	a, err := s.achievements.CreateTemplate(s.ctx, admin, &model.Achievement{Title: "Champion"})
	s.Require().NoError(err)

	s.ErrorIs(s.service.AssignAchievement(s.ctx, alice, aliceFC, a.ID), model.ErrNotAuthorized)

	s.Require().NoError(s.service.AssignAchievement(s.ctx, admin, aliceFC, a.ID))
	held, err := s.service.Achievements(s.ctx, aliceFC)
	s.Require().NoError(err)
	s.Require().Len(held, 1)
	s.Equal(a.ID, held[0].ID)

	s.ErrorIs(s.service.AssignAchievement(s.ctx, admin, bobFC, a.ID), model.ErrAlreadyAssigned)
	bobHeld, err := s.service.Achievements(s.ctx, bobFC)
	s.Require().NoError(err)
	s.Empty(bobHeld)

	s.Require().NoError(s.service.RemoveAchievement(s.ctx, admin, aliceFC, a.ID))
	stored, err := s.storage.GetIdentity(s.ctx, aliceFC)
	s.Require().NoError(err)
	s.Empty(stored.AchievementIDs)

	item, err := s.achievements.Get(s.ctx, a.ID)
	s.Require().NoError(err)
	s.False(item.Assigned())

	s.NoError(s.service.AssignAchievement(s.ctx, admin, bobFC, a.ID))
}

func (s *ServiceSuite) TestAssignToUnknownPlayerLeavesItemFree() {
	a, err := s.articles.CreateTemplate(s.ctx, admin, &model.Article{Title: "Guide"})
	s.Require().NoError(err)

	s.ErrorIs(s.service.AssignArticle(s.ctx, admin, aliceFC, a.ID), model.ErrIdentityNotFound)

	item, err := s.articles.Get(s.ctx, a.ID)
	s.Require().NoError(err)
	s.False(item.Assigned())
}

func (s *ServiceSuite) TestAssignAndRemoveArticle() {
	s.seed(aliceFC, "alice", 12000, true)
	a, err := s.articles.CreateTemplate(s.ctx, admin, &model.Article{Title: "Guide"})
	s.Require().NoError(err)

	s.Require().NoError(s.service.AssignArticle(s.ctx, admin, aliceFC, a.ID))
	held, err := s.service.Articles(s.ctx, aliceFC)
	s.Require().NoError(err)
	s.Len(held, 1)

	s.Require().NoError(s.service.RemoveArticle(s.ctx, admin, aliceFC, a.ID))
	held, err = s.service.Articles(s.ctx, aliceFC)
	s.Require().NoError(err)
	s.Empty(held)
}
