// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/storage"
)

// Identity returns a fully populated identity for fc
func Identity(fc model.FriendCode) *model.Identity {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.Identity{
		FriendCode:     fc,
		PasswordHash:   "00112233445566778899aabbccddeeff:abcd",
		EditKey:        "abcdefghijklmnopqrstuvwxyz012345",
		IGN:            "alice",
		Name:           "Alice",
		Rating:         12000,
		AchievementIDs: []string{},
		ArticleIDs:     []string{},
		IsPublic:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IdentitySuite checks an IdentityStore
type IdentitySuite struct {
	suite.Suite
	// New returns an empty store for each test
	New func() storage.IdentityStore

	Store storage.IdentityStore
	Ctx   context.Context
}

func (s *IdentitySuite) SetupTest() {
	s.Store = s.New()
	s.Ctx = context.Background()
}

func (s *IdentitySuite) TestCreateAndGet() {
	in := Identity("111222333444555")
	s.Require().NoError(s.Store.CreateIdentity(s.Ctx, in))

	got, err := s.Store.GetIdentity(s.Ctx, "111222333444555")
	s.Require().NoError(err)
	s.Equal(in.FriendCode, got.FriendCode)
	s.Equal(in.PasswordHash, got.PasswordHash)
	s.Equal(in.EditKey, got.EditKey)
	s.Equal(in.IGN, got.IGN)
	s.Equal(in.Rating, got.Rating)
	s.True(in.CreatedAt.Equal(got.CreatedAt))
}

func (s *IdentitySuite) TestGetNotFound() {
	_, err := s.Store.GetIdentity(s.Ctx, "000000000000000")
	s.ErrorIs(err, model.ErrIdentityNotFound)
}

func (s *IdentitySuite) TestCreateIsConditional() {
	s.Require().NoError(s.Store.CreateIdentity(s.Ctx, Identity("111222333444555")))

	dup := Identity("111222333444555")
	dup.IGN = "mallory"
	s.ErrorIs(s.Store.CreateIdentity(s.Ctx, dup), model.ErrIdentityExists)

	got, err := s.Store.GetIdentity(s.Ctx, "111222333444555")
	s.Require().NoError(err)
	s.Equal("alice", got.IGN)
}

func (s *IdentitySuite) TestConcurrentCreatesOnlyOneWins() {
	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Store.CreateIdentity(s.Ctx, Identity("111222333444555"))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		s.ErrorIs(err, model.ErrIdentityExists)
	}
	s.Equal(1, wins)
}

func (s *IdentitySuite) TestExists() {
	ok, err := s.Store.IdentityExists(s.Ctx, "111222333444555")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.Store.CreateIdentity(s.Ctx, Identity("111222333444555")))
	ok, err = s.Store.IdentityExists(s.Ctx, "111222333444555")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *IdentitySuite) TestUpdateWritesOnlyPatchedFields() {
	s.Require().NoError(s.Store.CreateIdentity(s.Ctx, Identity("111222333444555")))

	hash := "ffeeddccbbaa99887766554433221100:beef"
	updated, err := s.Store.UpdateIdentity(s.Ctx, "111222333444555", model.IdentityPatch{PasswordHash: &hash})
	s.Require().NoError(err)
	s.Equal(hash, updated.PasswordHash)
	s.Equal("alice", updated.IGN)
	s.Equal("abcdefghijklmnopqrstuvwxyz012345", updated.EditKey)

	got, err := s.Store.GetIdentity(s.Ctx, "111222333444555")
	s.Require().NoError(err)
	s.Equal(hash, got.PasswordHash)
	s.Equal(12000, got.Rating)
}

func (s *IdentitySuite) TestConcurrentPatchesToDifferentFieldsBothLand() {
	s.Require().NoError(s.Store.CreateIdentity(s.Ctx, Identity("111222333444555")))

	motto := "never give up"
	bio := "rhythm gamer"
	var wg sync.WaitGroup
	for _, patch := range []model.IdentityPatch{{Motto: &motto}, {Bio: &bio}} {
		wg.Add(1)
		go func(p model.IdentityPatch) {
			defer wg.Done()
			_, err := s.Store.UpdateIdentity(s.Ctx, "111222333444555", p)
			s.NoError(err)
		}(patch)
	}
	wg.Wait()

	got, err := s.Store.GetIdentity(s.Ctx, "111222333444555")
	s.Require().NoError(err)
	s.Equal(motto, got.Motto)
	s.Equal(bio, got.Bio)
}

func (s *IdentitySuite) TestUpdateNotFound() {
	ign := "ghost"
	_, err := s.Store.UpdateIdentity(s.Ctx, "000000000000000", model.IdentityPatch{IGN: &ign})
	s.ErrorIs(err, model.ErrIdentityNotFound)
}

func (s *IdentitySuite) TestDeleteAndList() {
	s.Require().NoError(s.Store.CreateIdentity(s.Ctx, Identity("222222222222222")))
	s.Require().NoError(s.Store.CreateIdentity(s.Ctx, Identity("111111111111111")))

	list, err := s.Store.ListIdentities(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(model.FriendCode("111111111111111"), list[0].FriendCode)

	s.Require().NoError(s.Store.DeleteIdentity(s.Ctx, "111111111111111"))
	s.Require().NoError(s.Store.DeleteIdentity(s.Ctx, "111111111111111"))

	list, err = s.Store.ListIdentities(s.Ctx)
	s.Require().NoError(err)
	s.Len(list, 1)

	_, err = s.Store.GetIdentity(s.Ctx, "111111111111111")
	s.ErrorIs(err, model.ErrIdentityNotFound)
}

func (s *IdentitySuite) TestReturnedRecordsAreCopies() {
	s.Require().NoError(s.Store.CreateIdentity(s.Ctx, Identity("111222333444555")))

	got, err := s.Store.GetIdentity(s.Ctx, "111222333444555")
	s.Require().NoError(err)
	got.IGN = "changed"
	got.AchievementIDs = append(got.AchievementIDs, "ach_x")

	again, err := s.Store.GetIdentity(s.Ctx, "111222333444555")
	s.Require().NoError(err)
	s.Equal("alice", again.IGN)
	s.Empty(again.AchievementIDs)
}

// Suite checks a full Storage backend
type Suite struct {
	suite.Suite
	// New returns an empty store for each test
	New func() storage.Storage

	Store storage.Storage
	Ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.Store = s.New()
	s.Ctx = context.Background()
}

func (s *Suite) TestPing() {
	s.NoError(s.Store.Ping(s.Ctx))
}

func (s *Suite) TestGuilds() {
	g := &model.Guild{ID: "g1", Name: "Beat Masters", Leader: "111222333444555", Members: []string{"111222333444555"}}
	s.Require().NoError(s.Store.SaveGuild(s.Ctx, g))
	s.Require().NoError(s.Store.SaveGuild(s.Ctx, &model.Guild{ID: "g0", Name: "Combo Crew"}))

	got, err := s.Store.GetGuild(s.Ctx, "g1")
	s.Require().NoError(err)
	s.Equal("Beat Masters", got.Name)
	s.Equal([]string{"111222333444555"}, got.Members)

	list, err := s.Store.ListGuilds(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("g0", list[0].ID)

	s.Require().NoError(s.Store.DeleteGuild(s.Ctx, "g1"))
	_, err = s.Store.GetGuild(s.Ctx, "g1")
	s.ErrorIs(err, model.ErrGuildNotFound)
}

func (s *Suite) TestCreateGuildIsConditional() {
	s.Require().NoError(s.Store.CreateGuild(s.Ctx, &model.Guild{ID: "g1", Name: "Beat Masters", Leader: "111222333444555", Members: []string{}}))

	err := s.Store.CreateGuild(s.Ctx, &model.Guild{ID: "g1", Name: "Hijacked", Leader: "555444333222111", Members: []string{}})
	s.ErrorIs(err, model.ErrGuildExists)

	got, err := s.Store.GetGuild(s.Ctx, "g1")
	s.Require().NoError(err)
	s.Equal("Beat Masters", got.Name)
	s.Equal(model.FriendCode("111222333444555"), got.Leader)

	list, err := s.Store.ListGuilds(s.Ctx)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *Suite) TestAchievements() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := (&model.Achievement{Title: "Full Combo"}).WithDefaults("ach_full_combo_1_abcdef", now)
	s.Require().NoError(s.Store.SaveAchievement(s.Ctx, a))

	a.Assign("111222333444555", now)
	s.Require().NoError(s.Store.SaveAchievement(s.Ctx, a))

	got, err := s.Store.GetAchievement(s.Ctx, a.ID)
	s.Require().NoError(err)
	s.Equal("Full Combo", got.Title)
	s.Equal(model.FriendCode("111222333444555"), got.AssignedTo)
	s.Require().NotNil(got.AssignedAt)
	s.True(now.Equal(*got.AssignedAt))

	list, err := s.Store.ListAchievements(s.Ctx)
	s.Require().NoError(err)
	s.Len(list, 1)

	s.Require().NoError(s.Store.DeleteAchievement(s.Ctx, a.ID))
	_, err = s.Store.GetAchievement(s.Ctx, a.ID)
	s.ErrorIs(err, model.ErrAchievementNotFound)
}

func (s *Suite) TestArticles() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := (&model.Article{Title: "Timing Windows 101", Tags: []string{"timing"}}).WithDefaults("art_timing_1_abcdef", now)
	s.Require().NoError(s.Store.SaveArticle(s.Ctx, a))

	got, err := s.Store.GetArticle(s.Ctx, a.ID)
	s.Require().NoError(err)
	s.Equal("timing-windows-101", got.Slug)
	s.Equal([]string{"timing"}, got.Tags)

	list, err := s.Store.ListArticles(s.Ctx)
	s.Require().NoError(err)
	s.Len(list, 1)

	s.Require().NoError(s.Store.DeleteArticle(s.Ctx, a.ID))
	_, err = s.Store.GetArticle(s.Ctx, a.ID)
	s.ErrorIs(err, model.ErrArticleNotFound)
}

func (s *Suite) TestQueueRequests() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &model.QueueRequest{ID: "r1", FriendCode: "111222333444555", IGN: "alice", Status: model.RequestPending, RequestedAt: now}
	s.Require().NoError(s.Store.SaveQueueRequest(s.Ctx, r))

	r.Status = model.RequestApproved
	r.HandledAt = &now
	s.Require().NoError(s.Store.SaveQueueRequest(s.Ctx, r))

	got, err := s.Store.GetQueueRequest(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Equal(model.RequestApproved, got.Status)

	list, err := s.Store.ListQueueRequests(s.Ctx)
	s.Require().NoError(err)
	s.Len(list, 1)

	_, err = s.Store.GetQueueRequest(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrRequestNotFound)
}

func (s *Suite) TestQueueEntriesKeepOrder() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, name := range []string{"zed", "amy", "bob"} {
		s.Require().NoError(s.Store.AppendQueueEntry(s.Ctx, &model.QueueEntry{Name: name, JoinedAt: now}))
	}

	list, err := s.Store.ListQueueEntries(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("zed", list[0].Name)
	s.Equal("bob", list[2].Name)
}

func (s *Suite) TestNotifications() {
	n := &model.Notification{ID: "n1", Type: model.NotificationQueueRequest, Message: "alice is requesting to join the queue"}
	s.Require().NoError(s.Store.SaveNotification(s.Ctx, n))

	n.Read = true
	s.Require().NoError(s.Store.SaveNotification(s.Ctx, n))

	got, err := s.Store.GetNotification(s.Ctx, "n1")
	s.Require().NoError(err)
	s.True(got.Read)

	list, err := s.Store.ListNotifications(s.Ctx)
	s.Require().NoError(err)
	s.Len(list, 1)

	_, err = s.Store.GetNotification(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrNotificationNotFound)
}

func (s *Suite) TestReports() {
	s.Require().NoError(s.Store.SaveReport(s.Ctx, &model.Report{ID: "rep1", Type: model.ReportBug, Title: "Crash"}))
	s.Require().NoError(s.Store.SaveReport(s.Ctx, &model.Report{ID: "rep2", Type: model.ReportFeature, Title: "Dark mode"}))

	list, err := s.Store.ListReports(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("rep1", list[0].ID)
}
