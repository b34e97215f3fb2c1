package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/services/auth"
	"github.com/redskie/bamaco/internal/services/authz"
	"github.com/redskie/bamaco/internal/testutil"
)

const (
	playerFC = "111222333444555"
	adminFC  = "999888777666555"
	strongPW = "Str0ng!Pass"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.Require().NoError(s.app.Close())
}

// registerAdmin creates an admin account and leaves it logged in
func (s *IntegrationSuite) registerAdmin() *authz.Actor {
	_, err := s.app.Auth.Register(s.ctx, adminFC, strongPW, auth.ExternalProfile{IGN: "boss"})
	s.Require().NoError(err)
	isAdmin := true
	_, err = s.app.Storage.UpdateIdentity(s.ctx, adminFC, model.IdentityPatch{IsAdmin: &isAdmin})
	s.Require().NoError(err)

	s.Require().NoError(s.app.Auth.Logout())
	_, err = s.app.Auth.Login(s.ctx, adminFC, strongPW, false)
	s.Require().NoError(err)

	actor := s.app.Auth.Actor()
	s.Require().True(actor.IsAdmin)
	return actor
}

func (s *IntegrationSuite) registerPlayer() *authz.Actor {
	_, err := s.app.Auth.Register(s.ctx, "111-222-333-444-555", strongPW, auth.ExternalProfile{IGN: "alice", Rating: 14001})
	s.Require().NoError(err)
	return s.app.Auth.Actor()
}

// Test: registration shows up in the player registry and the session
func (s *IntegrationSuite) TestRegisterThenBrowsePlayers() {
	actor := s.registerPlayer()
	s.Equal(model.FriendCode(playerFC), actor.FriendCode)
	s.Equal(auth.StateAuthenticated, s.app.Auth.Current())

	list, err := s.app.Players.List(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("alice", list[0].IGN)
	s.Empty(list[0].PasswordHash)
	s.Empty(list[0].EditKey)

	stats, err := s.app.Players.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.TotalPlayers)
	s.Equal(14001, stats.TopRating)
}

// Test: the session outlives the orchestrator that created it
func (s *IntegrationSuite) TestSessionRestoredByNewOrchestrator() {
	s.registerPlayer()

	restored := auth.New(auth.Deps{
		Backend:  auth.NewRemoteBackend(s.app.Storage),
		Sessions: s.app.Sessions,
		Clock:    s.app.Clock,
		Random:   s.app.Random,
		Logger:   testutil.NopLogger(),
	}, auth.DefaultConfig())
	defer restored.Close()

	s.Equal(auth.StateAuthenticated, restored.Current())
	s.Equal(model.FriendCode(playerFC), restored.User().FriendCode)

	s.app.MockClock.Advance(31 * 24 * time.Hour)
	expired := auth.New(auth.Deps{
		Backend:  auth.NewRemoteBackend(s.app.Storage),
		Sessions: s.app.Sessions,
		Clock:    s.app.Clock,
		Random:   s.app.Random,
		Logger:   testutil.NopLogger(),
	}, auth.DefaultConfig())
	defer expired.Close()
	s.Equal(auth.StateGuest, expired.Current())
}

// Test: a player's profile edit goes through the gate with the session
func (s *IntegrationSuite) TestUpdateOwnProfile() {
	actor := s.registerPlayer()

	motto := "full combo or bust"
	updated, err := s.app.Players.Update(s.ctx, actor, playerFC, model.IdentityPatch{Motto: &motto}, "")
	s.Require().NoError(err)
	s.Equal(motto, updated.Motto)

	// another logged-in player is refused
	other := &authz.Actor{FriendCode: "555444333222111"}
	_, err = s.app.Players.Update(s.ctx, other, playerFC, model.IdentityPatch{Motto: &motto}, "")
	s.ErrorIs(err, model.ErrNotAuthorized)
}

// Test: admin creates an achievement and assigns it to a player
func (s *IntegrationSuite) TestAchievementAssignmentFlow() {
	s.registerPlayer()
	s.Require().NoError(s.app.Auth.Logout())
	admin := s.registerAdmin()

	s.app.MockRandom.QueueString("a1b2c3")
	tmpl, err := s.app.Achievements.CreateTemplate(s.ctx, admin, &model.Achievement{Title: "First Clear", Category: "Progress"})
	s.Require().NoError(err)

	s.Require().NoError(s.app.Players.AssignAchievement(s.ctx, admin, playerFC, tmpl.ID))

	held, err := s.app.Players.Achievements(s.ctx, playerFC)
	s.Require().NoError(err)
	s.Require().Len(held, 1)
	s.Equal(tmpl.ID, held[0].ID)
	s.Equal(model.FriendCode(playerFC), held[0].AssignedTo)

	err = s.app.Players.AssignAchievement(s.ctx, admin, adminFC, tmpl.ID)
	s.ErrorIs(err, model.ErrAlreadyAssigned)

	stats, err := s.app.Achievements.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Assigned)
	s.Equal(0, stats.Available)
}

// Test: queue request from a player, approved by an admin
func (s *IntegrationSuite) TestQueueRequestFlow() {
	player := s.registerPlayer()
	req, err := s.app.Queue.RequestQueue(s.ctx, player, s.app.Auth.User().IGN)
	s.Require().NoError(err)
	s.Require().NoError(s.app.Auth.Logout())

	admin := s.registerAdmin()
	inbox, err := s.app.Queue.Notifications(s.ctx, admin, true)
	s.Require().NoError(err)
	s.Require().Len(inbox, 1)
	s.Equal("alice is requesting to join the queue", inbox[0].Message)

	_, err = s.app.Queue.HandleRequest(s.ctx, admin, req.ID, true)
	s.Require().NoError(err)

	q, err := s.app.Queue.Queue(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(q, 1)
	s.Equal("alice", q[0].Name)
}

// Test: guild list cache sees writes made through the registry
func (s *IntegrationSuite) TestGuildCreateAndList() {
	actor := s.registerPlayer()

	_, err := s.app.Guilds.Create(s.ctx, actor, &model.Guild{ID: "bamaco", Name: "BAMACO"})
	s.Require().NoError(err)

	list, err := s.app.Guilds.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(model.FriendCode(playerFC), list[0].Leader)
}

// Test: lockout can be switched on through the factory
func (s *IntegrationSuite) TestLockoutConfig() {
	app := NewTestAppWithAuth(auth.Config{MaxFailedAttempts: 1, LockoutDuration: time.Minute})
	defer func() { _ = app.Close() }()

	_, err := app.Auth.Register(s.ctx, playerFC, strongPW, auth.ExternalProfile{IGN: "alice"})
	s.Require().NoError(err)
	s.Require().NoError(app.Auth.Logout())

	_, err = app.Auth.Login(s.ctx, playerFC, "Wr0ng!Pass", false)
	s.ErrorIs(err, model.ErrIncorrectPassword)
	_, err = app.Auth.Login(s.ctx, playerFC, strongPW, false)
	s.ErrorIs(err, model.ErrAccountLocked)

	app.MockClock.Advance(time.Minute + time.Second)
	_, err = app.Auth.Login(s.ctx, playerFC, strongPW, false)
	s.NoError(err)
}
