package queue

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/suite"

	"github.com/redskie/bamaco/internal/dependencies/mocks"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/services/authz"
	"github.com/redskie/bamaco/internal/storage/memory"
	"github.com/redskie/bamaco/internal/testutil"
	"github.com/redskie/bamaco/pkg/errutil"
)

var (
	admin  = &authz.Actor{FriendCode: "999888777666555", IsAdmin: true}
	player = &authz.Actor{FriendCode: "111222333444555"}
)

type DeskSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	desk    *Desk
	ctx     context.Context
}

func TestDeskSuite(t *testing.T) {
	suite.Run(t, new(DeskSuite))
}

func (s *DeskSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.desk = New(s.storage, s.clock, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *DeskSuite) TestRequestQueueNotifiesAdmins() {
	req, err := s.desk.RequestQueue(s.ctx, player, "alice")
	s.Require().NoError(err)
	s.Equal(model.RequestPending, req.Status)
	s.Equal(model.FriendCode("111222333444555"), req.FriendCode)

	id, err := ulid.Parse(req.ID)
	s.Require().NoError(err)
	s.Equal(uint64(s.clock.Now().UnixMilli()), id.Time())

	inbox, err := s.desk.Notifications(s.ctx, admin, false)
	s.Require().NoError(err)
	s.Require().Len(inbox, 1)
	s.Equal(model.NotificationQueueRequest, inbox[0].Type)
	s.Equal(req.ID, inbox[0].RequestID)
	s.Equal("alice", inbox[0].PlayerIGN)
	s.Equal("alice is requesting to join the queue", inbox[0].Message)
	s.False(inbox[0].Read)
}

func (s *DeskSuite) TestRequestQueueRequiresLogin() {
	_, err := s.desk.RequestQueue(s.ctx, nil, "ghost")
	s.ErrorIs(err, model.ErrNotAuthorized)
	errutil.AssertErrorCode(s.T(), err, "NOT_AUTHORIZED")
}

func (s *DeskSuite) TestApproveAppendsToQueue() {
	req, err := s.desk.RequestQueue(s.ctx, player, "alice")
	s.Require().NoError(err)
	s.clock.Advance(time.Minute)

	handled, err := s.desk.HandleRequest(s.ctx, admin, req.ID, true)
	s.Require().NoError(err)
	s.Equal(model.RequestApproved, handled.Status)
	s.Require().NotNil(handled.HandledAt)
	s.True(s.clock.Now().Equal(*handled.HandledAt))
	s.Equal(admin.FriendCode, handled.HandledBy)

	queue, err := s.desk.Queue(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(queue, 1)
	s.Equal("alice", queue[0].Name)
	s.Equal(req.FriendCode, queue[0].FriendCode)
	s.False(queue[0].Paid)
	s.True(s.clock.Now().Equal(queue[0].JoinedAt))

	_, err = s.desk.HandleRequest(s.ctx, admin, req.ID, false)
	s.ErrorIs(err, model.ErrRequestHandled)
}

func (s *DeskSuite) TestDenyLeavesQueueEmpty() {
	req, err := s.desk.RequestQueue(s.ctx, player, "alice")
	s.Require().NoError(err)

	handled, err := s.desk.HandleRequest(s.ctx, admin, req.ID, false)
	s.Require().NoError(err)
	s.Equal(model.RequestDenied, handled.Status)

	queue, err := s.desk.Queue(s.ctx)
	s.Require().NoError(err)
	s.Empty(queue)

	pending, err := s.desk.Requests(s.ctx, admin, true)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *DeskSuite) TestHandleRequestIsAdminOnly() {
	req, err := s.desk.RequestQueue(s.ctx, player, "alice")
	s.Require().NoError(err)

	_, err = s.desk.HandleRequest(s.ctx, player, req.ID, true)
	s.ErrorIs(err, model.ErrNotAuthorized)

	_, err = s.desk.HandleRequest(s.ctx, admin, "missing", true)
	s.ErrorIs(err, model.ErrRequestNotFound)
}

func (s *DeskSuite) TestMarkNotificationRead() {
	_, err := s.desk.RequestQueue(s.ctx, player, "alice")
	s.Require().NoError(err)
	inbox, err := s.desk.Notifications(s.ctx, admin, true)
	s.Require().NoError(err)
	s.Require().Len(inbox, 1)

	s.ErrorIs(s.desk.MarkNotificationRead(s.ctx, player, inbox[0].ID), model.ErrNotAuthorized)
	s.Require().NoError(s.desk.MarkNotificationRead(s.ctx, admin, inbox[0].ID))

	unread, err := s.desk.Notifications(s.ctx, admin, true)
	s.Require().NoError(err)
	s.Empty(unread)

	s.ErrorIs(s.desk.MarkNotificationRead(s.ctx, admin, "missing"), model.ErrNotificationNotFound)
}

func (s *DeskSuite) TestSubmitReport() {
	report, err := s.desk.SubmitReport(s.ctx, player, "alice", model.ReportBug, " Crash ", "It crashed")
	s.Require().NoError(err)
	s.Equal("Crash", report.Title)
	s.Equal(model.RequestPending, report.Status)
	s.Equal("alice", report.SubmittedBy)

	reports, err := s.desk.Reports(s.ctx, admin)
	s.Require().NoError(err)
	s.Len(reports, 1)

	inbox, err := s.desk.Notifications(s.ctx, admin, false)
	s.Require().NoError(err)
	s.Require().Len(inbox, 1)
	s.Equal(model.NotificationReport, inbox[0].Type)
}

func (s *DeskSuite) TestSubmitReportValidates() {
	_, err := s.desk.SubmitReport(s.ctx, player, "alice", "complaint", "", "")

	var ve *model.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Len(ve.Violations, 2)

	_, err = s.desk.SubmitReport(s.ctx, nil, "", model.ReportOther, "t", "d")
	s.ErrorIs(err, model.ErrNotAuthorized)
}

func (s *DeskSuite) TestIDsSortByCreation() {
	s.desk = New(s.storage, s.clock, testutil.NopLogger(), WithEntropy(ulid.Monotonic(rand.Reader, 0)))

	first, err := s.desk.RequestQueue(s.ctx, player, "alice")
	s.Require().NoError(err)
	second, err := s.desk.RequestQueue(s.ctx, player, "alice")
	s.Require().NoError(err)
	s.clock.Advance(time.Second)
	third, err := s.desk.RequestQueue(s.ctx, player, "alice")
	s.Require().NoError(err)

	s.Less(first.ID, second.ID)
	s.Less(second.ID, third.ID)
}
