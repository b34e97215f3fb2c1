package authz

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/pkg/errutil"
)

const (
	ownerCode = model.FriendCode("111222333444555")
	otherCode = model.FriendCode("999888777666555")
	editKey   = "abcdefghijklmnopqrstuvwxyz012345"
)

func target() *model.Identity {
	return &model.Identity{FriendCode: ownerCode, EditKey: editKey}
}

func TestCanMutateTruthTable(t *testing.T) {
	tests := []struct {
		match bool
		admin bool
		owner bool
		want  bool
	}{
		{true, false, false, true},
		{true, false, true, true},
		{true, true, false, true},
		{true, true, true, true},
		{false, false, false, false},
		{false, false, true, true},
		{false, true, false, true},
		{false, true, true, true},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("match=%v admin=%v owner=%v", tt.match, tt.admin, tt.owner)
		t.Run(name, func(t *testing.T) {
			actor := &Actor{FriendCode: otherCode, IsAdmin: tt.admin}
			if tt.owner {
				actor.FriendCode = ownerCode
			}
			key := "wrong-key"
			if tt.match {
				key = editKey
			}

			assert.Equal(t, tt.want, CanMutate(actor, target(), key))

			err := Authorize(actor, target(), key)
			if tt.want {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, model.ErrNotAuthorized)
			}
		})
	}
}

func TestCanMutateAnonymous(t *testing.T) {
	assert.True(t, CanMutate(nil, target(), editKey))
	assert.False(t, CanMutate(nil, target(), ""))
	assert.False(t, CanMutate(&Actor{}, target(), "wrong"))
}

func TestEmptyKeysNeverMatch(t *testing.T) {
	assert.False(t, CanMutate(nil, &model.Identity{FriendCode: ownerCode}, ""))
	assert.False(t, CanMutate(nil, target(), ""))
	assert.Error(t, RequireEditKey(&model.Identity{FriendCode: ownerCode}, ""))
}

func TestOwnerComparisonIsNormalized(t *testing.T) {
	actor := &Actor{FriendCode: "111-222-333-444-555"}
	assert.True(t, CanMutate(actor, target(), ""))
}

func TestNilTargetIsDenied(t *testing.T) {
	admin := &Actor{FriendCode: ownerCode, IsAdmin: true}
	assert.False(t, CanMutate(admin, nil, editKey))
	assert.ErrorIs(t, Authorize(admin, nil, editKey), model.ErrNotAuthorized)
	assert.ErrorIs(t, RequireEditKey(nil, editKey), model.ErrNotAuthorized)
}

func TestDeniedErrorsCarryCode(t *testing.T) {
	err := Authorize(nil, target(), "")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "NOT_AUTHORIZED")
	errutil.AssertErrorContext(t, err, "friend_code", string(ownerCode))
}

func TestRequireAdmin(t *testing.T) {
	assert.NoError(t, RequireAdmin(&Actor{FriendCode: ownerCode, IsAdmin: true}))
	assert.ErrorIs(t, RequireAdmin(&Actor{FriendCode: ownerCode}), model.ErrNotAuthorized)
	assert.ErrorIs(t, RequireAdmin(nil), model.ErrNotAuthorized)
	// admin flag without an identity is not a login
	assert.ErrorIs(t, RequireAdmin(&Actor{IsAdmin: true}), model.ErrNotAuthorized)
}

func TestRequireLogin(t *testing.T) {
	assert.NoError(t, RequireLogin(&Actor{FriendCode: ownerCode}))
	assert.ErrorIs(t, RequireLogin(nil), model.ErrNotAuthorized)
}

func TestCanManageGuild(t *testing.T) {
	guild := &model.Guild{ID: "g1", Leader: ownerCode}

	assert.True(t, CanManageGuild(&Actor{FriendCode: ownerCode}, guild))
	assert.True(t, CanManageGuild(&Actor{FriendCode: otherCode, IsAdmin: true}, guild))
	assert.False(t, CanManageGuild(&Actor{FriendCode: otherCode}, guild))
	assert.False(t, CanManageGuild(nil, guild))
	assert.False(t, CanManageGuild(&Actor{FriendCode: otherCode}, &model.Guild{ID: "g2"}))
}

func TestRequireEditKey(t *testing.T) {
	assert.NoError(t, RequireEditKey(target(), editKey))
	assert.ErrorIs(t, RequireEditKey(target(), editKey[:31]), model.ErrNotAuthorized)
}

func TestFromSession(t *testing.T) {
	assert.Nil(t, FromSession(nil))
	a := FromSession(&model.SessionUser{FriendCode: "111 222 333 444 555", IsAdmin: true})
	assert.Equal(t, ownerCode, a.FriendCode)
	assert.True(t, a.IsAdmin)
}
