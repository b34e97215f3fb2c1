// Package authz decides who may change a profile or run an admin action.
package authz

import (
	"crypto/subtle"

	"github.com/samber/oops"

	"github.com/redskie/bamaco/internal/model"
)

// Actor is the caller as seen by the gate. A nil *Actor is an anonymous caller.
type Actor struct {
	FriendCode model.FriendCode
	IsAdmin    bool
}

// FromSession builds an actor from a session user. A nil user is anonymous.
func FromSession(u *model.SessionUser) *Actor {
	if u == nil {
		return nil
	}
	return &Actor{FriendCode: model.NormalizeFriendCode(string(u.FriendCode)), IsAdmin: u.IsAdmin}
}

// Authenticated reports whether a logged-in user is behind the actor
func (a *Actor) Authenticated() bool {
	return a != nil && a.FriendCode != ""
}

// CanMutate reports whether actor may change target.
// In order: a matching edit key, an admin actor, the owner.
func CanMutate(actor *Actor, target *model.Identity, editKey string) bool {
	if target == nil {
		return false
	}
	if matchesEditKey(target.EditKey, editKey) {
		return true
	}
	if !actor.Authenticated() {
		return false
	}
	if actor.IsAdmin {
		return true
	}
	return model.NormalizeFriendCode(string(actor.FriendCode)) == model.NormalizeFriendCode(string(target.FriendCode))
}

// Authorize is CanMutate as an error
func Authorize(actor *Actor, target *model.Identity, editKey string) error {
	if CanMutate(actor, target, editKey) {
		return nil
	}
	return denied("mutate", target)
}

// RequireAdmin allows only admins
func RequireAdmin(actor *Actor) error {
	if actor.Authenticated() && actor.IsAdmin {
		return nil
	}
	return oops.
		Code("NOT_AUTHORIZED").
		With("action", "admin").
		Wrap(model.ErrNotAuthorized)
}

// RequireLogin allows any logged-in user
func RequireLogin(actor *Actor) error {
	if actor.Authenticated() {
		return nil
	}
	return oops.
		Code("NOT_AUTHORIZED").
		With("action", "login_required").
		Wrap(model.ErrNotAuthorized)
}

// CanManageGuild allows admins and the guild's leader
func CanManageGuild(actor *Actor, guild *model.Guild) bool {
	if !actor.Authenticated() || guild == nil {
		return false
	}
	if actor.IsAdmin {
		return true
	}
	return guild.Leader != "" && model.NormalizeFriendCode(string(guild.Leader)) == actor.FriendCode
}

// RequireEditKey allows only callers proving ownership with the edit key
func RequireEditKey(target *model.Identity, editKey string) error {
	if target != nil && matchesEditKey(target.EditKey, editKey) {
		return nil
	}
	return denied("edit_key", target)
}

func matchesEditKey(stored, provided string) bool {
	if provided == "" || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) == 1
}

func denied(action string, target *model.Identity) error {
	var fc string
	if target != nil {
		fc = string(target.FriendCode)
	}
	return oops.
		Code("NOT_AUTHORIZED").
		With("action", action).
		With("friend_code", fc).
		Wrap(model.ErrNotAuthorized)
}
