package auth

import "github.com/redskie/bamaco/internal/model"

// State is the orchestrator's login state
type State int

const (
	StateGuest State = iota
	// StateAuthenticating is held only while a login or register call runs
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateGuest:
		return "guest"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// StateChange is published on every transition and carries the full state
type StateChange struct {
	State      State              `json:"-"`
	IsLoggedIn bool               `json:"isLoggedIn"`
	User       *model.SessionUser `json:"user,omitempty"`
	IsAdmin    bool               `json:"isAdmin"`
}
