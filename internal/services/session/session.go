// Package session persists the logged-in user, the remember-me preference,
// the device's profile edit key and the guest flag in client-local storage.
package session

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/redskie/bamaco/internal/dependencies/clock"
	"github.com/redskie/bamaco/internal/events"
	"github.com/redskie/bamaco/internal/localstore"
	"github.com/redskie/bamaco/internal/model"
)

// Client-local storage keys
const (
	KeySession      = "bamaco_session"
	KeyRememberMe   = "bamaco_remember_me"
	KeyEditKey      = "profileEditKey"
	KeyProfileOwner = "bamaco_profile_owner"
	KeyGuestMode    = "bamaco_guest_mode"
)

// Session lifetimes
const (
	TransientTTL  = 24 * time.Hour
	RememberMeTTL = 30 * 24 * time.Hour
)

// Session is the persisted login
type Session struct {
	User      model.SessionUser `json:"user"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Valid reports whether the session is unexpired at now
func (s *Session) Valid(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// ProfileOwner records which identity the locally held edit key belongs to
type ProfileOwner struct {
	FriendCode model.FriendCode `json:"friendCode"`
	IGN        string           `json:"ign"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// Notifier delivers change notifications from the durable store
type Notifier interface {
	Subscribe(name string) (*events.Subscriber[localstore.Change], func())
}

// Store reads and writes session state.
// durable outlives the process; scoped holds the guest flag for this run only.
type Store struct {
	durable localstore.Store
	scoped  localstore.Store
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a session store
func New(durable, scoped localstore.Store, clk clock.Clock, logger *slog.Logger) *Store {
	return &Store{
		durable: durable,
		scoped:  scoped,
		clock:   clk,
		logger:  logger,
	}
}

// Save persists user with an expiry of 30 days when remember is set, 24 hours otherwise
func (s *Store) Save(user model.SessionUser, remember bool) (*Session, error) {
	ttl := TransientTTL
	if remember {
		ttl = RememberMeTTL
	}
	sess := &Session{User: user, ExpiresAt: s.clock.Now().Add(ttl)}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.durable.Set(KeySession, string(data)); err != nil {
		return nil, err
	}
	if err := s.durable.Set(KeyRememberMe, strconv.FormatBool(remember)); err != nil {
		return nil, err
	}
	return sess, nil
}

// Load returns the stored session, or nil when none is stored, it cannot be
// parsed or it has expired. Corrupt and expired sessions are cleared.
func (s *Store) Load() *Session {
	raw, ok, err := s.durable.Get(KeySession)
	if err != nil {
		s.logger.Warn("session read failed", slog.String("error", err.Error()))
		return nil
	}
	if !ok {
		return nil
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil || sess.User.FriendCode == "" {
		s.logger.Info("discarding unreadable session")
		s.clearQuietly()
		return nil
	}
	if !sess.Valid(s.clock.Now()) {
		s.logger.Debug("discarding expired session",
			slog.String("friend_code", string(sess.User.FriendCode)))
		s.clearQuietly()
		return nil
	}
	return &sess
}

// RememberMe reports the stored remember-me preference
func (s *Store) RememberMe() bool {
	v, ok, err := s.durable.Get(KeyRememberMe)
	if err != nil || !ok {
		return false
	}
	remember, _ := strconv.ParseBool(v)
	return remember
}

// Clear removes the session and remember-me flag. It is idempotent.
func (s *Store) Clear() error {
	if err := s.durable.Delete(KeySession); err != nil {
		return err
	}
	return s.durable.Delete(KeyRememberMe)
}

func (s *Store) clearQuietly() {
	if err := s.Clear(); err != nil {
		s.logger.Warn("session clear failed", slog.String("error", err.Error()))
	}
}

// SaveEditKey stores the device's edit key together with its owner
func (s *Store) SaveEditKey(key string, owner ProfileOwner) error {
	data, err := json.Marshal(owner)
	if err != nil {
		return err
	}
	if err := s.durable.Set(KeyEditKey, key); err != nil {
		return err
	}
	return s.durable.Set(KeyProfileOwner, string(data))
}

// EditKey returns the stored edit key and its owner. Both are empty when no
// key is held; an unreadable owner record yields the key with a nil owner.
func (s *Store) EditKey() (string, *ProfileOwner) {
	key, ok, err := s.durable.Get(KeyEditKey)
	if err != nil || !ok {
		return "", nil
	}
	raw, ok, err := s.durable.Get(KeyProfileOwner)
	if err != nil || !ok {
		return key, nil
	}
	var owner ProfileOwner
	if err := json.Unmarshal([]byte(raw), &owner); err != nil {
		return key, nil
	}
	return key, &owner
}

// EditKeyFor returns the stored edit key only if it belongs to fc
func (s *Store) EditKeyFor(fc model.FriendCode) string {
	key, owner := s.EditKey()
	if owner == nil || owner.FriendCode != fc {
		return ""
	}
	return key
}

// ClearEditKey forgets the device's edit key
func (s *Store) ClearEditKey() error {
	if err := s.durable.Delete(KeyEditKey); err != nil {
		return err
	}
	return s.durable.Delete(KeyProfileOwner)
}

// SetGuest sets or clears the guest flag for this browsing session
func (s *Store) SetGuest(guest bool) error {
	if !guest {
		return s.scoped.Delete(KeyGuestMode)
	}
	return s.scoped.Set(KeyGuestMode, "true")
}

// IsGuest reports whether the user chose to continue as a guest this session
func (s *Store) IsGuest() bool {
	v, ok, err := s.scoped.Get(KeyGuestMode)
	return err == nil && ok && v == "true"
}

// Watch subscribes to session changes made by this or another process.
// It returns nil channels when the durable store cannot notify.
func (s *Store) Watch(name string) (<-chan localstore.Change, func()) {
	n, ok := s.durable.(Notifier)
	if !ok {
		return nil, func() {}
	}
	sub, unsub := n.Subscribe(name)
	return sub.C, unsub
}

// IsSessionKey reports whether a change to key affects the logged-in state
func IsSessionKey(key string) bool {
	return key == KeySession || key == KeyRememberMe
}
