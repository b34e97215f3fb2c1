// Package auth orchestrates login, registration and the logged-in state.
// It is the only component that moves the session between guest and
// authenticated; everything else observes it through Subscribe.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/redskie/bamaco/internal/dependencies/clock"
	"github.com/redskie/bamaco/internal/dependencies/random"
	"github.com/redskie/bamaco/internal/events"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/services/authz"
	"github.com/redskie/bamaco/internal/services/cache"
	"github.com/redskie/bamaco/internal/services/password"
	"github.com/redskie/bamaco/internal/services/session"
	"github.com/redskie/bamaco/pkg/errutil"
)

// EditKeyLength is the length of a generated edit key
const EditKeyLength = 32

// Config holds configuration for the auth service
type Config struct {
	// MaxFailedAttempts locks a friend code after this many consecutive
	// wrong passwords. Zero disables the lockout.
	MaxFailedAttempts int
	LockoutDuration   time.Duration
}

// DefaultConfig returns default auth configuration: no lockout
func DefaultConfig() Config {
	return Config{
		LockoutDuration: 15 * time.Minute,
	}
}

// Deps are the collaborators of the orchestrator
type Deps struct {
	Backend  Backend
	Sessions *session.Store
	Hasher   *password.Hasher
	Random   random.Random
	Clock    clock.Clock
	Logger   *slog.Logger
	// Profiles fills in registration data the caller left empty. Optional.
	Profiles ProfileLookup
	// Cache is invalidated after profile writes. Optional.
	Cache *cache.Cache
}

type failure struct {
	count       int
	lockedUntil time.Time
}

// Service is the auth orchestrator
type Service struct {
	backend  Backend
	sessions *session.Store
	hasher   *password.Hasher
	random   random.Random
	clock    clock.Clock
	logger   *slog.Logger
	profiles ProfileLookup
	cache    *cache.Cache
	cfg      Config

	mu       sync.Mutex
	state    State
	user     *model.SessionUser
	failures map[model.FriendCode]*failure

	changes   *events.Broker[StateChange]
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates the orchestrator. The initial state is authenticated when a
// valid session is stored, guest otherwise.
func New(deps Deps, cfg Config) *Service {
	if cfg.LockoutDuration == 0 {
		cfg.LockoutDuration = DefaultConfig().LockoutDuration
	}
	s := &Service{
		backend:  deps.Backend,
		sessions: deps.Sessions,
		hasher:   deps.Hasher,
		random:   deps.Random,
		clock:    deps.Clock,
		logger:   deps.Logger,
		profiles: deps.Profiles,
		cache:    deps.Cache,
		cfg:      cfg,
		state:    StateGuest,
		failures: make(map[model.FriendCode]*failure),
		changes:  events.NewBroker[StateChange]("auth", 16, deps.Logger),
		done:     make(chan struct{}),
	}
	if sess := s.sessions.Load(); sess != nil {
		user := sess.User
		s.user = &user
		s.state = StateAuthenticated
	}
	return s
}

// Close stops the session watcher and disconnects subscribers
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
	s.changes.Close()
}

// Mode reports which backend holds identities
func (s *Service) Mode() Mode {
	return s.backend.Mode()
}

// Login checks the password and starts a session. Legacy credentials that
// verify are rewritten in the canonical format.
func (s *Service) Login(ctx context.Context, identifier, pw string, rememberMe bool) (*model.Identity, error) {
	fc, err := model.ParseFriendCode(identifier)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(fc); err != nil {
		return nil, err
	}
	restore := s.beginAuthenticating()
	defer restore()

	identity, err := s.backend.Get(ctx, fc)
	if errors.Is(err, model.ErrIdentityNotFound) {
		return nil, model.ErrAccountNotFound
	}
	if err != nil {
		return nil, s.transient("login", err)
	}
	if !identity.HasPassword() {
		return nil, model.ErrAccountNotFound
	}

	ok, upgrade := s.hasher.VerifyAny(pw, identity.PasswordHash)
	if !ok {
		s.recordFailure(fc)
		return nil, model.ErrIncorrectPassword
	}
	delete(s.failures, fc)

	if upgrade {
		s.upgradeHash(ctx, fc, pw)
	}

	user := identity.Summary()
	if _, err := s.sessions.Save(user, rememberMe); err != nil {
		return nil, s.transient("login", err)
	}
	if identity.EditKey != "" {
		s.rememberEditKey(identity)
	}

	s.setUser(&user)
	s.logger.Info("logged in",
		slog.String("friend_code", string(fc)),
		slog.Bool("remember_me", rememberMe))

	out := identity.Clone()
	out.PasswordHash = ""
	return out, nil
}

// Register creates an identity with a fresh edit key and logs it in with
// remember-me set
func (s *Service) Register(ctx context.Context, identifier, pw string, profile ExternalProfile) (*model.Identity, error) {
	fc, err := model.ParseFriendCode(identifier)
	if err != nil {
		return nil, err
	}
	if err := password.Validate(pw); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.beginAuthenticating()
	defer restore()

	exists, err := s.backend.Exists(ctx, fc)
	if err != nil {
		return nil, s.transient("register", err)
	}
	if exists {
		return nil, model.ErrAccountExists
	}

	if profile.IGN == "" && s.profiles != nil {
		if looked, err := s.profiles.Lookup(ctx, fc); err != nil {
			s.logger.Warn("profile lookup failed",
				slog.String("friend_code", string(fc)),
				slog.String("error", err.Error()))
		} else {
			profile = looked
		}
	}

	now := s.clock.Now()
	identity := newIdentity(fc, s.hasher.Hash(pw), s.random.String(EditKeyLength, random.Alphanumeric), profile)
	identity.CreatedAt = now
	identity.UpdatedAt = now

	if err := s.backend.Create(ctx, identity); err != nil {
		if errors.Is(err, model.ErrIdentityExists) {
			return nil, model.ErrAccountExists
		}
		return nil, s.transient("register", err)
	}
	s.invalidatePlayers()

	s.rememberEditKey(identity)
	user := identity.Summary()
	if _, err := s.sessions.Save(user, true); err != nil {
		return nil, s.transient("register", err)
	}

	s.setUser(&user)
	s.logger.Info("registered", slog.String("friend_code", string(fc)))

	out := identity.Clone()
	out.PasswordHash = ""
	return out, nil
}

// SetPassword replaces the password of an identity the caller may edit,
// proven by the locally held edit key or the current session
func (s *Service) SetPassword(ctx context.Context, identifier, pw string) error {
	fc := model.NormalizeFriendCode(identifier)
	if err := fc.Validate(); err != nil {
		return err
	}

	identity, err := s.backend.Get(ctx, fc)
	if errors.Is(err, model.ErrIdentityNotFound) {
		return model.ErrAccountNotFound
	}
	if err != nil {
		return s.transient("set_password", err)
	}

	if err := authz.Authorize(s.actor(), identity, s.sessions.EditKeyFor(fc)); err != nil {
		return err
	}
	if err := password.Validate(pw); err != nil {
		return err
	}

	hash := s.hasher.Hash(pw)
	if _, err := s.backend.Update(ctx, fc, model.IdentityPatch{PasswordHash: &hash}); err != nil {
		if errors.Is(err, model.ErrIdentityNotFound) {
			return model.ErrAccountNotFound
		}
		return s.transient("set_password", err)
	}
	s.logger.Info("password set", slog.String("friend_code", string(fc)))
	return nil
}

// ContinueAsGuest records that the user declined to log in for this
// browsing session. No identity is touched.
func (s *Service) ContinueAsGuest() error {
	if err := s.sessions.SetGuest(true); err != nil {
		return s.transient("continue_as_guest", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify()
	return nil
}

// Logout clears the session. The guest flag is left as it is.
func (s *Service) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sessions.Clear(); err != nil {
		return s.transient("logout", err)
	}
	s.setUser(nil)
	s.logger.Info("logged out")
	return nil
}

// UpdateProfile lets the logged-in user edit their own profile. Only
// motto, bio, joined, name, nickname, age and guildId are written.
func (s *Service) UpdateProfile(ctx context.Context, patch model.IdentityPatch) (*model.Identity, error) {
	actor := s.actor()
	if err := authz.RequireLogin(actor); err != nil {
		return nil, err
	}

	identity, err := s.backend.Get(ctx, actor.FriendCode)
	if errors.Is(err, model.ErrIdentityNotFound) {
		return nil, model.ErrAccountNotFound
	}
	if err != nil {
		return nil, s.transient("update_profile", err)
	}
	if err := authz.Authorize(actor, identity, s.sessions.EditKeyFor(actor.FriendCode)); err != nil {
		return nil, err
	}

	allowed := model.IdentityPatch{
		Motto:    patch.Motto,
		Bio:      patch.Bio,
		Joined:   patch.Joined,
		Name:     patch.Name,
		Nickname: patch.Nickname,
		Age:      patch.Age,
		GuildID:  patch.GuildID,
	}
	if allowed.IsEmpty() {
		return identity.Public(), nil
	}
	now := s.clock.Now()
	allowed.UpdatedAt = &now

	updated, err := s.backend.Update(ctx, actor.FriendCode, allowed)
	if err != nil {
		return nil, s.transient("update_profile", err)
	}
	s.invalidatePlayers()
	return updated.Public(), nil
}

// CanEditProfile reports whether the gate would let this device change fc
func (s *Service) CanEditProfile(ctx context.Context, identifier string) bool {
	fc := model.NormalizeFriendCode(identifier)
	identity, err := s.backend.Get(ctx, fc)
	if err != nil {
		return false
	}
	return authz.CanMutate(s.actor(), identity, s.sessions.EditKeyFor(fc))
}

// Current returns the login state
func (s *Service) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the logged-in user, or nil for a guest
func (s *Service) User() *model.SessionUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Actor returns the logged-in user as seen by the authorization gate
func (s *Service) Actor() *authz.Actor {
	return s.actor()
}

// ShouldPromptLogin is true for a guest who has not chosen guest mode
func (s *Service) ShouldPromptLogin() bool {
	if s.Current() == StateAuthenticated {
		return false
	}
	return !s.sessions.IsGuest()
}

// Subscribe delivers a StateChange after every transition
func (s *Service) Subscribe(name string) (<-chan StateChange, func()) {
	sub, unsubscribe := s.changes.Subscribe(name)
	return sub.C, unsubscribe
}

// Watch follows session changes made by other processes until ctx ends.
// It does nothing when the session store cannot notify.
func (s *Service) Watch(ctx context.Context) {
	ch, unsubscribe := s.sessions.Watch("auth")
	if ch == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case change, ok := <-ch:
				if !ok {
					return
				}
				if session.IsSessionKey(change.Key) {
					s.Reconcile()
				}
			}
		}
	}()
}

// Reconcile reloads the stored session and emits a notification when it
// no longer matches the in-memory state
func (s *Service) Reconcile() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var user *model.SessionUser
	if sess := s.sessions.Load(); sess != nil {
		u := sess.User
		user = &u
	}
	if sameUser(user, s.user) {
		return
	}
	s.logger.Info("session changed externally", slog.Bool("logged_in", user != nil))
	s.setUser(user)
}

// actor snapshots the current user for the gate
func (s *Service) actor() *authz.Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return authz.FromSession(s.user)
}

// beginAuthenticating enters the transient state. The returned func puts the
// previous state back unless the call completed a transition. mu must be held.
func (s *Service) beginAuthenticating() func() {
	prev := s.state
	s.state = StateAuthenticating
	return func() {
		if s.state == StateAuthenticating {
			s.state = prev
		}
	}
}

// setUser moves to authenticated (or guest for nil) and notifies. mu must be held.
func (s *Service) setUser(user *model.SessionUser) {
	s.user = user
	if user != nil {
		s.state = StateAuthenticated
	} else {
		s.state = StateGuest
	}
	s.notify()
}

// notify publishes the current state. mu must be held.
func (s *Service) notify() {
	change := StateChange{State: s.state, IsLoggedIn: s.user != nil}
	if s.user != nil {
		u := *s.user
		change.User = &u
		change.IsAdmin = u.IsAdmin
	}
	s.changes.Publish(change)
}

func (s *Service) checkLocked(fc model.FriendCode) error {
	if s.cfg.MaxFailedAttempts <= 0 {
		return nil
	}
	f, ok := s.failures[fc]
	if ok && s.clock.Now().Before(f.lockedUntil) {
		return oops.
			Code("ACCOUNT_LOCKED").
			With("friend_code", string(fc)).
			With("locked_until", f.lockedUntil).
			Wrap(model.ErrAccountLocked)
	}
	return nil
}

func (s *Service) recordFailure(fc model.FriendCode) {
	if s.cfg.MaxFailedAttempts <= 0 {
		return
	}
	f, ok := s.failures[fc]
	if !ok {
		f = &failure{}
		s.failures[fc] = f
	}
	f.count++
	if f.count >= s.cfg.MaxFailedAttempts {
		f.count = 0
		f.lockedUntil = s.clock.Now().Add(s.cfg.LockoutDuration)
		s.logger.Warn("account locked", slog.String("friend_code", string(fc)))
	}
}

// upgradeHash rewrites a legacy credential. A failure is logged and the login
// still succeeds; the upgrade is retried on the next login.
func (s *Service) upgradeHash(ctx context.Context, fc model.FriendCode, pw string) {
	hash := s.hasher.Hash(pw)
	if _, err := s.backend.Update(ctx, fc, model.IdentityPatch{PasswordHash: &hash}); err != nil {
		s.logger.Warn("legacy password upgrade failed",
			slog.String("friend_code", string(fc)),
			slog.String("error", err.Error()))
		return
	}
	s.logger.Info("legacy password upgraded", slog.String("friend_code", string(fc)))
}

func (s *Service) rememberEditKey(identity *model.Identity) {
	owner := session.ProfileOwner{
		FriendCode: identity.FriendCode,
		IGN:        identity.IGN,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.sessions.SaveEditKey(identity.EditKey, owner); err != nil {
		s.logger.Warn("storing edit key failed", slog.String("error", err.Error()))
	}
}

func (s *Service) invalidatePlayers() {
	if s.cache != nil {
		s.cache.ClearPrefix(cache.KeyPlayersPrefix)
	}
}

// transient wraps an unexpected store failure so callers can match
// model.ErrTransientStore while the cause stays in the chain
func (s *Service) transient(op string, err error) error {
	wrapped := oops.
		Code("TRANSIENT_STORE").
		With("operation", op).
		Wrap(fmt.Errorf("%w: %w", model.ErrTransientStore, err))
	errutil.LogError(s.logger, "auth store failure", wrapped)
	return wrapped
}

func sameUser(a, b *model.SessionUser) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
