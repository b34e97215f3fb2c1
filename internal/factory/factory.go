package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/redskie/bamaco/internal/dependencies/clock"
	"github.com/redskie/bamaco/internal/dependencies/random"
	"github.com/redskie/bamaco/internal/localstore"
	"github.com/redskie/bamaco/internal/services/auth"
	"github.com/redskie/bamaco/internal/services/cache"
	"github.com/redskie/bamaco/internal/services/content"
	"github.com/redskie/bamaco/internal/services/guilds"
	"github.com/redskie/bamaco/internal/services/password"
	"github.com/redskie/bamaco/internal/services/players"
	"github.com/redskie/bamaco/internal/services/queue"
	"github.com/redskie/bamaco/internal/services/session"
	"github.com/redskie/bamaco/internal/storage"
	redisstorage "github.com/redskie/bamaco/internal/storage/redis"
	"github.com/redskie/bamaco/internal/storage/remote"
	"github.com/redskie/bamaco/internal/storage/sqlite"
)

// Backend selection
const (
	ModeAuto   = "auto"
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// DefaultHealthTimeout bounds the hosted store probe in auto mode
const DefaultHealthTimeout = 3 * time.Second

// App contains all wired client components
type App struct {
	// Storage
	Identities storage.IdentityStore

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Sessions     *session.Store
	Cache        *cache.Cache
	Auth         *auth.Service
	Players      *players.Service
	Guilds       *guilds.Service
	Achievements *content.Achievements
	Articles     *content.Articles
	Queue        *queue.Desk

	closers []func() error
}

// Config holds configuration for the client factory
type Config struct {
	// Mode is auto, remote or local. Empty means auto.
	Mode string
	// Remote reaches the hosted store
	Remote remote.Config
	// RedisURL reaches the hosted store's Redis directly. In remote mode it
	// replaces the HTTP API; in auto mode it is tried when the API does not
	// answer.
	RedisURL string
	// HealthTimeout bounds the hosted store probe in auto mode
	HealthTimeout time.Duration
	// LocalStorePath is the durable session file
	LocalStorePath string
	// SessionStorePath holds login-session scoped state. Empty keeps it in
	// memory for the life of the process.
	SessionStorePath string
	// IdentityDB is the on-device identity database used in local mode
	IdentityDB string
	// CacheTTL overrides cache.DefaultTTL when set
	CacheTTL time.Duration
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// Profiles fills in registration data. Optional.
	Profiles auth.ProfileLookup
	// Registerer receives the cache counters. Optional.
	Registerer prometheus.Registerer
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
}

// stores are the repositories behind one backend choice
type stores struct {
	backend    auth.Backend
	identities storage.IdentityStore
	guilds     storage.GuildStore
	content    storage.ContentStore
	queue      storage.QueueStore
	closers    []func() error
}

// New creates the client application. In auto mode the hosted store is
// probed once, then its Redis if configured; when neither answers, the run
// uses the on-device database.
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	durable, err := localstore.OpenFile(cfg.LocalStorePath, logger)
	if err != nil {
		st.close()
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := durable.Watch(ctx); err != nil {
		logger.Warn("session changes from other processes will not be seen", slog.String("error", err.Error()))
	}

	var scoped localstore.Store = localstore.NewMemory()
	if cfg.SessionStorePath != "" {
		f, err := localstore.OpenFile(cfg.SessionStorePath, logger)
		if err != nil {
			durable.Close()
			st.close()
			return nil, fmt.Errorf("open session store: %w", err)
		}
		scoped = f
	}

	authCfg := cfg.AuthConfig
	if authCfg.LockoutDuration == 0 {
		authCfg.LockoutDuration = auth.DefaultConfig().LockoutDuration
	}

	var cacheOpts []cache.Option
	if cfg.CacheTTL > 0 {
		cacheOpts = append(cacheOpts, cache.WithDefaultTTL(cfg.CacheTTL))
	}
	if cfg.Registerer != nil {
		cacheOpts = append(cacheOpts, cache.WithRegisterer(cfg.Registerer))
	}

	app := newWithDependencies(st, durable, scoped, clock.New(), random.New(), deps{
		auth:      authCfg,
		profiles:  cfg.Profiles,
		cacheOpts: cacheOpts,
		logger:    logger,
	})
	app.closers = append(app.closers, func() error {
		durable.Close()
		if f, ok := scoped.(*localstore.FileStore); ok {
			f.Close()
		}
		return nil
	})
	app.Auth.Watch(ctx)

	logger.Info("client ready", slog.String("mode", string(app.Auth.Mode())))
	return app, nil
}

func openStores(ctx context.Context, cfg Config, logger *slog.Logger) (*stores, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeAuto
	}

	switch mode {
	case ModeRemote:
		if cfg.RedisURL != "" {
			return redisStores(cfg.RedisURL)
		}
		return remoteStores(remote.New(cfg.Remote)), nil
	case ModeLocal:
		return localStores(cfg.IdentityDB)
	case ModeAuto:
		timeout := cfg.HealthTimeout
		if timeout == 0 {
			timeout = DefaultHealthTimeout
		}
		if cfg.Remote.BaseURL != "" {
			store := remote.New(cfg.Remote)
			probeCtx, cancel := context.WithTimeout(ctx, timeout)
			err := store.Ping(probeCtx)
			cancel()
			if err == nil {
				return remoteStores(store), nil
			}
			logger.Warn("hosted store unreachable",
				slog.String("server", cfg.Remote.BaseURL),
				slog.String("error", err.Error()))
		}
		if cfg.RedisURL != "" {
			st, err := redisStores(cfg.RedisURL)
			if err == nil {
				return st, nil
			}
			logger.Warn("hosted store redis unreachable", slog.String("error", err.Error()))
		}
		logger.Info("using local-only identities")
		return localStores(cfg.IdentityDB)
	default:
		return nil, errors.New("invalid Mode: must be 'auto', 'remote' or 'local'")
	}
}

func remoteStores(store storage.Storage, closers ...func() error) *stores {
	return &stores{
		backend:    auth.NewRemoteBackend(store),
		identities: store,
		guilds:     store,
		content:    store,
		queue:      store,
		closers:    closers,
	}
}

// redisStores talks to the hosted store's Redis without the HTTP API.
// redisstorage.New pings before returning.
func redisStores(url string) (*stores, error) {
	rcfg := redisstorage.DefaultConfig()
	rcfg.URL = url
	store, err := redisstorage.New(rcfg)
	if err != nil {
		return nil, fmt.Errorf("open redis store: %w", err)
	}
	return remoteStores(store, store.Close), nil
}

// localStores keeps everything in the on-device database, so data written by
// one command is there for the next
func localStores(path string) (*stores, error) {
	if path == "" {
		return nil, errors.New("IdentityDB required in local mode")
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open identity database: %w", err)
	}
	return &stores{
		backend:    auth.NewLocalOnlyBackend(db),
		identities: db,
		guilds:     db,
		content:    db,
		queue:      db,
		closers:    []func() error{db.Close},
	}, nil
}

func (st *stores) close() {
	for _, fn := range st.closers {
		_ = fn()
	}
}

type deps struct {
	auth      auth.Config
	profiles  auth.ProfileLookup
	cacheOpts []cache.Option
	logger    *slog.Logger
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(st *stores, durable, scoped localstore.Store, clk clock.Clock, rnd random.Random, d deps) *App {
	logger := d.logger
	c := cache.New(logger.With(slog.String("component", "cache")), append([]cache.Option{cache.WithClock(clk)}, d.cacheOpts...)...)
	sessions := session.New(durable, scoped, clk, logger)

	authService := auth.New(auth.Deps{
		Backend:  st.backend,
		Sessions: sessions,
		Hasher:   password.NewHasher(password.PlatformDigester{}, rnd),
		Random:   rnd,
		Clock:    clk,
		Logger:   logger.With(slog.String("component", "auth")),
		Profiles: d.profiles,
		Cache:    c,
	}, d.auth)

	achievements := content.NewAchievements(st.content, c, clk, rnd, logger)
	articles := content.NewArticles(st.content, c, clk, rnd, logger)

	return &App{
		Identities:   st.identities,
		Clock:        clk,
		Random:       rnd,
		Sessions:     sessions,
		Cache:        c,
		Auth:         authService,
		Players:      players.New(st.identities, achievements, articles, c, clk, rnd, logger),
		Guilds:       guilds.New(st.guilds, c, clk, logger),
		Achievements: achievements,
		Articles:     articles,
		Queue:        queue.New(st.queue, clk, logger),
		closers:      st.closers,
	}
}

// Close stops background work and releases storage
func (a *App) Close() error {
	a.Auth.Close()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
