package factory

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/redskie/bamaco/internal/dependencies/mocks"
	"github.com/redskie/bamaco/internal/localstore"
	"github.com/redskie/bamaco/internal/services/auth"
	"github.com/redskie/bamaco/internal/services/cache"
	"github.com/redskie/bamaco/internal/storage/memory"
	"github.com/redskie/bamaco/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Storage is the shared store behind every registry
	Storage *memory.Storage
	// Durable stands in for the device-local session file
	Durable *localstore.Memory
	// Scoped stands in for the login-session file
	Scoped *localstore.Memory

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom

	stores *stores
	auth   auth.Config
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// It talks to an in-memory hosted store through the remote backend.
func NewTestApp() *TestApp {
	return newTestApp(auth.DefaultConfig())
}

// EndLoginSession drops session-scoped state, as logging out of the
// machine would
func (t *TestApp) EndLoginSession() {
	t.Scoped = localstore.NewMemory()
}

// NewTestAppWithAuth is NewTestApp with a custom auth configuration
func NewTestAppWithAuth(cfg auth.Config) *TestApp {
	return newTestApp(cfg)
}

func newTestApp(authCfg auth.Config) *TestApp {
	store := memory.New()
	durable := localstore.NewMemory()
	mockClock := mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	st := &stores{
		backend:    auth.NewRemoteBackend(store),
		identities: store,
		guilds:     store,
		content:    store,
		queue:      store,
	}
	t := &TestApp{
		Storage:    store,
		Durable:    durable,
		Scoped:     localstore.NewMemory(),
		MockClock:  mockClock,
		MockRandom: mockRandom,
		stores:     st,
		auth:       authCfg,
	}
	t.App = t.Restart()
	return t
}

// Restart builds a fresh App over the same stores and device state, the way
// the next CLI process in the same login session would see them
func (t *TestApp) Restart() *App {
	return newWithDependencies(t.stores, t.Durable, t.Scoped, t.MockClock, t.MockRandom, deps{
		auth:      t.auth,
		cacheOpts: []cache.Option{cache.WithRegisterer(prometheus.NewRegistry())},
		logger:    testutil.NopLogger(),
	})
}
