// Package cache is the client-side TTL cache in front of remote reads.
// A failed refresh falls back to the last value fetched, however old.
package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/redskie/bamaco/internal/dependencies/clock"
)

// DefaultTTL is used when GetOrFetch is given a zero ttl and no
// WithDefaultTTL option was set
const DefaultTTL = 5 * time.Minute

// Well-known keys
const (
	KeyGuilds        = "guilds"
	KeyPlayersPrefix = "players:"
	KeyAchievements  = "achievements"
	KeyArticles      = "articles"
)

// Request results recorded on the requests counter
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultStale = "stale"
)

// FetchFunc loads a fresh value
type FetchFunc func(ctx context.Context) (any, error)

// Option configures a Cache
type Option func(*Cache)

// WithClock sets the time source
func WithClock(c clock.Clock) Option {
	return func(cache *Cache) {
		cache.clock = c
	}
}

// WithDefaultTTL replaces DefaultTTL for this cache
func WithDefaultTTL(ttl time.Duration) Option {
	return func(cache *Cache) {
		if ttl > 0 {
			cache.ttl = ttl
		}
	}
}

// WithRegisterer registers the cache counters on reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(cache *Cache) {
		cache.registerer = reg
	}
}

type entry struct {
	value    any
	cachedAt time.Time
}

// Cache maps string keys to the most recent fetched value
type Cache struct {
	logger     *slog.Logger
	clock      clock.Clock
	ttl        time.Duration
	registerer prometheus.Registerer
	requests   *prometheus.CounterVec

	mu      sync.Mutex
	entries map[string]entry
	// gen moves on every clear. A fetch only stores its result if gen has
	// not moved since it started, so a clear always wins over a fetch that
	// was already running.
	gen      uint64
	inflight map[string]int
	group    singleflight.Group
}

// New creates an empty cache
func New(logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		logger:   logger,
		clock:    clock.New(),
		ttl:      DefaultTTL,
		entries:  make(map[string]entry),
		inflight: make(map[string]int),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bamaco_cache_requests_total",
				Help: "Total number of cache lookups by result",
			},
			[]string{"result"},
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registerer != nil {
		c.registerer.MustRegister(c.requests)
	}
	return c
}

// GetOrFetch returns the cached value for key while it is younger than ttl.
// Otherwise it calls fetch and caches the result. When fetch fails and an
// older value exists, that value is returned instead of the error.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (any, error) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok && c.clock.Now().Sub(e.cachedAt) < ttl {
		c.requests.WithLabelValues(ResultHit).Inc()
		return e.value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		gen := c.gen
		c.inflight[key]++
		c.mu.Unlock()

		value, err := fetch(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.inflight[key]--; c.inflight[key] <= 0 {
			delete(c.inflight, key)
		}
		if err != nil {
			return nil, err
		}
		if c.gen == gen {
			c.entries[key] = entry{value: value, cachedAt: c.clock.Now()}
		}
		return value, nil
	})
	if err == nil {
		c.requests.WithLabelValues(ResultMiss).Inc()
		return v, nil
	}

	c.mu.Lock()
	stale, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return nil, err
	}
	c.logger.Warn("cache refresh failed, serving stale value",
		slog.String("key", key),
		slog.Duration("age", c.clock.Now().Sub(stale.cachedAt)),
		slog.String("error", err.Error()))
	c.requests.WithLabelValues(ResultStale).Inc()
	return stale.value, nil
}

// Clear removes key, or every entry when key is empty. Fetches already
// running for the key are not cached and later callers do not join them.
func (c *Cache) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if key == "" {
		c.entries = make(map[string]entry)
		for k := range c.inflight {
			c.group.Forget(k)
		}
		return
	}
	delete(c.entries, key)
	c.group.Forget(key)
}

// ClearPrefix removes every key starting with prefix
func (c *Cache) ClearPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	for k := range c.inflight {
		if strings.HasPrefix(k, prefix) {
			c.group.Forget(k)
		}
	}
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Get is GetOrFetch for a typed value
func Get[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.GetOrFetch(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		// a different type was cached under the key; refetch without caching
		return fetch(ctx)
	}
	return t, nil
}
