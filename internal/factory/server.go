package factory

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/redskie/bamaco/internal/api"
	"github.com/redskie/bamaco/internal/dependencies/clock"
	"github.com/redskie/bamaco/internal/events"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/storage"
	"github.com/redskie/bamaco/internal/storage/memory"
	redisstorage "github.com/redskie/bamaco/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// Server contains the wired hosted store
type Server struct {
	Storage  storage.Storage
	Changes  *events.Broker[model.ChangeEvent]
	Registry *prometheus.Registry
	Handler  http.Handler

	closers []func() error
}

// ServerConfig holds configuration for the hosted store
type ServerConfig struct {
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// APIKey is required on every store route. Empty disables the check.
	APIKey string
	// Metrics serves /metrics with request and runtime collectors
	Metrics bool
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
}

// NewServer creates the hosted store with all dependencies wired
func NewServer(cfg ServerConfig) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var (
		store   storage.Storage
		closers []func() error
	)
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
		closers = append(closers, redisStore.Close)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	return newServerWithDependencies(store, clock.New(), cfg.APIKey, cfg.Metrics, logger, closers...), nil
}

func newServerWithDependencies(store storage.Storage, clk clock.Clock, apiKey string, metrics bool, logger *slog.Logger, closers ...func() error) *Server {
	changes := events.NewBroker[model.ChangeEvent]("changes", 64, logger)

	var reg *prometheus.Registry
	if metrics {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	handler := api.NewRouter(api.RouterConfig{
		Logger:   logger,
		Store:    store,
		Changes:  changes,
		Clock:    clk,
		APIKey:   apiKey,
		Registry: reg,
	})

	return &Server{
		Storage:  store,
		Changes:  changes,
		Registry: reg,
		Handler:  handler,
		closers:  closers,
	}
}

// Close ends the change feed and releases storage
func (s *Server) Close() error {
	s.Changes.Close()
	var errs []error
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
