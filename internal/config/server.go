package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Server configures the hosted store server
type Server struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	APIKey          string        `koanf:"api-key"`
	Store           string        `koanf:"store"`
	RedisURL        string        `koanf:"redis-url"`
	LogFormat       string        `koanf:"log-format"`
	ReadTimeout     time.Duration `koanf:"read-timeout"`
	WriteTimeout    time.Duration `koanf:"write-timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown-timeout"`
	Metrics         bool          `koanf:"metrics"`
}

// BindServerFlags registers the server flags on fs
func BindServerFlags(fs *pflag.FlagSet) {
	fs.String("host", env("HOST", ""), "listen host (env: BAMACO_HOST)")
	fs.Int("port", envInt("PORT", 8080), "listen port (env: BAMACO_PORT)")
	fs.String("api-key", env("API_KEY", ""), "project API key required by clients (env: BAMACO_API_KEY)")
	fs.String("store", env("STORE", StoreMemory), "storage backend: memory or redis (env: BAMACO_STORE)")
	fs.String("redis-url", env("REDIS_URL", "redis://localhost:6379"), "Redis URL (env: BAMACO_REDIS_URL)")
	fs.String("log-format", env("LOG_FORMAT", "json"), "log format: json or text (env: BAMACO_LOG_FORMAT)")
	fs.Duration("read-timeout", envDuration("READ_TIMEOUT", 15*time.Second), "HTTP read timeout")
	fs.Duration("write-timeout", envDuration("WRITE_TIMEOUT", 0), "HTTP write timeout (0 keeps event streams open)")
	fs.Duration("shutdown-timeout", envDuration("SHUTDOWN_TIMEOUT", 30*time.Second), "graceful shutdown timeout")
	fs.Bool("metrics", envBool("METRICS", true), "serve Prometheus metrics on /metrics (env: BAMACO_METRICS)")
}

// LoadServer reads the server configuration. path may be empty.
func LoadServer(path string, fs *pflag.FlagSet) (*Server, error) {
	var cfg Server
	if err := load(path, fs, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Server) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	switch c.Store {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis-url is required when store is redis")
		}
	default:
		return fmt.Errorf("store must be 'memory' or 'redis', got %q", c.Store)
	}
	return validLogFormat(c.LogFormat)
}
