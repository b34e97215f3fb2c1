package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/redskie/bamaco/internal/xdg"
)

// Backend selection for the client
const (
	// ModeAuto uses the hosted store when it answers its health check and
	// falls back to the on-device identity database otherwise
	ModeAuto   = "auto"
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Client configures the bamaco CLI
type Client struct {
	ServerURL string `koanf:"server"`
	APIKey    string `koanf:"api-key"`
	// RedisURL reaches the hosted store's Redis directly
	RedisURL   string `koanf:"redis-url"`
	Mode       string `koanf:"mode"`
	LocalStore string `koanf:"local-store"`
	// SessionStore lives as long as the login session
	SessionStore string        `koanf:"session-store"`
	IdentityDB   string        `koanf:"identity-db"`
	Output       string        `koanf:"output"`
	Timeout      time.Duration `koanf:"timeout"`
	CacheTTL     time.Duration `koanf:"cache-ttl"`
	LogFormat    string        `koanf:"log-format"`
	Verbose      bool          `koanf:"verbose"`
	// MaxFailedAttempts enables login lockout when above zero
	MaxFailedAttempts int           `koanf:"max-failed-attempts"`
	LockoutDuration   time.Duration `koanf:"lockout-duration"`
}

// BindClientFlags registers the client flags on fs
func BindClientFlags(fs *pflag.FlagSet) {
	fs.String("server", env("SERVER", "http://localhost:8080"), "hosted store URL (env: BAMACO_SERVER)")
	fs.String("api-key", env("API_KEY", ""), "project API key (env: BAMACO_API_KEY)")
	fs.String("redis-url", env("REDIS_URL", ""), "hosted store Redis URL, used instead of the HTTP API (env: BAMACO_REDIS_URL)")
	fs.String("mode", env("MODE", ModeAuto), "backend: auto, remote or local (env: BAMACO_MODE)")
	fs.String("local-store", env("LOCAL_STORE", xdg.LocalStoreFile()), "device-local session file (env: BAMACO_LOCAL_STORE)")
	fs.String("session-store", env("SESSION_STORE", xdg.SessionStoreFile()), "login-session scoped state file (env: BAMACO_SESSION_STORE)")
	fs.String("identity-db", env("IDENTITY_DB", xdg.IdentityDB()), "on-device identity database for local mode (env: BAMACO_IDENTITY_DB)")
	fs.StringP("output", "o", env("OUTPUT", OutputText), "output format: text, json or yaml")
	fs.Duration("timeout", envDuration("TIMEOUT", 30*time.Second), "hosted store request timeout")
	fs.Duration("cache-ttl", envDuration("CACHE_TTL", 5*time.Minute), "list cache lifetime")
	fs.String("log-format", env("LOG_FORMAT", "text"), "log format: json or text")
	fs.BoolP("verbose", "v", envBool("VERBOSE", false), "log to stderr")
	fs.Int("max-failed-attempts", envInt("MAX_FAILED_ATTEMPTS", 0), "lock an account after this many failed logins (0 disables)")
	fs.Duration("lockout-duration", envDuration("LOCKOUT_DURATION", 15*time.Minute), "how long a lockout lasts")
}

// LoadClient reads the client configuration. path may be empty.
func LoadClient(path string, fs *pflag.FlagSet) (*Client, error) {
	var cfg Client
	if err := load(path, fs, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Client) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeLocal:
	case ModeRemote:
		if c.ServerURL == "" && c.RedisURL == "" {
			return fmt.Errorf("server or redis-url is required in remote mode")
		}
	default:
		return fmt.Errorf("mode must be 'auto', 'remote' or 'local', got %q", c.Mode)
	}
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("output must be 'text', 'json' or 'yaml', got %q", c.Output)
	}
	if c.LocalStore == "" {
		return fmt.Errorf("local-store is required")
	}
	if c.MaxFailedAttempts < 0 {
		return fmt.Errorf("max-failed-attempts must not be negative")
	}
	return validLogFormat(c.LogFormat)
}
