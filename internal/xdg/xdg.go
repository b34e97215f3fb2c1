// Package xdg provides XDG Base Directory paths for bamaco.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "bamaco"

// ConfigDir returns the XDG config directory for bamaco.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	return dir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for bamaco.
// Checks XDG_DATA_HOME first, falls back to ~/.local/share.
func DataDir() string {
	return dir("XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the XDG state directory for bamaco.
// Checks XDG_STATE_HOME first, falls back to ~/.local/state.
func StateDir() string {
	return dir("XDG_STATE_HOME", ".local", "state")
}

// RuntimeDir returns the per-login runtime directory for bamaco.
// Checks XDG_RUNTIME_DIR first, falls back to a per-user temp directory.
func RuntimeDir() string {
	if base := os.Getenv("XDG_RUNTIME_DIR"); base != "" {
		return filepath.Join(base, appName)
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s-%d", appName, os.Getuid()))
}

// ConfigFile is the default client config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LocalStoreFile is the durable client-local key/value file
func LocalStoreFile() string {
	return filepath.Join(StateDir(), "local.json")
}

// SessionStoreFile holds state scoped to the login session, like the guest flag
func SessionStoreFile() string {
	return filepath.Join(RuntimeDir(), "session.json")
}

// IdentityDB is the on-device identity database for local-only mode
func IdentityDB() string {
	return filepath.Join(DataDir(), "identities.db")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

func dir(env string, fallback ...string) string {
	base := os.Getenv(env)
	if base == "" {
		base = filepath.Join(append([]string{os.Getenv("HOME")}, fallback...)...)
	}
	return filepath.Join(base, appName)
}
