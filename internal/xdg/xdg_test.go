package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirsPreferXDGVariables(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")

	assert.Equal(t, "/xdg/config/bamaco", ConfigDir())
	assert.Equal(t, "/xdg/data/bamaco", DataDir())
	assert.Equal(t, "/xdg/state/bamaco", StateDir())
	assert.Equal(t, "/xdg/config/bamaco/config.yaml", ConfigFile())
	assert.Equal(t, "/xdg/state/bamaco/local.json", LocalStoreFile())
	assert.Equal(t, "/xdg/data/bamaco/identities.db", IdentityDB())
}

func TestSessionStoreUsesRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/bamaco/session.json", SessionStoreFile())

	t.Setenv("XDG_RUNTIME_DIR", "")
	assert.Equal(t, os.TempDir(), filepath.Dir(RuntimeDir()))
	assert.Contains(t, RuntimeDir(), "bamaco-")
}

func TestDirsFallBackToHome(t *testing.T) {
	t.Setenv("HOME", "/home/player")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_STATE_HOME", "")

	assert.Equal(t, "/home/player/.config/bamaco", ConfigDir())
	assert.Equal(t, "/home/player/.local/share/bamaco", DataDir())
	assert.Equal(t, "/home/player/.local/state/bamaco", StateDir())
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(path))
	assert.DirExists(t, path)
}
