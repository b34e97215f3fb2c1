package e2e_test

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redskie/bamaco/internal/factory"
	"github.com/redskie/bamaco/internal/testutil"
)

const apiKey = "e2e-key"

// cliRunner runs the bamaco binary against one device's state
type cliRunner struct {
	binaryPath string
	serverURL  string
	dir        string
}

func buildCLI(t *testing.T) string {
	t.Helper()

	projectRoot := findProjectRoot(t)
	binaryPath := filepath.Join(t.TempDir(), "bamaco-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/bamaco")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))
	return binaryPath
}

func newCLIRunner(t *testing.T, binaryPath, serverURL string) *cliRunner {
	t.Helper()
	return &cliRunner{binaryPath: binaryPath, serverURL: serverURL, dir: t.TempDir()}
}

func (r *cliRunner) run(stdin string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--config", filepath.Join(r.dir, "config.yaml"),
		"--server", r.serverURL,
		"--api-key", apiKey,
		"--mode", "remote",
		"--local-store", filepath.Join(r.dir, "local.json"),
		"--session-store", filepath.Join(r.dir, "session.json"),
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(), "HOME="+r.dir)
	output, err := cmd.Output()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

func startTestServer(t *testing.T) (*factory.Server, *httptest.Server) {
	t.Helper()

	srv, err := factory.NewServer(factory.ServerConfig{APIKey: apiKey, Logger: testutil.NopLogger()})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
	})
	return srv, ts
}

type healthResponse struct {
	Status string `json:"status"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type statusResponse struct {
	IsLoggedIn bool `json:"isLoggedIn"`
	User       *struct {
		FriendCode string `json:"friendCode"`
		IGN        string `json:"ign"`
	} `json:"user"`
	Mode string `json:"mode"`
}

type playerResponse struct {
	FriendCode string `json:"friendCode"`
	IGN        string `json:"ign"`
	Rating     int    `json:"rating"`
	Motto      string `json:"motto"`
}

func TestCLI_HealthCheck(t *testing.T) {
	_, ts := startTestServer(t)
	cli := newCLIRunner(t, buildCLI(t), ts.URL)

	output, err := cli.run("", "health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_RegisterAndBrowse(t *testing.T) {
	srv, ts := startTestServer(t)
	binary := buildCLI(t)
	alice := newCLIRunner(t, binary, ts.URL)

	output, err := alice.run("Str0ng!Pass\n", "register", "111-222-333-444-555", "--ign", "alice", "--rating", "14001")
	require.NoError(t, err, "output: %s", output)

	var msg messageResponse
	require.NoError(t, json.Unmarshal([]byte(output), &msg))
	assert.Equal(t, "Registered alice (111222333444555)", msg.Message)

	stored, err := srv.Storage.GetIdentity(t.Context(), "111222333444555")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)

	output, err = alice.run("", "whoami")
	require.NoError(t, err, "output: %s", output)
	var status statusResponse
	require.NoError(t, json.Unmarshal([]byte(output), &status))
	assert.True(t, status.IsLoggedIn)
	assert.Equal(t, "remote", status.Mode)

	output, err = alice.run("", "profile", "update", "--motto", "full combo")
	require.NoError(t, err, "output: %s", output)

	// a second device sees the change through the server
	bob := newCLIRunner(t, binary, ts.URL)
	output, err = bob.run("", "players", "list")
	require.NoError(t, err, "output: %s", output)

	var list []playerResponse
	require.NoError(t, json.Unmarshal([]byte(output), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].IGN)
	assert.Equal(t, 14001, list[0].Rating)
	assert.Equal(t, "full combo", list[0].Motto)

	output, err = bob.run("", "whoami")
	require.NoError(t, err, "output: %s", output)
	status = statusResponse{}
	require.NoError(t, json.Unmarshal([]byte(output), &status))
	assert.False(t, status.IsLoggedIn)
}

func TestCLI_LoginFailureExitsNonZero(t *testing.T) {
	_, ts := startTestServer(t)
	cli := newCLIRunner(t, buildCLI(t), ts.URL)

	_, err := cli.run("Str0ng!Pass\n", "register", "111222333444555")
	require.NoError(t, err)
	_, err = cli.run("", "logout")
	require.NoError(t, err)

	_, err = cli.run("Wr0ng!Pass\n", "login", "111222333444555")
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, string(exitErr.Stderr), "Incorrect password")
}

func TestCLI_WrongAPIKeyFails(t *testing.T) {
	_, ts := startTestServer(t)
	cli := newCLIRunner(t, buildCLI(t), ts.URL)

	cmd := exec.Command(cli.binaryPath,
		"--config", filepath.Join(cli.dir, "config.yaml"),
		"--server", ts.URL,
		"--api-key", "wrong",
		"--mode", "remote",
		"--local-store", filepath.Join(cli.dir, "local.json"),
		"players", "list")
	err := cmd.Run()
	assert.Error(t, err)
}
