package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/storage"
	"github.com/redskie/bamaco/internal/storage/storagetest"
)

func openTemp(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bamaco.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIdentityStore(t *testing.T) {
	is := &storagetest.IdentitySuite{}
	is.New = func() storage.IdentityStore { return openTemp(is.T()) }
	suite.Run(t, is)
}

func TestStorage(t *testing.T) {
	ss := &storagetest.Suite{}
	ss.New = func() storage.Storage { return openTemp(ss.T()) }
	suite.Run(t, ss)
}

func TestReopenKeepsSharedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bamaco.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.CreateGuild(t.Context(), &model.Guild{ID: "g1", Name: "Beat Masters", Members: []string{}}))
	require.NoError(t, s.AppendQueueEntry(t.Context(), &model.QueueEntry{Name: "alice"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	guild, err := s.GetGuild(t.Context(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "Beat Masters", guild.Name)

	entries, err := s.ListQueueEntries(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Name)
}

func TestReopenKeepsIdentities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bamaco.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.CreateIdentity(t.Context(), storagetest.Identity("111222333444555")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.GetIdentity(t.Context(), "111222333444555")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.IGN)
}

func TestPing(t *testing.T) {
	s := openTemp(t)
	assert.NoError(t, s.Ping(t.Context()))
}
