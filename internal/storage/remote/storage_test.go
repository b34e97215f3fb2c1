package remote

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/redskie/bamaco/internal/api"
	"github.com/redskie/bamaco/internal/dependencies/clock"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/storage"
	"github.com/redskie/bamaco/internal/storage/memory"
	"github.com/redskie/bamaco/internal/storage/storagetest"
	"github.com/redskie/bamaco/internal/testutil"
)

const testKey = "remote-test-key"

// newServerStorage starts an API server over a fresh memory store and
// returns a remote storage pointed at it
func newServerStorage(t *testing.T) (*Storage, *memory.Storage) {
	t.Helper()
	backing := memory.New()
	srv := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger: testutil.NopLogger(),
		Store:  backing,
		Clock:  clock.New(),
		APIKey: testKey,
	}))
	t.Cleanup(srv.Close)

	return New(Config{BaseURL: srv.URL, APIKey: testKey, Retries: 2, RetryBase: time.Millisecond}), backing
}

func TestIdentityStore(t *testing.T) {
	is := &storagetest.IdentitySuite{}
	is.New = func() storage.IdentityStore {
		s, _ := newServerStorage(is.T())
		return s
	}
	suite.Run(t, is)
}

func TestStorage(t *testing.T) {
	ss := &storagetest.Suite{}
	ss.New = func() storage.Storage {
		s, _ := newServerStorage(ss.T())
		return s
	}
	suite.Run(t, ss)
}

func TestExistsUsesHead(t *testing.T) {
	s, backing := newServerStorage(t)

	ok, err := s.IdentityExists(t.Context(), "111222333444555")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backing.CreateIdentity(t.Context(), storagetest.Identity("111222333444555")))
	ok, err = s.IdentityExists(t.Context(), "111222333444555")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWrongKeyIsStatusError(t *testing.T) {
	s, _ := newServerStorage(t)
	s.client.apiKey = "wrong"

	_, err := s.GetIdentity(t.Context(), "111222333444555")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestReadsRetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"g1","name":"Beat Masters","members":[]}]`))
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Retries: 3, RetryBase: time.Millisecond})
	list, err := s.ListGuilds(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Beat Masters", list[0].Name)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReadsGiveUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Retries: 2, RetryBase: time.Millisecond})
	_, err := s.GetGuild(t.Context(), "g1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWritesAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Retries: 3, RetryBase: time.Millisecond})
	err := s.CreateIdentity(t.Context(), storagetest.Identity("111222333444555"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"IDENTITY_NOT_FOUND","message":"Identity not found"}}`))
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Retries: 3, RetryBase: time.Millisecond})
	_, err := s.GetIdentity(t.Context(), "111222333444555")
	assert.ErrorIs(t, err, model.ErrIdentityNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUnreachableServerIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := New(Config{BaseURL: url, Retries: 1, RetryBase: time.Millisecond})
	assert.ErrorIs(t, s.Ping(t.Context()), ErrUnavailable)
}

func TestHealthReportsUnavailableStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL})
	assert.ErrorIs(t, s.Ping(t.Context()), ErrUnavailable)
}
