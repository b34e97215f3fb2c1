package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redskie/bamaco/internal/api"
	"github.com/redskie/bamaco/internal/api/apierr"
	"github.com/redskie/bamaco/internal/dependencies/mocks"
	"github.com/redskie/bamaco/internal/events"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/storage/memory"
	"github.com/redskie/bamaco/internal/storage/storagetest"
	"github.com/redskie/bamaco/internal/testutil"
)

const testKey = "test-api-key"

// testServer creates a router over a fresh memory store
type testServer struct {
	handler http.Handler
	storage *memory.Storage
	changes *events.Broker[model.ChangeEvent]
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := testutil.NopLogger()
	store := memory.New()
	changes := events.NewBroker[model.ChangeEvent]("changes", 16, logger)
	t.Cleanup(changes.Close)

	router := api.NewRouter(api.RouterConfig{
		Logger:   logger,
		Store:    store,
		Changes:  changes,
		Clock:    mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		APIKey:   testKey,
		Registry: prometheus.NewRegistry(),
	})

	return &testServer{
		handler: router,
		storage: store,
		changes: changes,
	}
}

func (ts *testServer) request(method, path string, body any, key string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestHealthCheckNeedsNoKey(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestAPIKeyRequired(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/identities", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeUnauthorized, errorCode(t, rr))

	rr = ts.request(http.MethodGet, "/api/v1/identities", nil, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/identities", nil, testKey)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestBearerKeyAccepted(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/guilds", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestIdentityLifecycle(t *testing.T) {
	ts := newTestServer(t)
	identity := storagetest.Identity("111222333444555")

	rr := ts.request(http.MethodPost, "/api/v1/identities", identity, testKey)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/identities", identity, testKey)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeIdentityExists, errorCode(t, rr))

	rr = ts.request(http.MethodGet, "/api/v1/identities/111-222-333-444-555", nil, testKey)
	require.Equal(t, http.StatusOK, rr.Code)
	var got model.Identity
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, identity.PasswordHash, got.PasswordHash)
	assert.Equal(t, identity.EditKey, got.EditKey)

	rr = ts.request(http.MethodHead, "/api/v1/identities/111222333444555", nil, testKey)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodDelete, "/api/v1/identities/111222333444555", nil, testKey)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodHead, "/api/v1/identities/111222333444555", nil, testKey)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/identities/111222333444555", nil, testKey)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeIdentityNotFound, errorCode(t, rr))
}

func TestCreateIdentityRejectsShortFriendCode(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/identities", storagetest.Identity("12345"), testKey)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeValidationFailed, errorCode(t, rr))
}

func TestCreateIdentityRejectsBadBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/identities", strings.NewReader("{not json"))
	req.Header.Set("X-API-Key", testKey)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))
}

func TestPatchIdentityWritesOnlyGivenFields(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.storage.CreateIdentity(t.Context(), storagetest.Identity("111222333444555")))

	rr := ts.request(http.MethodPatch, "/api/v1/identities/111222333444555",
		map[string]string{"motto": "full combo or bust"}, testKey)
	require.Equal(t, http.StatusOK, rr.Code)

	got, err := ts.storage.GetIdentity(t.Context(), "111222333444555")
	require.NoError(t, err)
	assert.Equal(t, "full combo or bust", got.Motto)
	assert.Equal(t, "alice", got.IGN)
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz012345", got.EditKey)
}

func TestPatchIdentityIgnoresEditKey(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.storage.CreateIdentity(t.Context(), storagetest.Identity("111222333444555")))

	rr := ts.request(http.MethodPatch, "/api/v1/identities/111222333444555",
		map[string]string{"editKey": "stolen", "friendCode": "999999999999999"}, testKey)
	require.Equal(t, http.StatusOK, rr.Code)

	got, err := ts.storage.GetIdentity(t.Context(), "111222333444555")
	require.NoError(t, err)
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz012345", got.EditKey)
	assert.Equal(t, model.FriendCode("111222333444555"), got.FriendCode)
}

func TestIdentityCannotBeReplacedWholesale(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.storage.CreateIdentity(t.Context(), storagetest.Identity("111222333444555")))

	rr := ts.request(http.MethodPut, "/api/v1/identities/111222333444555",
		map[string]string{"editKey": "attacker", "ign": "mallory"}, testKey)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	got, err := ts.storage.GetIdentity(t.Context(), "111222333444555")
	require.NoError(t, err)
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz012345", got.EditKey)
	assert.Equal(t, "alice", got.IGN)
}

func TestCreateGuildNeverOverwrites(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/guilds",
		model.Guild{ID: "g1", Name: "Beat Masters", Leader: "111222333444555"}, testKey)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/guilds",
		model.Guild{ID: "g1", Name: "Hijacked", Leader: "555444333222111"}, testKey)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeGuildExists, errorCode(t, rr))

	got, err := ts.storage.GetGuild(t.Context(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "Beat Masters", got.Name)
	assert.Equal(t, model.FriendCode("111222333444555"), got.Leader)
	assert.NotNil(t, got.Members)

	rr = ts.request(http.MethodPost, "/api/v1/guilds", model.Guild{Name: "No ID"}, testKey)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPutGuildUsesPathID(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPut, "/api/v1/guilds/g1",
		model.Guild{ID: "other", Name: "Beat Masters"}, testKey)
	require.Equal(t, http.StatusOK, rr.Code)

	got, err := ts.storage.GetGuild(t.Context(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "Beat Masters", got.Name)
	assert.Empty(t, got.Members)

	_, err = ts.storage.GetGuild(t.Context(), "other")
	assert.ErrorIs(t, err, model.ErrGuildNotFound)
}

func TestQueueEntriesKeepOrder(t *testing.T) {
	ts := newTestServer(t)

	for _, fc := range []string{"222222222222222", "111111111111111"} {
		rr := ts.request(http.MethodPost, "/api/v1/queue/entries",
			model.QueueEntry{Name: fc, FriendCode: model.FriendCode(fc)}, testKey)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := ts.request(http.MethodGet, "/api/v1/queue/entries", nil, testKey)
	require.Equal(t, http.StatusOK, rr.Code)
	var entries []model.QueueEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, model.FriendCode("222222222222222"), entries[0].FriendCode)
}

func TestWritesArePublished(t *testing.T) {
	ts := newTestServer(t)
	sub, unsubscribe := ts.changes.Subscribe("test")
	defer unsubscribe()

	rr := ts.request(http.MethodPut, "/api/v1/articles/art_1", model.Article{Title: "Timing"}, testKey)
	require.Equal(t, http.StatusOK, rr.Code)

	select {
	case ev := <-sub.C:
		assert.Equal(t, model.CollectionArticles, ev.Collection)
		assert.Equal(t, "art_1", ev.ID)
		assert.Equal(t, model.OpUpdated, ev.Op)
	case <-time.After(time.Second):
		t.Fatal("no change event")
	}
}

func TestFailedWriteIsNotPublished(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.storage.CreateIdentity(t.Context(), storagetest.Identity("111222333444555")))
	sub, unsubscribe := ts.changes.Subscribe("test")
	defer unsubscribe()

	rr := ts.request(http.MethodPost, "/api/v1/identities", storagetest.Identity("111222333444555"), testKey)
	require.Equal(t, http.StatusConflict, rr.Code)

	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected change event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnknownRouteIsJSON(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/nope", nil, testKey)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeNotFound, errorCode(t, rr))
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Len(t, rr.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "trace-me")
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	assert.Equal(t, "trace-me", rr.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.request(http.MethodGet, "/api/v1/health", nil, "")
	rr := ts.request(http.MethodGet, "/metrics", nil, "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `bamaco_http_requests_total{method="GET",route="/api/v1/health",status="200"} 1`)
}

func TestChangeFeedStreamsFilteredEvents(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events?collection=guilds", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", testKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && event != "":
				return event, data
			}
		}
	}

	event, _ := readEvent()
	require.Equal(t, "connected", event)

	rr := ts.request(http.MethodPost, "/api/v1/identities", storagetest.Identity("111222333444555"), testKey)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = ts.request(http.MethodPut, "/api/v1/guilds/g1", model.Guild{Name: "Beat Masters"}, testKey)
	require.Equal(t, http.StatusOK, rr.Code)

	event, data := readEvent()
	assert.Equal(t, "change", event)
	var ev model.ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, model.CollectionGuilds, ev.Collection)
	assert.Equal(t, "g1", ev.ID)
}
