package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sublarr/subctl/internal/blacklist"
	"github.com/sublarr/subctl/internal/breaker"
	"github.com/sublarr/subctl/internal/bus"
	"github.com/sublarr/subctl/internal/cache"
	"github.com/sublarr/subctl/internal/config"
	"github.com/sublarr/subctl/internal/history"
	"github.com/sublarr/subctl/internal/persistence/sqlite"
	"github.com/sublarr/subctl/internal/providers"
	"github.com/sublarr/subctl/internal/wanted"
	"github.com/sublarr/subctl/internal/webhook"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.sqlite"), sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	wantedStore, err := wanted.New(context.Background(), db)
	require.NoError(t, err)
	historyStore, err := history.New(context.Background(), db)
	require.NoError(t, err)
	blacklistStore, err := blacklist.New(context.Background(), db)
	require.NoError(t, err)
	presetStore, err := providers.NewPresetStore(context.Background(), db)
	require.NoError(t, err)

	breakers := breaker.NewRegistry(3, time.Minute)
	registry := providers.NewRegistry(breakers, nil)
	agg := &providers.Aggregator{Registry: registry, Breakers: breakers, Cache: cache.NewMemoryCache(0)}

	pipeline := &webhook.Pipeline{Wanted: wantedStore, Bus: bus.NewMemoryBus(), Logger: zerolog.Nop(), AutoSearch: false}

	return &Server{
		Settings:   config.Settings{APIToken: "test-token"},
		Wanted:     wantedStore,
		Providers:  registry,
		Aggregator: agg,
		Blacklist:  blacklistStore,
		Presets:    presetStore,
		History:    historyStore,
		Webhook:    pipeline,
		Bus:        bus.NewMemoryBus(),
		Logger:     zerolog.Nop(),
	}
}

func authedRequest(method, path string, body []byte) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	r.Header.Set("Authorization", "Bearer test-token")
	return r
}

func TestUnauthenticatedRequestIsRejected(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/wanted", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWantedListReturnsUpsertedItems(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	_, _, err := s.Wanted.Upsert(ctx, "movie", "/movies/arrival.mkv", "en", "full", wanted.LinkedIDs{Title: "Arrival"})
	require.NoError(t, err)

	router := s.Router()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/wanted", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Items []wanted.Item `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	require.Equal(t, "Arrival", body.Items[0].Linked.Title)
}

func TestBlacklistAddAndList(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	payload, err := json.Marshal(blacklist.Entry{ProviderName: "osub", ExternalID: "ext-1", Language: "en"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/blacklist", payload))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/blacklist", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "osub")
}

func TestWebhookSonarrAcceptsAndEnqueues(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	payload := []byte(`{"eventType":"Download","series":{"title":"Show"},"episodeFile":{"path":"/tv/show.s01e01.mkv"}}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/webhook/sonarr", payload))
	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestSettingsReadRedactsAPIToken(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "test-token")
	require.Contains(t, w.Body.String(), "***")
}
