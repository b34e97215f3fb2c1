// Package api exposes the hosted store over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/redskie/bamaco/internal/api/handler"
	apimw "github.com/redskie/bamaco/internal/api/middleware"
	"github.com/redskie/bamaco/internal/dependencies/clock"
	"github.com/redskie/bamaco/internal/events"
	"github.com/redskie/bamaco/internal/middleware"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger  *slog.Logger
	Store   storage.Storage
	Changes *events.Broker[model.ChangeEvent]
	Clock   clock.Clock
	// APIKey guards every route but health and metrics. Empty disables the check.
	APIKey string
	// Registry receives the HTTP metrics and is served on /metrics. Nil
	// disables both.
	Registry *prometheus.Registry
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handler.NotFound)

	h := handler.New(cfg.Store, cfg.Changes, cfg.Clock, cfg.Logger)

	r.Use(middleware.RequestID)
	r.Use(apimw.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	if cfg.Registry != nil {
		r.Use(apimw.NewMetrics(cfg.Registry).Middleware)
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check endpoint (no key)
	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	store := api.NewRoute().Subrouter()
	store.Use(apimw.APIKey(cfg.APIKey))

	store.HandleFunc("/identities", h.ListIdentities).Methods(http.MethodGet)
	store.HandleFunc("/identities", h.CreateIdentity).Methods(http.MethodPost)
	store.HandleFunc("/identities/{friendCode}", h.GetIdentity).Methods(http.MethodGet)
	store.HandleFunc("/identities/{friendCode}", h.HeadIdentity).Methods(http.MethodHead)
	store.HandleFunc("/identities/{friendCode}", h.PatchIdentity).Methods(http.MethodPatch)
	store.HandleFunc("/identities/{friendCode}", h.DeleteIdentity).Methods(http.MethodDelete)

	store.HandleFunc("/guilds", h.ListGuilds).Methods(http.MethodGet)
	store.HandleFunc("/guilds", h.CreateGuild).Methods(http.MethodPost)
	store.HandleFunc("/guilds/{id}", h.GetGuild).Methods(http.MethodGet)
	store.HandleFunc("/guilds/{id}", h.PutGuild).Methods(http.MethodPut)
	store.HandleFunc("/guilds/{id}", h.DeleteGuild).Methods(http.MethodDelete)

	store.HandleFunc("/achievements", h.ListAchievements).Methods(http.MethodGet)
	store.HandleFunc("/achievements/{id}", h.GetAchievement).Methods(http.MethodGet)
	store.HandleFunc("/achievements/{id}", h.PutAchievement).Methods(http.MethodPut)
	store.HandleFunc("/achievements/{id}", h.DeleteAchievement).Methods(http.MethodDelete)

	store.HandleFunc("/articles", h.ListArticles).Methods(http.MethodGet)
	store.HandleFunc("/articles/{id}", h.GetArticle).Methods(http.MethodGet)
	store.HandleFunc("/articles/{id}", h.PutArticle).Methods(http.MethodPut)
	store.HandleFunc("/articles/{id}", h.DeleteArticle).Methods(http.MethodDelete)

	store.HandleFunc("/queue/requests", h.ListQueueRequests).Methods(http.MethodGet)
	store.HandleFunc("/queue/requests/{id}", h.GetQueueRequest).Methods(http.MethodGet)
	store.HandleFunc("/queue/requests/{id}", h.PutQueueRequest).Methods(http.MethodPut)
	store.HandleFunc("/queue/entries", h.ListQueueEntries).Methods(http.MethodGet)
	store.HandleFunc("/queue/entries", h.AppendQueueEntry).Methods(http.MethodPost)

	store.HandleFunc("/notifications", h.ListNotifications).Methods(http.MethodGet)
	store.HandleFunc("/notifications/{id}", h.GetNotification).Methods(http.MethodGet)
	store.HandleFunc("/notifications/{id}", h.PutNotification).Methods(http.MethodPut)

	store.HandleFunc("/reports", h.ListReports).Methods(http.MethodGet)
	store.HandleFunc("/reports/{id}", h.PutReport).Methods(http.MethodPut)

	store.HandleFunc("/events", h.Events).Methods(http.MethodGet)

	return r
}
