// Package api implements the §6 REST surface: wanted-item listing/refresh,
// provider registry introspection, blacklist CRUD, download history,
// webhook ingestion, and plugin reload, wired onto chi with the teacher's
// canonical middleware stack (recovery, request ids, CORS, security headers,
// metrics, request logging, rate limiting; tracing is left off).
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sublarr/subctl/internal/api/middleware"
	"github.com/sublarr/subctl/internal/blacklist"
	"github.com/sublarr/subctl/internal/bus"
	"github.com/sublarr/subctl/internal/config"
	"github.com/sublarr/subctl/internal/history"
	"github.com/sublarr/subctl/internal/library"
	"github.com/sublarr/subctl/internal/providers"
	"github.com/sublarr/subctl/internal/scheduler"
	"github.com/sublarr/subctl/internal/wanted"
	"github.com/sublarr/subctl/internal/webhook"
)

// Server holds every dependency the §6 route handlers need. It has no
// mutable state of its own; Settings is set at construction and only read
// by the handlers.
type Server struct {
	Settings   config.Settings
	Wanted     *wanted.Store
	Providers  *providers.Registry
	Aggregator *providers.Aggregator
	Blacklist  *blacklist.Store
	Presets    *providers.PresetStore
	History    *history.Store
	Scheduler  *scheduler.Scheduler
	Scanner    *library.Scanner
	Webhook    *webhook.Pipeline
	Bus        bus.Bus
	Logger     zerolog.Logger
}

// Router builds the full chi.Mux for the §6 API, mounted under /api/v1.
func (s *Server) Router() *chi.Mux {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
		EnableRateLimit:       true,
		RateLimitEnabled:      true,
		RateLimitGlobalRPS:    100,
		RateLimitBurst:        200,
	})

	r.Get("/healthz", s.Healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/wanted", func(r chi.Router) {
			r.Post("/refresh", s.handleWantedRefresh)
			r.Get("/", s.handleWantedList)
			r.Post("/{id}/process", s.handleWantedProcess)
		})

		r.Route("/providers", func(r chi.Router) {
			r.Get("/", s.handleProvidersList)
			r.Post("/{name}/reset-breaker", s.handleProviderResetBreaker)
		})

		r.Post("/plugins/reload", s.handlePluginsReload)

		r.Post("/webhook/sonarr", s.handleWebhookSonarr)
		r.Post("/webhook/radarr", s.handleWebhookRadarr)

		r.Route("/blacklist", func(r chi.Router) {
			r.Get("/", s.handleBlacklistList)
			r.Post("/", s.handleBlacklistAdd)
			r.Delete("/{id}", s.handleBlacklistRemove)
		})

		r.Get("/history", s.handleHistoryList)

		r.Route("/presets", func(r chi.Router) {
			r.Get("/", s.handlePresetsList)
			r.Post("/", s.handlePresetsCreate)
		})

		r.Get("/settings", s.handleSettingsRead)
	})

	return r
}

// Healthz is intentionally outside /api/v1 and unauthenticated, matching
// the teacher's own convention for liveness probes.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
