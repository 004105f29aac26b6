package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sublarr/subctl/internal/api"
	"github.com/sublarr/subctl/internal/blacklist"
	"github.com/sublarr/subctl/internal/breaker"
	"github.com/sublarr/subctl/internal/bus"
	"github.com/sublarr/subctl/internal/cache"
	"github.com/sublarr/subctl/internal/config"
	"github.com/sublarr/subctl/internal/history"
	"github.com/sublarr/subctl/internal/library"
	xglog "github.com/sublarr/subctl/internal/log"
	"github.com/sublarr/subctl/internal/persistence/sqlite"
	"github.com/sublarr/subctl/internal/providers"
	"github.com/sublarr/subctl/internal/scheduler"
	"github.com/sublarr/subctl/internal/subtitle"
	"github.com/sublarr/subctl/internal/version"
	"github.com/sublarr/subctl/internal/wanted"
	"github.com/sublarr/subctl/internal/webhook"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	listenAddr := flag.String("listen", envOr("SUBLARR_LISTEN_ADDR", ":8080"), "API listen address")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	cfg := config.Load()

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: "subctld", Version: version.Version})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("event", "datadir.create_failed").Msg("failed to create data directory")
	}

	db, err := sqlite.Open(filepath.Join(cfg.DataDir, "sublarr.sqlite"), sqlite.DefaultConfig())
	if err != nil {
		logger.Fatal().Err(err).Str("event", "db.open_failed").Msg("failed to open database")
	}
	defer db.Close()

	wantedStore, err := wanted.New(ctx, db)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize wanted store")
	}
	historyStore, err := history.New(ctx, db)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize history store")
	}
	blacklistStore, err := blacklist.New(ctx, db)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize blacklist store")
	}
	presetStore, err := providers.NewPresetStore(ctx, db)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize preset store")
	}

	eventBus := bus.NewMemoryBus()

	breakers := breaker.NewRegistry(cfg.CircuitBreakerFailures, time.Duration(cfg.CircuitBreakerCooldownSeconds)*time.Second)
	registry := providers.NewRegistry(breakers, nil)

	loaded, loadErrs := providers.LoadDir(cfg.PluginsDir, map[string]bool{})
	for _, le := range loadErrs {
		logger.Warn().Err(le.Err).Str("manifest", le.Path).Msg("failed to load provider manifest")
	}
	registry.ReplacePlugins(loaded)

	responseCache := cache.NewMemoryCache(10 * time.Minute)

	aggregator := &providers.Aggregator{
		Registry:      registry,
		Breakers:      breakers,
		Cache:         responseCache,
		Blacklist:     blacklistStore,
		Logger:        logger,
		SearchTimeout: time.Duration(cfg.ProviderSearchTimeoutSeconds) * time.Second,
		CacheTTL:      time.Duration(cfg.ResponseCacheTTLSeconds) * time.Second,
	}

	scan := &library.Scanner{
		Roots:  strings.Split(envOr("SUBLARR_MEDIA_ROOTS", cfg.DataDir), ","),
		Wants:  []library.Want{{Language: envOr("SUBLARR_DEFAULT_LANGUAGE", "en"), Kind: subtitle.KindFull}},
		Store:  wantedStore,
		Logger: logger,
	}

	sched := &scheduler.Scheduler{
		Wanted:     wantedStore,
		Aggregator: aggregator,
		History:    historyStore,
		Bus:        eventBus,
		Scanner:    scan,
		Logger:     logger,
		Upgrade: scheduler.UpgradePolicy{
			PreferASS:     cfg.UpgradePreferASS,
			MinScoreDelta: cfg.UpgradeMinScoreDelta,
			WindowDays:    cfg.UpgradeWindowDays,
		},
		BatchSize:     cfg.SchedulerBatchSize,
		Concurrency:   cfg.SchedulerConcurrency,
		RetryInterval: time.Duration(cfg.RetryIntervalSeconds) * time.Second,
		ScanInterval:  time.Duration(cfg.ScanIntervalSeconds) * time.Second,
	}
	go sched.Run(ctx)

	watcher, err := library.NewWatcher(scan, eventBus, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to start library watcher, continuing without it")
	} else {
		go watcher.Start(ctx)
		defer watcher.Close()
	}

	// Rescanner/Translator are left unset: talking to the upstream media
	// manager's API and running STT/translation are both out of scope here
	// (see internal/webhook and internal/translate package docs). The
	// pipeline degrades those stages to no-ops when unset.
	webhookPipeline := &webhook.Pipeline{
		Wanted:        wantedStore,
		Scheduler:     sched,
		Bus:           eventBus,
		Logger:        logger,
		DelayMinutes:  cfg.WebhookDelayMinutes,
		AutoScan:      cfg.WebhookAutoScan,
		AutoSearch:    cfg.WebhookAutoSearch,
		AutoTranslate: cfg.WebhookAutoTranslate,
	}

	srv := &api.Server{
		Settings:   cfg,
		Wanted:     wantedStore,
		Providers:  registry,
		Aggregator: aggregator,
		Blacklist:  blacklistStore,
		Presets:    presetStore,
		History:    historyStore,
		Scheduler:  sched,
		Scanner:    scan,
		Webhook:    webhookPipeline,
		Bus:        eventBus,
		Logger:     logger,
	}

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info().Str("event", "startup").Str("addr", *listenAddr).Str("version", version.Version).Msg("starting subctld")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Str("event", "server.failed").Msg("API server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server exiting")
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
