package config

import "time"

// ProviderOverride holds per-provider tunables that can't be expressed as a
// single global env var (§9: "ResponseCacheTTLSeconds (global + per-provider
// overrides)"). Keyed by provider name in Settings.ProviderOverrides.
type ProviderOverride struct {
	ResponseCacheTTL time.Duration
	ScoreBias        int
}

// Settings is the engine's full runtime configuration (§9), loaded from
// SUBLARR_-prefixed environment variables with database overrides (settings
// the operator changed at runtime, persisted in sqlite) applied on top.
type Settings struct {
	// Webhook pipeline (§4.8)
	WebhookDelayMinutes  int
	WebhookAutoScan      bool
	WebhookAutoSearch    bool
	WebhookAutoTranslate bool

	// Scheduler (§4.6)
	ScanIntervalSeconds        int
	RetryIntervalSeconds       int
	RetryBackoffBaseSeconds    int
	RetryBackoffCapSeconds     int
	SchedulerConcurrency       int
	SchedulerBatchSize         int

	// Providers (§4.4)
	ProviderSearchTimeoutSeconds   int
	ProviderDownloadTimeoutSeconds int
	CircuitBreakerFailures         int
	CircuitBreakerCooldownSeconds  int
	ResponseCacheTTLSeconds        int
	PluginsDir                     string

	// Upgrade decision engine (§4.7)
	UpgradeMinScoreDelta int
	UpgradeWindowDays    int
	UpgradePreferASS     bool

	// Per-provider overrides of the global ResponseCacheTTLSeconds/score
	// defaults above. Load leaves this map empty and Merge does not set it.
	ProviderOverrides map[string]ProviderOverride

	DataDir  string
	LogLevel string

	// APIToken gates every request through internal/api's auth middleware;
	// empty means anonymous access unless AuthAnonymous is explicitly set.
	APIToken      string
	AuthAnonymous bool
}

// Load reads Settings from the process environment. Database overrides (if
// any) should be applied afterward via Merge.
func Load() Settings {
	return Settings{
		WebhookDelayMinutes:  envInt("SUBLARR_WEBHOOK_DELAY_MINUTES", 5),
		WebhookAutoScan:      envBool("SUBLARR_WEBHOOK_AUTO_SCAN", true),
		WebhookAutoSearch:    envBool("SUBLARR_WEBHOOK_AUTO_SEARCH", true),
		WebhookAutoTranslate: envBool("SUBLARR_WEBHOOK_AUTO_TRANSLATE", false),

		ScanIntervalSeconds:     envInt("SUBLARR_SCAN_INTERVAL_SECONDS", 4*3600),
		RetryIntervalSeconds:    envInt("SUBLARR_RETRY_INTERVAL_SECONDS", 10),
		RetryBackoffBaseSeconds: envInt("SUBLARR_RETRY_BACKOFF_BASE_SECONDS", 30),
		RetryBackoffCapSeconds:  envInt("SUBLARR_RETRY_BACKOFF_CAP_SECONDS", 3600),
		SchedulerConcurrency:    envInt("SUBLARR_SCHEDULER_CONCURRENCY", 4),
		SchedulerBatchSize:      envInt("SUBLARR_SCHEDULER_BATCH_SIZE", 20),

		ProviderSearchTimeoutSeconds:   envInt("SUBLARR_PROVIDER_SEARCH_TIMEOUT_SECONDS", 15),
		ProviderDownloadTimeoutSeconds: envInt("SUBLARR_PROVIDER_DOWNLOAD_TIMEOUT_SECONDS", 30),
		CircuitBreakerFailures:         envInt("SUBLARR_CIRCUIT_BREAKER_FAILURES", 3),
		CircuitBreakerCooldownSeconds:  envInt("SUBLARR_CIRCUIT_BREAKER_COOLDOWN_SECONDS", 60),
		ResponseCacheTTLSeconds:        envInt("SUBLARR_RESPONSE_CACHE_TTL_SECONDS", 3600),
		PluginsDir:                     envString("SUBLARR_PLUGINS_DIR", "/etc/sublarr/plugins"),

		UpgradeMinScoreDelta: envInt("SUBLARR_UPGRADE_MIN_SCORE_DELTA", 10),
		UpgradeWindowDays:    envInt("SUBLARR_UPGRADE_WINDOW_DAYS", 30),
		UpgradePreferASS:     envBool("SUBLARR_UPGRADE_PREFER_ASS", false),

		ProviderOverrides: map[string]ProviderOverride{},

		DataDir:  envString("SUBLARR_DATA", "/var/lib/sublarr"),
		LogLevel: envString("SUBLARR_LOG_LEVEL", "info"),

		APIToken:      envString("SUBLARR_API_TOKEN", ""),
		AuthAnonymous: envBool("SUBLARR_AUTH_ANONYMOUS", false),
	}
}

// Merge applies database-persisted overrides on top of s (§9: "database
// overrides applied on top"), mirroring the teacher's merge_env/merge_file
// layering where each later layer wins only for the fields it sets.
func (s Settings) Merge(overrides map[string]string) Settings {
	out := s
	for k, v := range overrides {
		applyOverride(&out, k, v)
	}
	return out
}

func applyOverride(s *Settings, key, value string) {
	switch key {
	case "webhook_delay_minutes":
		s.WebhookDelayMinutes = atoiOr(value, s.WebhookDelayMinutes)
	case "webhook_auto_scan":
		s.WebhookAutoScan = atobOr(value, s.WebhookAutoScan)
	case "webhook_auto_search":
		s.WebhookAutoSearch = atobOr(value, s.WebhookAutoSearch)
	case "webhook_auto_translate":
		s.WebhookAutoTranslate = atobOr(value, s.WebhookAutoTranslate)
	case "scan_interval_seconds":
		s.ScanIntervalSeconds = atoiOr(value, s.ScanIntervalSeconds)
	case "retry_interval_seconds":
		s.RetryIntervalSeconds = atoiOr(value, s.RetryIntervalSeconds)
	case "retry_backoff_base_seconds":
		s.RetryBackoffBaseSeconds = atoiOr(value, s.RetryBackoffBaseSeconds)
	case "retry_backoff_cap_seconds":
		s.RetryBackoffCapSeconds = atoiOr(value, s.RetryBackoffCapSeconds)
	case "response_cache_ttl_seconds":
		s.ResponseCacheTTLSeconds = atoiOr(value, s.ResponseCacheTTLSeconds)
	case "upgrade_min_score_delta":
		s.UpgradeMinScoreDelta = atoiOr(value, s.UpgradeMinScoreDelta)
	case "upgrade_window_days":
		s.UpgradeWindowDays = atoiOr(value, s.UpgradeWindowDays)
	case "upgrade_prefer_ass":
		s.UpgradePreferASS = atobOr(value, s.UpgradePreferASS)
	}
}
