// Package bus is the in-process event bus (C9): a fixed catalog of named
// signals with a declared payload-key schema, published over topic-keyed
// channels. It is not durable — subscribers must be attached before events
// they care about are published, and a slow subscriber can cause drops
// under backpressure (recorded via internal/metrics, never blocking the
// publisher indefinitely past the publish context's deadline).
package bus

import "context"

// CatalogVersion increments when a payload schema changes in a
// backwards-incompatible way.
const CatalogVersion = 1

// Event names, matching the Python original's events/catalog.py exactly so
// downstream consumers of either implementation see the same vocabulary.
const (
	EventSubtitleDownloaded       = "subtitle_downloaded"
	EventTranslationComplete      = "translation_complete"
	EventTranslationFailed        = "translation_failed"
	EventProviderSearchComplete   = "provider_search_complete"
	EventProviderFailed           = "provider_failed"
	EventWantedScanComplete       = "wanted_scan_complete"
	EventWantedItemProcessed      = "wanted_item_processed"
	EventUpgradeComplete          = "upgrade_complete"
	EventBatchComplete            = "batch_complete"
	EventWebhookReceived          = "webhook_received"
	EventConfigUpdated            = "config_updated"
	EventWhisperComplete          = "whisper_complete"
	EventWhisperFailed            = "whisper_failed"
	EventHookExecuted             = "hook_executed"
	EventStandaloneScanComplete   = "standalone_scan_complete"
	EventStandaloneFileDetected   = "standalone_file_detected"
)

// CatalogEntry documents one event: its label, description, and the set of
// payload keys a Message.Payload map is expected to carry.
type CatalogEntry struct {
	Label       string
	Description string
	PayloadKeys []string
}

// Catalog is the single source of truth for which events exist and what
// their payloads contain. Payload keys intentionally omit secrets and
// absolute filesystem paths.
var Catalog = map[string]CatalogEntry{
	EventSubtitleDownloaded: {
		Label:       "Subtitle Downloaded",
		Description: "A subtitle file was successfully downloaded from a provider.",
		PayloadKeys: []string{"provider_name", "language", "format", "score", "series_title", "season", "episode", "movie_title"},
	},
	EventTranslationComplete: {
		Label:       "Translation Complete",
		Description: "A subtitle translation job finished successfully.",
		PayloadKeys: []string{"job_id", "source_language", "target_language", "backend_name", "duration_ms", "series_title", "movie_title"},
	},
	EventTranslationFailed: {
		Label:       "Translation Failed",
		Description: "A subtitle translation job failed.",
		PayloadKeys: []string{"job_id", "source_language", "target_language", "backend_name", "error", "series_title", "movie_title"},
	},
	EventProviderSearchComplete: {
		Label:       "Provider Search Complete",
		Description: "A provider search returned results.",
		PayloadKeys: []string{"provider_name", "result_count", "best_score", "series_title", "season", "episode", "movie_title"},
	},
	EventProviderFailed: {
		Label:       "Provider Failed",
		Description: "A provider search or download failed.",
		PayloadKeys: []string{"provider_name", "error", "error_type", "series_title", "movie_title"},
	},
	EventWantedScanComplete: {
		Label:       "Wanted Scan Complete",
		Description: "The periodic wanted scanner completed a full scan cycle.",
		PayloadKeys: []string{"total_items", "new_items", "removed_items", "duration_ms"},
	},
	EventWantedItemProcessed: {
		Label:       "Wanted Item Processed",
		Description: "A single wanted item was searched and processed.",
		PayloadKeys: []string{"item_id", "title", "season_episode", "status", "provider_name", "score"},
	},
	EventUpgradeComplete: {
		Label:       "Upgrade Complete",
		Description: "A subtitle was upgraded (e.g. SRT replaced with ASS).",
		PayloadKeys: []string{"title", "old_format", "new_format", "old_score", "new_score", "provider_name"},
	},
	EventBatchComplete: {
		Label:       "Batch Complete",
		Description: "A batch translation or search operation completed.",
		PayloadKeys: []string{"total", "succeeded", "failed", "skipped", "duration_ms"},
	},
	EventWebhookReceived: {
		Label:       "Webhook Received",
		Description: "An incoming webhook from Sonarr or Radarr was received.",
		PayloadKeys: []string{"source", "event_type", "title", "season", "episode"},
	},
	EventConfigUpdated: {
		Label:       "Config Updated",
		Description: "Application configuration was changed.",
		PayloadKeys: []string{"changed_keys", "source"},
	},
	EventWhisperComplete: {
		Label:       "Whisper Complete",
		Description: "A Whisper speech-to-text job finished successfully.",
		PayloadKeys: []string{"job_id", "backend_name", "detected_language", "segment_count", "duration_seconds", "processing_time_ms"},
	},
	EventWhisperFailed: {
		Label:       "Whisper Failed",
		Description: "A Whisper speech-to-text job failed.",
		PayloadKeys: []string{"job_id", "backend_name", "error"},
	},
	EventHookExecuted: {
		Label:       "Hook Executed",
		Description: "A hook or webhook was executed (meta-event for monitoring).",
		PayloadKeys: []string{"hook_id", "webhook_id", "hook_type", "event_name", "success", "duration_ms"},
	},
	EventStandaloneScanComplete: {
		Label:       "Standalone Scan Complete",
		Description: "A standalone folder scan completed.",
		PayloadKeys: []string{"folders_scanned", "files_found", "wanted_added", "duration_seconds"},
	},
	EventStandaloneFileDetected: {
		Label:       "Standalone File Detected",
		Description: "A new media file was detected in a watched folder.",
		PayloadKeys: []string{"path", "type", "wanted"},
	},
}

// Message is one event delivered on a topic. Topic is conventionally the
// event name (one of the Event* constants); Payload carries the keys
// documented for that event in Catalog.
type Message struct {
	Topic   string
	Payload map[string]any
}

// Bus is the publish/subscribe contract used throughout the engine.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}

// Subscriber receives messages for the topic it was created with.
type Subscriber interface {
	C() <-chan Message
	Close() error
}
