// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for the subtitle orchestration engine.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Provider attributes
	ProviderNameKey     = "provider.name"
	ProviderLatencyKey  = "provider.latency_ms"
	ProviderResultCount = "provider.result_count"

	// Wanted-item attributes
	WantedItemIDKey = "wanted.item_id"
	WantedStatusKey = "wanted.status"

	// Webhook pipeline attributes
	WebhookStageKey = "webhook.stage"
	WebhookPathKey  = "webhook.path_hash"

	// Job attributes
	JobTypeKey     = "job.type"
	JobStatusKey   = "job.status"
	JobDurationKey = "job.duration_ms"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// ProviderAttributes creates provider-call span attributes.
func ProviderAttributes(name string, latencyMS int64, resultCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ProviderNameKey, name),
		attribute.Int64(ProviderLatencyKey, latencyMS),
		attribute.Int(ProviderResultCount, resultCount),
	}
}

// WantedAttributes creates wanted-item span attributes.
func WantedAttributes(itemID, status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(WantedItemIDKey, itemID),
		attribute.String(WantedStatusKey, status),
	}
}

// WebhookAttributes creates webhook-stage span attributes.
func WebhookAttributes(stage, pathHash string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(WebhookStageKey, stage),
		attribute.String(WebhookPathKey, pathHash),
	}
}

// JobAttributes creates job-related span attributes.
func JobAttributes(jobType, status string, durationMS int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobTypeKey, jobType),
		attribute.String(JobStatusKey, status),
		attribute.Int64(JobDurationKey, durationMS),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
