// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldJobID         = "job_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Wanted-item lifecycle fields
	FieldItemID       = "item_id"
	FieldReason       = "reason"
	FieldProviderName = "provider_name"

	// Media / subtitle fields
	FieldMediaPath    = "path"
	FieldFormat       = "format"
	FieldSubtitleKind = "subtitle_kind"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
)
