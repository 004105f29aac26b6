// Package webhook implements the multi-stage ingestion pipeline (C8, §4.8)
// that reacts to an upstream media manager's "download complete" webhook:
// delay, re-scan, search, and (optionally) translate, each independently
// toggleable. Handle publishes one webhook_received event per call; the
// stages themselves publish no progress events.
package webhook

// Event is one incoming webhook call, normalized from either Sonarr's or
// Radarr's payload shape.
type Event struct {
	Source    string // "sonarr" | "radarr"
	EventType string // e.g. "Download", "EpisodeFileDelete", "MovieFileDelete"
	Path      string // affected media file path
	MediaKind string // "episode" | "movie", passed to wanted.Store.Upsert
	Language  string
	SubtitleKind string
	Title     string
	Season    int
	Episode   int
}

// isDelete reports whether ev represents an upstream deletion, which is
// handled eagerly rather than through the delay/scan/search/translate
// pipeline (§4.8: "On delete events, wanted items ... are removed eagerly").
func isDelete(eventType string) bool {
	switch eventType {
	case "EpisodeFileDelete", "MovieFileDelete":
		return true
	default:
		return false
	}
}
