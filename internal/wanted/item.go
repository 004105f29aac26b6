// Package wanted implements the durable wanted-item state machine (C5): one
// row per (media file path, target language, subtitle kind) triple, driving
// the scheduler's retry/processing loop.
package wanted

import (
	"time"

	"github.com/sublarr/subctl/internal/media"
	"github.com/sublarr/subctl/internal/subtitle"
)

// Status is a wanted item's lifecycle state.
type Status string

const (
	StatusWanted      Status = "wanted"
	StatusSearching   Status = "searching"
	StatusFailed      Status = "failed"
	StatusDone        Status = "done"
	StatusBlacklisted Status = "blacklisted"
)

// LinkedIDs carries the upstream media manager's identifiers for a wanted
// item, when known (series/episode/movie ids from Sonarr/Radarr-style
// managers, plus a display title).
type LinkedIDs struct {
	SeriesID  string
	EpisodeID string
	MovieID   string
	Title     string
}

// Item is the wanted-item tuple (W, §3).
type Item struct {
	ID               int64
	Kind             media.Kind
	MediaFilePath    string
	TargetLanguage   string
	SubtitleKind     subtitle.Kind
	Status           Status
	SearchCount      int
	LastSearchAt     *time.Time
	RetryAfter       *time.Time
	CurrentScore     int
	CurrentFormat    string
	UpgradeCandidate bool
	Linked           LinkedIDs
}
