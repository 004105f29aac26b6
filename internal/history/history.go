// Package history records subtitle download history (D) and upgrade
// history (U, §3): append-only audit trails written once per successful
// install or upgrade.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS download_records (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	provider_name  TEXT NOT NULL,
	external_id    TEXT NOT NULL,
	language       TEXT NOT NULL,
	format         TEXT NOT NULL,
	installed_path TEXT NOT NULL,
	score          INTEGER NOT NULL,
	subtitle_kind  TEXT NOT NULL,
	source         TEXT NOT NULL,
	downloaded_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_download_records_downloaded_at ON download_records (downloaded_at);

CREATE TABLE IF NOT EXISTS upgrade_history (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	media_file_path TEXT NOT NULL,
	old_format      TEXT NOT NULL,
	old_score       INTEGER NOT NULL,
	new_format      TEXT NOT NULL,
	new_score       INTEGER NOT NULL,
	provider_name   TEXT NOT NULL,
	reason          TEXT NOT NULL,
	upgraded_at     TEXT NOT NULL
);
`

// Source distinguishes a download record's origin.
type Source string

const (
	SourceProvider Source = "provider"
	SourceLocalSTT Source = "local_stt"
)

// Download is one download record (D, §3).
type Download struct {
	ID            int64
	ProviderName  string
	ExternalID    string
	Language      string
	Format        string
	InstalledPath string
	Score         int
	SubtitleKind  string
	Source        Source
	DownloadedAt  time.Time
}

// Upgrade is one upgrade history row (U, §3).
type Upgrade struct {
	ID            int64
	MediaFilePath string
	OldFormat     string
	OldScore      int
	NewFormat     string
	NewScore      int
	ProviderName  string
	Reason        string
	UpgradedAt    time.Time
}

// Store appends download and upgrade history.
type Store struct {
	db *sql.DB
}

// New opens a Store against db, applying the schema.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// AppendDownload records a successful install (§4.4.5 step 4).
func (s *Store) AppendDownload(ctx context.Context, d Download) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO download_records (provider_name, external_id, language, format, installed_path, score, subtitle_kind, source, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ProviderName, d.ExternalID, d.Language, d.Format, d.InstalledPath, d.Score, d.SubtitleKind, d.Source, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("history: append download: %w", err)
	}
	return res.LastInsertId()
}

// AppendUpgrade records a completed upgrade (§4.7: "a successful upgrade
// appends a row to upgrade_history").
func (s *Store) AppendUpgrade(ctx context.Context, u Upgrade) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO upgrade_history (media_file_path, old_format, old_score, new_format, new_score, provider_name, reason, upgraded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.MediaFilePath, u.OldFormat, u.OldScore, u.NewFormat, u.NewScore, u.ProviderName, u.Reason, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("history: append upgrade: %w", err)
	}
	return res.LastInsertId()
}

// ListDownloads returns the most recent download records, paginated
// (GET /history, §6).
func (s *Store) ListDownloads(ctx context.Context, limit, offset int) ([]Download, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider_name, external_id, language, format, installed_path, score, subtitle_kind, source, downloaded_at
		FROM download_records ORDER BY id DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Download
	for rows.Next() {
		var d Download
		var downloadedAt string
		if err := rows.Scan(&d.ID, &d.ProviderName, &d.ExternalID, &d.Language, &d.Format, &d.InstalledPath,
			&d.Score, &d.SubtitleKind, &d.Source, &downloadedAt); err != nil {
			return nil, err
		}
		d.DownloadedAt, _ = time.Parse(time.RFC3339, downloadedAt)
		out = append(out, d)
	}
	return out, rows.Err()
}
