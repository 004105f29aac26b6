// Package blacklist implements the blacklist CRUD and gating check
// consulted before any subtitle download (B, §3; §4.4.2 step 4).
package blacklist

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS blacklist (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	provider_name   TEXT NOT NULL,
	external_id     TEXT NOT NULL,
	language        TEXT NOT NULL,
	media_file_path TEXT,
	title           TEXT,
	reason          TEXT,
	added_at        TEXT NOT NULL,
	UNIQUE (provider_name, external_id)
);
`

// Entry is one blacklist row (B, §3).
type Entry struct {
	ID            int64
	ProviderName  string
	ExternalID    string
	Language      string
	MediaFilePath string
	Title         string
	Reason        string
	AddedAt       time.Time
}

// Store is the blacklist CRUD store, also implementing
// providers.BlacklistChecker.
type Store struct {
	db *sql.DB
}

// New opens a Store against db, applying the schema.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("blacklist: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Add inserts a blacklist entry, or is a no-op if (provider_name,
// external_id) is already blacklisted.
func (s *Store) Add(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blacklist (provider_name, external_id, language, media_file_path, title, reason, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider_name, external_id) DO NOTHING
	`, e.ProviderName, e.ExternalID, e.Language, e.MediaFilePath, e.Title, e.Reason, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Remove deletes a blacklist entry by id.
func (s *Store) Remove(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blacklist WHERE id = ?`, id)
	return err
}

// List returns every blacklist entry, most recent first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider_name, external_id, language, media_file_path, title, reason, added_at
		FROM blacklist ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var addedAt string
		if err := rows.Scan(&e.ID, &e.ProviderName, &e.ExternalID, &e.Language, &e.MediaFilePath, &e.Title, &e.Reason, &addedAt); err != nil {
			return nil, err
		}
		e.AddedAt, _ = time.Parse(time.RFC3339, addedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// IsBlacklisted implements providers.BlacklistChecker.
func (s *Store) IsBlacklisted(ctx context.Context, providerName, externalID string) bool {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM blacklist WHERE provider_name = ? AND external_id = ?
	`, providerName, externalID).Scan(&id)
	return err == nil
}
