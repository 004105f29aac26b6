package providers

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const presetSchema = `
CREATE TABLE IF NOT EXISTS filter_presets (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL UNIQUE,
	languages     TEXT NOT NULL,
	min_score     INTEGER NOT NULL DEFAULT 0,
	provider_bias TEXT NOT NULL DEFAULT '{}',
	created_at    TEXT NOT NULL
);
`

// Preset is a named, reusable provider/score filter configuration
// (SUPPLEMENTED FEATURES "Filter presets"), e.g. "anime-strict" pinning a
// high MinScore and a bias toward anime-focused providers.
type Preset struct {
	ID           int64
	Name         string
	Languages    []string
	MinScore     int
	ProviderBias map[string]int
}

// PresetStore is the sqlite-backed CRUD store for Preset, following the
// same store shape as internal/blacklist.Store.
type PresetStore struct {
	db *sql.DB
}

// NewPresetStore opens a PresetStore against db, applying its schema.
func NewPresetStore(ctx context.Context, db *sql.DB) (*PresetStore, error) {
	if _, err := db.ExecContext(ctx, presetSchema); err != nil {
		return nil, fmt.Errorf("providers: apply preset schema: %w", err)
	}
	return &PresetStore{db: db}, nil
}

// List returns every saved preset.
func (s *PresetStore) List(ctx context.Context) ([]Preset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, languages, min_score, provider_bias FROM filter_presets ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Preset
	for rows.Next() {
		var p Preset
		var languagesCSV, biasJSON string
		if err := rows.Scan(&p.ID, &p.Name, &languagesCSV, &p.MinScore, &biasJSON); err != nil {
			return nil, err
		}
		p.Languages = splitCSV(languagesCSV)
		p.ProviderBias = parseBiasJSON(biasJSON)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create saves a new preset, rejecting a duplicate name.
func (s *PresetStore) Create(ctx context.Context, p Preset) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO filter_presets (name, languages, min_score, provider_bias, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.Name, joinCSV(p.Languages), p.MinScore, biasToJSON(p.ProviderBias), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("providers: create preset: %w", err)
	}
	return res.LastInsertId()
}
