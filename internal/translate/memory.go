package translate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS translation_memory (
	source_language TEXT NOT NULL,
	target_language TEXT NOT NULL,
	text_hash       TEXT NOT NULL,
	source_text     TEXT NOT NULL,
	translated_text TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	PRIMARY KEY (source_language, target_language, text_hash)
);
`

// Memory is the translation-memory cache keyed by
// (source_language, target_language, text_hash), consulted before invoking
// Backend.TranslateLine to avoid re-translating identical lines across
// episodes of the same show.
type Memory struct {
	db *sql.DB
}

// NewMemory opens a Memory store against db, applying its schema.
func NewMemory(ctx context.Context, db *sql.DB) (*Memory, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("translate: apply schema: %w", err)
	}
	return &Memory{db: db}, nil
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Lookup returns a previously stored translation, if any.
func (m *Memory) Lookup(ctx context.Context, sourceLanguage, targetLanguage, text string) (string, bool, error) {
	var translated string
	err := m.db.QueryRowContext(ctx, `
		SELECT translated_text FROM translation_memory
		WHERE source_language = ? AND target_language = ? AND text_hash = ?
	`, sourceLanguage, targetLanguage, hashText(text)).Scan(&translated)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return translated, true, nil
}

// Store records a translated line, replacing any prior entry for the same
// key (a later translation is assumed to be a correction).
func (m *Memory) Store(ctx context.Context, sourceLanguage, targetLanguage, text, translated string) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO translation_memory (source_language, target_language, text_hash, source_text, translated_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_language, target_language, text_hash) DO UPDATE SET translated_text = excluded.translated_text
	`, sourceLanguage, targetLanguage, hashText(text), text, translated, time.Now().UTC().Format(time.RFC3339))
	return err
}
