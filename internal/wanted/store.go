package wanted

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// normalizeLanguage canonicalizes a target_language value to its BCP-47 form
// (e.g. "EN-us" -> "en-US") so that a file requested via different casings or
// tag variants (API, webhook, scan config) dedups onto the same wanted item.
// Tags golang.org/x/text/language can't parse (e.g. a provider-specific
// code) are kept as a lowercased literal rather than rejected.
func normalizeLanguage(tag string) string {
	parsed, err := language.Parse(tag)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(tag))
	}
	return parsed.String()
}

const schema = `
CREATE TABLE IF NOT EXISTS wanted_items (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	kind              TEXT NOT NULL,
	media_file_path   TEXT NOT NULL,
	target_language   TEXT NOT NULL,
	subtitle_kind     TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'wanted',
	search_count      INTEGER NOT NULL DEFAULT 0,
	last_search_at    TEXT,
	retry_after       TEXT,
	current_score     INTEGER NOT NULL DEFAULT 0,
	current_format    TEXT NOT NULL DEFAULT '',
	upgrade_candidate INTEGER NOT NULL DEFAULT 0,
	series_id         TEXT,
	episode_id        TEXT,
	movie_id          TEXT,
	title             TEXT,
	UNIQUE (media_file_path, target_language, subtitle_kind)
);
CREATE INDEX IF NOT EXISTS idx_wanted_items_status_kind ON wanted_items (status, kind);
CREATE INDEX IF NOT EXISTS idx_wanted_items_retry_after ON wanted_items (retry_after);
`

// Store is the durable wanted-item store, backed by a single SQLite
// connection pool (§5: single-writer discipline, short-lived transactions).
type Store struct {
	db *sql.DB
}

// New opens a Store against db, applying the schema (idempotent, safe to
// call on every process start — §6's "ordered, idempotent migrations").
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("wanted: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Upsert inserts a new wanted item or returns the id of the pre-existing
// row for the same (path, target_language, subtitle_kind) triple —
// idempotent on the unique index, resolving an insertion race in favor of
// the pre-existing row (§4.5, §7 "Integrity" taxonomy).
func (s *Store) Upsert(ctx context.Context, kind, path, targetLanguage, subtitleKind string, linked LinkedIDs) (id int64, created bool, err error) {
	targetLanguage = normalizeLanguage(targetLanguage)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO wanted_items (kind, media_file_path, target_language, subtitle_kind, series_id, episode_id, movie_id, title)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (media_file_path, target_language, subtitle_kind) DO NOTHING
	`, kind, path, targetLanguage, subtitleKind, linked.SeriesID, linked.EpisodeID, linked.MovieID, linked.Title)
	if err != nil {
		return 0, false, fmt.Errorf("wanted: upsert: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("wanted: rows affected: %w", err)
	}
	if rows > 0 {
		newID, err := res.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("wanted: last insert id: %w", err)
		}
		return newID, true, nil
	}

	var existingID int64
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM wanted_items WHERE media_file_path = ? AND target_language = ? AND subtitle_kind = ?
	`, path, targetLanguage, subtitleKind).Scan(&existingID)
	if err != nil {
		return 0, false, fmt.Errorf("wanted: select existing: %w", err)
	}
	return existingID, false, nil
}

// MarkSearching atomically claims an item for processing: it transitions
// wanted|failed -> searching and bumps search_count. claimed is false if
// another worker already claimed the item first (§5: "an atomic claim via
// UPDATE ... WHERE status='wanted' is required").
func (s *Store) MarkSearching(ctx context.Context, id int64, now time.Time) (claimed bool, err error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE wanted_items SET status = ?, search_count = search_count + 1, last_search_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, StatusSearching, now.UTC().Format(time.RFC3339), id, StatusWanted, StatusFailed)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// MarkFailed transitions an item to failed with the computed retry_after
// (adaptive backoff, §4.6 step 4). retry_after is stored at whole-second
// precision, rounded up, so the item never becomes due before retryAfter.
func (s *Store) MarkFailed(ctx context.Context, id int64, now, retryAfter time.Time) error {
	retryAfter = retryAfter.UTC().Add(time.Second - time.Nanosecond).Truncate(time.Second)
	_, err := s.db.ExecContext(ctx, `
		UPDATE wanted_items SET status = ?, last_search_at = ?, retry_after = ? WHERE id = ?
	`, StatusFailed, now.UTC().Format(time.RFC3339), retryAfter.Format(time.RFC3339), id)
	return err
}

// MarkDone transitions an item to done with the installed candidate's
// format/score, so the next scan or upgrade check has a current baseline to
// compare against (§4.7); retry_after is cleared per the W invariant
// ("retry_after is null iff status in {wanted, done}").
func (s *Store) MarkDone(ctx context.Context, id int64, now time.Time, score int, format string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE wanted_items SET status = ?, last_search_at = ?, retry_after = NULL, current_score = ?, current_format = ? WHERE id = ?
	`, StatusDone, now.UTC().Format(time.RFC3339), score, format, id)
	return err
}

// MarkUpgradeCandidate records that path already carries a subtitle on disk
// (format/score as scored by upgrade.ScoreExisting) and flags the item as an
// upgrade candidate, so the retry loop's §4.7 upgrade check has a real
// baseline to decide against instead of an empty CurrentFormat.
func (s *Store) MarkUpgradeCandidate(ctx context.Context, id int64, format string, score int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE wanted_items SET upgrade_candidate = 1, current_format = ?, current_score = ? WHERE id = ?
	`, format, score, id)
	return err
}

// MarkBlacklisted transitions an item to blacklisted (every surviving
// candidate was blacklist-gated).
func (s *Store) MarkBlacklisted(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE wanted_items SET status = ? WHERE id = ?`, StatusBlacklisted, id)
	return err
}

// ListDue returns up to limit items with status in {wanted, failed} whose
// retry_after has passed (or is null), ordered by retry_after then id
// (§4.5).
func (s *Store) ListDue(ctx context.Context, now time.Time, limit int) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, media_file_path, target_language, subtitle_kind, status, search_count,
		       last_search_at, retry_after, current_score, current_format, upgrade_candidate, series_id, episode_id, movie_id, title
		FROM wanted_items
		WHERE status IN (?, ?) AND (retry_after IS NULL OR retry_after <= ?)
		ORDER BY retry_after IS NOT NULL, retry_after, id
		LIMIT ?
	`, StatusWanted, StatusFailed, now.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("wanted: list due: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// GetByID fetches a single wanted item, used by the webhook pipeline's
// search stage to re-read the item it just upserted (§4.8).
func (s *Store) GetByID(ctx context.Context, id int64) (Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, media_file_path, target_language, subtitle_kind, status, search_count,
		       last_search_at, retry_after, current_score, current_format, upgrade_candidate, series_id, episode_id, movie_id, title
		FROM wanted_items
		WHERE id = ?
	`, id)
	if err != nil {
		return Item{}, fmt.Errorf("wanted: get by id: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return Item{}, err
	}
	if len(items) == 0 {
		return Item{}, fmt.Errorf("wanted: item %d not found", id)
	}
	return items[0], nil
}

// ListFilter narrows List's results; zero-value fields are unfiltered.
type ListFilter struct {
	Status   Status
	Kind     string
	SeriesID string
	Path     string
	Limit    int
	Offset   int
}

// List returns wanted items matching filter, most recently created first,
// for the paginated `GET /wanted` endpoint (§6: "filters: status, kind,
// series_id, path").
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Item, error) {
	query := `
		SELECT id, kind, media_file_path, target_language, subtitle_kind, status, search_count,
		       last_search_at, retry_after, current_score, current_format, upgrade_candidate, series_id, episode_id, movie_id, title
		FROM wanted_items WHERE 1=1
	`
	var args []any
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	if filter.SeriesID != "" {
		query += " AND series_id = ?"
		args = append(args, filter.SeriesID)
	}
	if filter.Path != "" {
		query += " AND media_file_path = ?"
		args = append(args, filter.Path)
	}
	query += " ORDER BY id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("wanted: list: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// DeleteByPath removes every wanted item for a media file that no longer
// exists (§4.6 periodic scan).
func (s *Store) DeleteByPath(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM wanted_items WHERE media_file_path = ?`, path)
	return err
}

// AllPaths returns every distinct media_file_path currently tracked, used by
// the periodic library scan to prune wanted items for files that no longer
// exist (§4.6).
func (s *Store) AllPaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT media_file_path FROM wanted_items`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// StatusCounts returns the number of items per status, for the health/stats
// endpoints.
func (s *Store) StatusCounts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM wanted_items GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[Status(status)] = count
	}
	return out, rows.Err()
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var it Item
		var lastSearchAt, retryAfter sql.NullString
		var upgradeCandidate int
		var seriesID, episodeID, movieID, title sql.NullString

		if err := rows.Scan(&it.ID, &it.Kind, &it.MediaFilePath, &it.TargetLanguage, &it.SubtitleKind,
			&it.Status, &it.SearchCount, &lastSearchAt, &retryAfter, &it.CurrentScore, &it.CurrentFormat, &upgradeCandidate,
			&seriesID, &episodeID, &movieID, &title); err != nil {
			return nil, fmt.Errorf("wanted: scan: %w", err)
		}

		it.UpgradeCandidate = upgradeCandidate != 0
		it.Linked = LinkedIDs{SeriesID: seriesID.String, EpisodeID: episodeID.String, MovieID: movieID.String, Title: title.String}
		if lastSearchAt.Valid {
			if t, err := time.Parse(time.RFC3339, lastSearchAt.String); err == nil {
				it.LastSearchAt = &t
			}
		}
		if retryAfter.Valid {
			if t, err := time.Parse(time.RFC3339, retryAfter.String); err == nil {
				it.RetryAfter = &t
			}
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
