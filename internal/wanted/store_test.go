package wanted

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sublarr/subctl/internal/persistence/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "wanted.sqlite")
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := New(context.Background(), db)
	require.NoError(t, err)
	return s
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, created1, err := s.Upsert(ctx, "episode", "/tv/show.s01e01.mkv", "en", "full", LinkedIDs{Title: "Show"})
	require.NoError(t, err)
	require.True(t, created1)

	id2, created2, err := s.Upsert(ctx, "episode", "/tv/show.s01e01.mkv", "en", "full", LinkedIDs{Title: "Show Renamed"})
	require.NoError(t, err)
	require.False(t, created2)
	require.Equal(t, id1, id2, "upsert for the same (path, language, kind) triple must resolve to the same row")
}

func TestLifecycleTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _, err := s.Upsert(ctx, "movie", "/movies/arrival.mkv", "en", "full", LinkedIDs{})
	require.NoError(t, err)

	now := time.Now().UTC()
	claimed, err := s.MarkSearching(ctx, id, now)
	require.NoError(t, err)
	require.True(t, claimed)

	due, err := s.ListDue(ctx, now.Add(time.Hour), 10)
	require.NoError(t, err)
	for _, item := range due {
		require.NotEqual(t, id, item.ID, "a searching item is not due")
	}

	retryAt := now.Add(5 * time.Minute)
	require.NoError(t, s.MarkFailed(ctx, id, now, retryAt))

	due, err = s.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Empty(t, due, "retry_after in the future should not be due yet")

	due, err = s.ListDue(ctx, retryAt.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, StatusFailed, due[0].Status)

	require.NoError(t, s.MarkDone(ctx, id, now, 350, "ass"))
	counts, err := s.StatusCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, counts[StatusDone])

	item, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "ass", item.CurrentFormat)
	require.Equal(t, 350, item.CurrentScore)
}

func TestUpsertNormalizesLanguageTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, created1, err := s.Upsert(ctx, "movie", "/movies/dune.mkv", "EN-us", "full", LinkedIDs{})
	require.NoError(t, err)
	require.True(t, created1)

	id2, created2, err := s.Upsert(ctx, "movie", "/movies/dune.mkv", "en-US", "full", LinkedIDs{})
	require.NoError(t, err)
	require.False(t, created2, "differently-cased variants of the same BCP-47 tag must resolve to the same row")
	require.Equal(t, id1, id2)

	item, err := s.GetByID(ctx, id1)
	require.NoError(t, err)
	require.Equal(t, "en-US", item.TargetLanguage)
}

func TestMarkUpgradeCandidateRecordsExistingBaseline(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _, err := s.Upsert(ctx, "movie", "/movies/arrival.mkv", "en", "full", LinkedIDs{})
	require.NoError(t, err)

	require.NoError(t, s.MarkUpgradeCandidate(ctx, id, "srt", 150))

	item, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, item.UpgradeCandidate)
	require.Equal(t, "srt", item.CurrentFormat)
	require.Equal(t, 150, item.CurrentScore)
}

func TestDeleteByPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.Upsert(ctx, "movie", "/movies/gone.mkv", "en", "full", LinkedIDs{})
	require.NoError(t, err)
	require.NoError(t, s.DeleteByPath(ctx, "/movies/gone.mkv"))

	counts, err := s.StatusCounts(ctx)
	require.NoError(t, err)
	require.Zero(t, counts[StatusWanted])
}
