package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sublarr/subctl/internal/persistence/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "history.sqlite"), sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s, err := New(context.Background(), db)
	require.NoError(t, err)
	return s
}

func TestAppendAndListDownloads(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AppendDownload(ctx, Download{ProviderName: "osub", Format: "ass", InstalledPath: "/tv/show.en.ass", Score: 310, Source: SourceProvider})
	require.NoError(t, err)

	downloads, err := s.ListDownloads(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, downloads, 1)
	require.Equal(t, "osub", downloads[0].ProviderName)
}

func TestAppendUpgrade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AppendUpgrade(ctx, Upgrade{MediaFilePath: "/tv/show.mkv", OldFormat: "srt", NewFormat: "ass", NewScore: 330, Reason: "score delta"})
	require.NoError(t, err)
	require.Positive(t, id)
}
