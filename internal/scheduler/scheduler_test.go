package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sublarr/subctl/internal/breaker"
	"github.com/sublarr/subctl/internal/bus"
	"github.com/sublarr/subctl/internal/cache"
	"github.com/sublarr/subctl/internal/history"
	"github.com/sublarr/subctl/internal/persistence/sqlite"
	"github.com/sublarr/subctl/internal/providers"
	"github.com/sublarr/subctl/internal/subtitle"
	"github.com/sublarr/subctl/internal/wanted"
)

type fakeProvider struct {
	name       string
	candidates []providers.Candidate
	err        error
}

func (f *fakeProvider) Metadata() providers.Metadata { return providers.Metadata{Name: f.name} }

func (f *fakeProvider) Search(context.Context, providers.Query) ([]providers.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func (f *fakeProvider) Download(context.Context, providers.Candidate) ([]byte, error) {
	return []byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n"), nil
}

func newTestSetup(t *testing.T, provider providers.Provider) (*Scheduler, *wanted.Store, *history.Store) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "sched.sqlite"), sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	wantedStore, err := wanted.New(context.Background(), db)
	require.NoError(t, err)
	historyStore, err := history.New(context.Background(), db)
	require.NoError(t, err)

	breakers := breaker.NewRegistry(3, time.Minute)
	reg := providers.NewRegistry(breakers, nil)
	reg.Register(provider)

	agg := &providers.Aggregator{
		Registry: reg,
		Breakers: breakers,
		Cache:    cache.NewMemoryCache(0),
		MinScore: 0,
	}

	s := &Scheduler{
		Wanted:     wantedStore,
		Aggregator: agg,
		History:    historyStore,
		Bus:        bus.NewMemoryBus(),
		Logger:     zerolog.Nop(),
		Backoff:    BackoffPolicy{Base: 10 * time.Millisecond, Cap: time.Second},
	}
	return s, wantedStore, historyStore
}

func TestProcessItemInstallsCandidateAndMarksDone(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "arrival.2016.mkv")
	require.NoError(t, os.WriteFile(mediaPath, []byte("fake"), 0o600))

	provider := &fakeProvider{
		name: "osub",
		candidates: []providers.Candidate{
			{ExternalID: "ext-1", Format: subtitle.FormatSRT, TitleMatch: true, HashMatch: true},
		},
	}
	s, wantedStore, historyStore := newTestSetup(t, provider)
	ctx := context.Background()

	id, _, err := wantedStore.Upsert(ctx, "movie", mediaPath, "en", "full", wanted.LinkedIDs{Title: "Arrival"})
	require.NoError(t, err)

	due, err := wantedStore.ListDue(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	s.processItem(ctx, due[0])

	destPath := filepath.Join(dir, "arrival.2016.en.srt")
	data, err := os.ReadFile(destPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "hi")

	counts, err := wantedStore.StatusCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, counts[wanted.StatusDone])

	downloads, err := historyStore.ListDownloads(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, downloads, 1)
	require.Equal(t, "osub", downloads[0].ProviderName)

	_ = id
}

func TestProcessItemUpgradesExistingSubtitleAndRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "arrival.2016.mkv")
	require.NoError(t, os.WriteFile(mediaPath, []byte("fake"), 0o600))

	provider := &fakeProvider{
		name: "osub",
		candidates: []providers.Candidate{
			{ExternalID: "ext-1", Format: subtitle.FormatSRT, TitleMatch: true, HashMatch: true},
		},
	}
	s, wantedStore, historyStore := newTestSetup(t, provider)
	ctx := context.Background()

	sub, err := s.Bus.Subscribe(ctx, bus.EventUpgradeComplete)
	require.NoError(t, err)
	defer sub.Close()

	id, _, err := wantedStore.Upsert(ctx, "movie", mediaPath, "en", "full", wanted.LinkedIDs{Title: "Arrival"})
	require.NoError(t, err)
	// Record that a low-scoring srt already exists on disk for this item, so
	// the retry loop treats it as an upgrade candidate (§4.6/§4.7) rather
	// than a missing subtitle.
	require.NoError(t, wantedStore.MarkUpgradeCandidate(ctx, id, "srt", 0))

	due, err := wantedStore.ListDue(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.True(t, due[0].UpgradeCandidate)
	require.Equal(t, "srt", due[0].CurrentFormat)

	s.processItem(ctx, due[0])

	item, err := wantedStore.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, wanted.StatusDone, item.Status)

	select {
	case msg := <-sub.C():
		require.Equal(t, "Arrival", msg.Payload["title"])
		require.Equal(t, "srt", msg.Payload["old_format"])
	default:
		t.Fatal("expected an upgrade_complete event to be published")
	}

	downloads, err := historyStore.ListDownloads(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, downloads, 1)
}

func TestProcessItemNoResultSchedulesBackoffRetry(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "arrival.2016.mkv")
	require.NoError(t, os.WriteFile(mediaPath, []byte("fake"), 0o600))

	provider := &fakeProvider{name: "osub"} // no candidates -> ErrNoResult
	s, wantedStore, _ := newTestSetup(t, provider)
	ctx := context.Background()

	_, _, err := wantedStore.Upsert(ctx, "movie", mediaPath, "en", "full", wanted.LinkedIDs{})
	require.NoError(t, err)

	due, err := wantedStore.ListDue(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	before := time.Now().UTC()
	s.processItem(ctx, due[0])

	due, err = wantedStore.ListDue(ctx, before, 10)
	require.NoError(t, err)
	require.Empty(t, due, "retry_after should be in the future")

	counts, err := wantedStore.StatusCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, counts[wanted.StatusFailed])
}
