package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sublarr/subctl/internal/breaker"
	"github.com/sublarr/subctl/internal/cache"
	"github.com/sublarr/subctl/internal/media"
	"github.com/sublarr/subctl/internal/subtitle"
)

type fakeProvider struct {
	name       string
	builtIn    bool
	candidates []Candidate
	err        error
	calls      int
}

func (f *fakeProvider) Metadata() Metadata { return Metadata{Name: f.name, BuiltIn: f.builtIn} }

func (f *fakeProvider) Search(ctx context.Context, q Query) ([]Candidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func (f *fakeProvider) Download(ctx context.Context, c Candidate) ([]byte, error) {
	return []byte("data"), nil
}

func newTestAggregator(t *testing.T, providers ...Provider) (*Aggregator, *Registry) {
	t.Helper()
	breakers := breaker.NewRegistry(3, time.Minute)
	reg := NewRegistry(breakers, nil)
	for _, p := range providers {
		reg.Register(p)
	}
	agg := &Aggregator{
		Registry: reg,
		Breakers: breakers,
		Cache:    cache.NewMemoryCache(0),
		MinScore: 50,
	}
	return agg, reg
}

func TestAggregatorSearchPicksHighestScoringSurvivor(t *testing.T) {
	low := &fakeProvider{name: "low", candidates: []Candidate{
		{ExternalID: "1", Format: subtitle.FormatSRT, Filename: "a.srt"},
	}}
	high := &fakeProvider{name: "high", candidates: []Candidate{
		{ExternalID: "2", Format: subtitle.FormatASS, HashMatch: true, TitleMatch: true, Filename: "b.ass"},
	}}
	agg, _ := newTestAggregator(t, low, high)

	q := Query{Fingerprint: media.Fingerprint{Kind: media.KindEpisode, Title: "Show"}, Language: "en"}
	best, err := agg.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "high", best.ProviderName)
}

func TestAggregatorSearchBelowMinScoreIsNoResult(t *testing.T) {
	weak := &fakeProvider{name: "weak", candidates: []Candidate{
		{ExternalID: "1", Filename: "weak.srt"},
	}}
	agg, _ := newTestAggregator(t, weak)
	agg.MinScore = 1000

	_, err := agg.Search(context.Background(), Query{Fingerprint: media.Fingerprint{Kind: media.KindMovie}})
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestAggregatorSearchIsolatesProviderFailure(t *testing.T) {
	failing := &fakeProvider{name: "failing", err: assertErr("boom")}
	good := &fakeProvider{name: "good", candidates: []Candidate{
		{ExternalID: "1", HashMatch: true, TitleMatch: true, Filename: "good.ass", Format: subtitle.FormatASS},
	}}
	agg, reg := newTestAggregator(t, failing, good)

	best, err := agg.Search(context.Background(), Query{Fingerprint: media.Fingerprint{Kind: media.KindEpisode}})
	require.NoError(t, err)
	assert.Equal(t, "good", best.ProviderName)
	assert.Equal(t, int64(1), reg.Stats("failing").Snapshot().Failures)
}

func TestAggregatorSearchUsesCacheOnSecondCall(t *testing.T) {
	p := &fakeProvider{name: "cached", candidates: []Candidate{
		{ExternalID: "1", HashMatch: true, TitleMatch: true, Filename: "c.ass", Format: subtitle.FormatASS},
	}}
	agg, _ := newTestAggregator(t, p)

	q := Query{Fingerprint: media.Fingerprint{Kind: media.KindEpisode, Title: "Show"}}
	_, err := agg.Search(context.Background(), q)
	require.NoError(t, err)
	_, err = agg.Search(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 1, p.calls, "second search should be served from cache")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
