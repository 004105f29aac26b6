package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sublarr/subctl/internal/breaker"
	"github.com/sublarr/subctl/internal/cache"
	"github.com/sublarr/subctl/internal/subtitle"
	"github.com/sublarr/subctl/internal/telemetry"
)

// ErrNoResult is returned when no provider produced a candidate at or above
// the per-language minimum score threshold (§4.4.3).
var ErrNoResult = errors.New("providers: no result")

// cacheNamespace scopes every response-cache key this package writes, so
// Cache.Clear(cacheNamespace) clears only provider search responses (§4.2).
const cacheNamespace = "providers:search:"

// BlacklistChecker reports whether a candidate has been blacklisted
// (provider_name, external_id) — consulted before any download (§4.4.2 step 4).
type BlacklistChecker interface {
	IsBlacklisted(ctx context.Context, providerName, externalID string) bool
}

// Aggregator turns a search Query into a best candidate across every
// enabled provider, applying caching, circuit breaking, rate limiting,
// blacklist gating, and scoring (C4).
type Aggregator struct {
	Registry  *Registry
	Breakers  *breaker.Registry
	Cache     cache.Cache
	Blacklist BlacklistChecker
	Logger    zerolog.Logger

	// SearchTimeout bounds each provider.Search call (§9
	// ProviderSearchTimeoutSeconds).
	SearchTimeout time.Duration
	// CacheTTL is the default response-cache TTL for a fresh search result
	// (§4.4.2 step 3, default 6h); providers may override via
	// ProviderCacheTTL.
	CacheTTL time.Duration
	// ProviderCacheTTL overrides CacheTTL per provider name.
	ProviderCacheTTL map[string]time.Duration
	// MinScore is the per-language minimum effective score below which the
	// best candidate is treated as no-result (§4.4.3).
	MinScore int
	// ProviderBias is a per-provider user-configurable score bias
	// (§4.4.1's "final effective score").
	ProviderBias map[string]int
}

// cachedResponse is what gets marshalled into the response cache for one
// provider's search call.
type cachedResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Search runs the full aggregation pipeline (§4.4.2-§4.4.3) and returns the
// best surviving candidate, or ErrNoResult if none clears MinScore.
func (a *Aggregator) Search(ctx context.Context, q Query) (Candidate, error) {
	ctx, span := telemetry.Tracer("providers").Start(ctx, "providers.Search")
	defer span.End()

	providerList := a.Registry.Enabled()
	results := make([][]Candidate, len(providerList))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providerList {
		i, p := i, p
		g.Go(func() error {
			cands, err := a.searchOne(gctx, p, q)
			if err != nil {
				// Per-provider errors are isolated and never propagate
				// (§4.4.6); the errgroup context is not cancelled.
				return nil //nolint:nilerr
			}
			results[i] = cands
			return nil
		})
	}
	_ = g.Wait()

	var all []Candidate
	for _, cands := range results {
		all = append(all, cands...)
	}

	best, ok := a.bestSelection(all, q)
	if !ok {
		return Candidate{}, ErrNoResult
	}
	return best, nil
}

// searchOne executes the cache-then-call sequence for a single provider
// (§4.4.2 steps 1-4).
func (a *Aggregator) searchOne(ctx context.Context, p Provider, q Query) ([]Candidate, error) {
	name := p.Metadata().Name
	key := cacheNamespace + searchCacheKey(name, q)

	if cached, ok := a.Cache.Get(key); ok {
		if resp, ok := cached.(cachedResponse); ok {
			return a.filterAndScore(ctx, resp.Candidates, q), nil
		}
	}

	if !a.Registry.AllowRate(name) {
		return nil, errors.New("providers: rate limited")
	}

	cb := a.Breakers.Get(name)
	stats := a.Registry.Stats(name)

	var cands []Candidate
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, a.timeoutFor())
	defer cancel()

	err := cb.Call(callCtx, func(ctx context.Context) error {
		result, err := p.Search(ctx, q)
		if err != nil {
			return err
		}
		cands = result
		return nil
	})
	latency := time.Since(start)

	if err != nil {
		stats.RecordFailure(time.Now())
		return nil, err
	}

	stats.RecordSuccess(len(cands), latency, time.Now())
	for i := range cands {
		cands[i].ProviderName = name
		cands[i].ResponseLatencyMS = latency.Milliseconds()
	}
	a.Cache.Set(key, cachedResponse{Candidates: cands}, a.ttlFor(name))

	return a.filterAndScore(ctx, cands, q), nil
}

// filterAndScore drops blacklisted and kind-mismatched candidates, then
// scores the survivors (§4.4.2 steps 4-5, §4.4.4).
func (a *Aggregator) filterAndScore(ctx context.Context, cands []Candidate, q Query) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if a.Blacklist != nil && a.Blacklist.IsBlacklisted(ctx, c.ProviderName, c.ExternalID) {
			continue
		}
		kind := c.SubtitleKindDetected
		if kind == "" {
			kind = subtitle.ClassifyProviderResult(c.Filename, &subtitle.ProviderResultMeta{ForeignPartsOnly: c.ForeignPartsOnly})
		}
		if q.Kind != "" && kind != q.Kind {
			continue
		}
		c.SubtitleKindDetected = kind
		c.RawScore = ScoreCandidate(c, q)
		c.EffectiveScore = EffectiveScore(c.RawScore, a.ProviderBias[c.ProviderName])
		a.Registry.Stats(c.ProviderName).RecordScore(c.EffectiveScore)
		out = append(out, c)
	}
	return out
}

// bestSelection sorts by effective score descending, breaking ties by
// provider preference then by lower response latency (§4.4.3).
func (a *Aggregator) bestSelection(cands []Candidate, q Query) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}

	best := cands[0]
	bestRank := a.Registry.Preference(best.ProviderName)
	for _, c := range cands[1:] {
		rank := a.Registry.Preference(c.ProviderName)
		switch {
		case c.EffectiveScore > best.EffectiveScore:
			best, bestRank = c, rank
		case c.EffectiveScore == best.EffectiveScore && rank < bestRank:
			best, bestRank = c, rank
		case c.EffectiveScore == best.EffectiveScore && rank == bestRank &&
			c.ResponseLatencyMS < best.ResponseLatencyMS:
			best, bestRank = c, rank
		}
	}

	if best.EffectiveScore < a.MinScore {
		return Candidate{}, false
	}
	return best, true
}

func (a *Aggregator) timeoutFor() time.Duration {
	if a.SearchTimeout > 0 {
		return a.SearchTimeout
	}
	return 10 * time.Second
}

func (a *Aggregator) ttlFor(provider string) time.Duration {
	if ttl, ok := a.ProviderCacheTTL[provider]; ok {
		return ttl
	}
	if a.CacheTTL > 0 {
		return a.CacheTTL
	}
	return 6 * time.Hour
}

// searchCacheKey computes hash(provider_name, query_fingerprint,
// optional_format_filter) per §4.4.2 step 1.
func searchCacheKey(provider string, q Query) string {
	payload, _ := json.Marshal(struct {
		Provider string `json:"provider"`
		Query    string `json:"query"`
		Language string `json:"language"`
		Format   string `json:"format,omitempty"`
	}{
		Provider: provider,
		Query:    q.CacheKeyQuery(),
		Language: q.Language,
		Format:   string(q.FormatFilter),
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
