package providers

import (
	"sync"
	"time"
)

// Stats is one row of provider statistics (PS), updated after every call.
type Stats struct {
	ProviderName        string
	TotalSearches       int64
	Successes           int64
	Failures            int64
	AvgScore            float64
	LastSuccessAt       time.Time
	LastFailureAt       time.Time
	ConsecutiveFailures int
	AvgResponseTimeMS   float64
	AutoDisabled        bool
	DisabledUntil       time.Time
}

// statsTracker accumulates Stats for one provider under a single mutex.
type statsTracker struct {
	mu    sync.Mutex
	stats Stats
}

func newStatsTracker(name string) *statsTracker {
	return &statsTracker{stats: Stats{ProviderName: name}}
}

// RecordSuccess folds a successful search's result count and latency into
// the running averages.
func (t *statsTracker) RecordSuccess(resultCount int, latency time.Duration, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.TotalSearches++
	t.stats.Successes++
	t.stats.ConsecutiveFailures = 0
	t.stats.LastSuccessAt = now
	t.stats.AvgResponseTimeMS = runningAvg(t.stats.AvgResponseTimeMS, t.stats.Successes, float64(latency.Milliseconds()))
	if resultCount > 0 {
		// AvgScore is folded in by the caller via RecordScore once candidates
		// are scored; searches with zero results leave it untouched.
		_ = resultCount
	}
}

// RecordScore folds one candidate's effective score into the provider's
// running average score.
func (t *statsTracker) RecordScore(score int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.AvgScore = runningAvg(t.stats.AvgScore, t.stats.Successes, float64(score))
}

// RecordFailure marks a failed search (timeout or error).
func (t *statsTracker) RecordFailure(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.TotalSearches++
	t.stats.Failures++
	t.stats.ConsecutiveFailures++
	t.stats.LastFailureAt = now
}

// Disable marks the provider auto-disabled until the given time (§7 rate
// limit escalation: 429 with Retry-After).
func (t *statsTracker) Disable(until time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.AutoDisabled = true
	t.stats.DisabledUntil = until
}

func (t *statsTracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stats.AutoDisabled && time.Now().After(t.stats.DisabledUntil) {
		t.stats.AutoDisabled = false
	}
	return t.stats
}

func runningAvg(prevAvg float64, countAfter int64, sample float64) float64 {
	if countAfter <= 0 {
		return sample
	}
	return prevAvg + (sample-prevAvg)/float64(countAfter)
}
