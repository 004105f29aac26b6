package scheduler

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// BackoffPolicy computes a failed wanted item's next retry_after using
// exponential backoff with jitter, capped (§4.6 step 4, §9
// RetryBackoffBaseSeconds/CapSeconds), via cenkalti/backoff/v5's
// ExponentialBackOff.
type BackoffPolicy struct {
	Base time.Duration
	Cap  time.Duration
}

// Next returns the delay to apply before the (searchCount)'th retry
// (searchCount is the item's search_count after MarkSearching incremented
// it). Each call constructs a fresh ExponentialBackOff and steps it
// searchCount times, since wanted items persist search_count across process
// restarts rather than holding a live BackOff in memory.
func (p BackoffPolicy) Next(searchCount int) time.Duration {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.base()
	eb.MaxInterval = p.cap()
	eb.Multiplier = 2.0
	eb.RandomizationFactor = 0.3
	eb.MaxElapsedTime = 0 // disable the elapsed-time cutoff; retries are capped by MaxInterval, not by a deadline

	steps := searchCount
	if steps < 1 {
		steps = 1
	}

	d := eb.InitialInterval
	for i := 0; i < steps; i++ {
		d = eb.NextBackOff()
	}
	// Jitter is applied around an interval already capped at MaxInterval, so
	// clamp the randomized result to keep the delay within the cap.
	if d > eb.MaxInterval {
		d = eb.MaxInterval
	}
	return d
}

func (p BackoffPolicy) base() time.Duration {
	if p.Base > 0 {
		return p.Base
	}
	return 30 * time.Second
}

func (p BackoffPolicy) cap() time.Duration {
	if p.Cap > 0 {
		return p.Cap
	}
	return time.Hour
}
