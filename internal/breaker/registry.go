package breaker

import (
	"sync"
	"time"
)

// Registry hands out one Breaker per dependency name, creating it lazily on
// first use with the registry's configured threshold/cooldown.
type Registry struct {
	mu        sync.Mutex
	breakers  map[string]*Breaker
	threshold int
	cooldown  time.Duration
	clock     Clock
}

// NewRegistry creates a Registry; all breakers it hands out share threshold
// and cooldown (§9 CircuitBreakerFailures/CooldownSeconds).
func NewRegistry(threshold int, cooldown time.Duration) *Registry {
	return &Registry{
		breakers:  make(map[string]*Breaker),
		threshold: threshold,
		cooldown:  cooldown,
		clock:     realClock{},
	}
}

// WithClock overrides the clock used for all breakers created after the call.
func (r *Registry) WithClock(c Clock) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = c
	return r
}

// Get returns the breaker for name, creating it if necessary.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := New(name, r.threshold, r.cooldown, WithClock(r.clock))
	r.breakers[name] = b
	return b
}

// Snapshot returns the current state of every breaker created so far, keyed
// by dependency name, for the status/health endpoints.
func (r *Registry) Snapshot() map[string]State {
	r.mu.Lock()
	names := make([]string, 0, len(r.breakers))
	breakers := make([]*Breaker, 0, len(r.breakers))
	for name, b := range r.breakers {
		names = append(names, name)
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	out := make(map[string]State, len(names))
	for i, name := range names {
		out[name] = breakers[i].State()
	}
	return out
}
