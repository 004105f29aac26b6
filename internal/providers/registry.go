package providers

import (
	"sort"
	"sync"
	"time"

	"github.com/sublarr/subctl/internal/breaker"
	"github.com/sublarr/subctl/internal/ratelimit"
)

// Registry holds every registered provider — built-in and plugin-declared —
// along with its circuit breaker, stats, and preference rank (C3, C4.4.3).
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     map[string]int // name -> preference rank, lower sorts first
	stats     map[string]*statsTracker
	nextRank  int
	breakers  *breaker.Registry
	limiter   *ratelimit.Limiter
}

// NewRegistry creates an empty Registry. Built-in providers should be
// registered immediately after construction, at process init.
func NewRegistry(breakers *breaker.Registry, limiter *ratelimit.Limiter) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		order:     make(map[string]int),
		stats:     make(map[string]*statsTracker),
		breakers:  breakers,
		limiter:   limiter,
	}
}

// Register adds or replaces a provider. Re-registering an existing name
// keeps its previous preference rank, stats, and breaker (used by plugin
// reload to preserve ordering across a hot-swap).
func (r *Registry) Register(p Provider) {
	name := p.Metadata().Name

	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[name] = p
	if _, ok := r.order[name]; !ok {
		r.order[name] = r.nextRank
		r.nextRank++
	}
	if _, ok := r.stats[name]; !ok {
		r.stats[name] = newStatsTracker(name)
	}
}

// Unregister removes a provider by name (used when a plugin reload drops a
// previously-loaded definition).
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
}

// ReplacePlugins atomically swaps every non-built-in provider for a freshly
// loaded set, so concurrent readers never observe a half-swapped registry
// (§4.3's reload contract). Built-in providers are untouched.
func (r *Registry) ReplacePlugins(loaded []Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, p := range r.providers {
		if !p.Metadata().BuiltIn {
			delete(r.providers, name)
		}
	}
	for _, p := range loaded {
		name := p.Metadata().Name
		r.providers[name] = p
		if _, ok := r.order[name]; !ok {
			r.order[name] = r.nextRank
			r.nextRank++
		}
		if _, ok := r.stats[name]; !ok {
			r.stats[name] = newStatsTracker(name)
		}
	}
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Enabled returns every registered provider whose circuit breaker is not
// open and which is not in a Cooldown, ordered by preference rank (ties
// broken by name). It does not consume a half-open breaker's probe; the
// caller's Breaker.Call does.
func (r *Registry) Enabled() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		name := p.Metadata().Name
		if r.breakers.Get(name).State() == breaker.StateOpen {
			continue
		}
		if t, ok := r.stats[name]; ok && t.Snapshot().AutoDisabled {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := out[i].Metadata().Name, out[j].Metadata().Name
		if r.order[ni] != r.order[nj] {
			return r.order[ni] < r.order[nj]
		}
		return ni < nj
	})
	return out
}

// Preference returns name's preference rank (lower is preferred), used by
// the aggregator's tie-break (§4.4.3).
func (r *Registry) Preference(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.order[name]
}

// Stats returns a stats tracker for name, creating one if this is the first
// call for it (e.g. a just-loaded plugin).
func (r *Registry) Stats(name string) *statsTracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.stats[name]
	if !ok {
		t = newStatsTracker(name)
		r.stats[name] = t
	}
	return t
}

// Snapshot lists every registered provider's metadata, breaker state, and
// stats, for GET /providers (§6).
type Snapshot struct {
	Metadata Metadata
	Breaker  breaker.State
	Stats    Stats
}

// List returns a snapshot of the whole registry, ordered by preference.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	names := make([]string, 0, len(r.providers))
	metas := make(map[string]Metadata, len(r.providers))
	for name, p := range r.providers {
		names = append(names, name)
		metas[name] = p.Metadata()
	}
	order := make(map[string]int, len(r.order))
	for k, v := range r.order {
		order[k] = v
	}
	r.mu.RUnlock()

	sort.Slice(names, func(i, j int) bool {
		if order[names[i]] != order[names[j]] {
			return order[names[i]] < order[names[j]]
		}
		return names[i] < names[j]
	})

	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		out = append(out, Snapshot{
			Metadata: metas[name],
			Breaker:  r.breakers.Get(name).State(),
			Stats:    r.Stats(name).Snapshot(),
		})
	}
	return out
}

// ResetBreaker forces a provider's circuit breaker closed (POST
// /providers/{name}/reset-breaker, §6).
func (r *Registry) ResetBreaker(name string) {
	r.breakers.Get(name).RecordSuccess()
}

// AllowRate reports whether a call to the named provider is currently
// permitted by the outbound rate limiter (§4.4.2, §7 429 cooldown).
func (r *Registry) AllowRate(name string) bool {
	if r.limiter == nil {
		return true
	}
	return r.limiter.AllowProvider(name)
}

// Cooldown disables a provider until the given time, typically in response
// to an upstream 429 with Retry-After (§7).
func (r *Registry) Cooldown(name string, until time.Time) {
	r.Stats(name).Disable(until)
}
