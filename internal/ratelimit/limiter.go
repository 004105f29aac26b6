// SPDX-License-Identifier: MIT

package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var (
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sublarr",
			Name:      "ratelimit_exceeded_total",
			Help:      "Total rate limit rejections",
		},
		[]string{"limit_type", "provider"},
	)
)

// Config holds rate limiting configuration for inbound API traffic and, via
// the per-provider map, outbound provider-call throttling (C4.4.2).
type Config struct {
	// Global limits
	GlobalRate  rate.Limit // requests per second
	GlobalBurst int        // max burst size

	// Per-IP limits
	PerIPRate  rate.Limit
	PerIPBurst int

	// Per-provider limits, keyed by provider name
	ProviderRates map[string]rate.Limit
	ProviderBurst map[string]int

	// Cleanup interval for per-IP limiters
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults for the REST surface. ProviderRates
// and ProviderBurst start empty, so no per-provider limit applies unless the
// caller fills them before New.
func DefaultConfig() Config {
	return Config{
		GlobalRate:  100,
		GlobalBurst: 200,

		PerIPRate:  10,
		PerIPBurst: 20,

		ProviderRates: map[string]rate.Limit{},
		ProviderBurst: map[string]int{},

		CleanupInterval: 5 * time.Minute,
	}
}

// Limiter enforces global, per-IP, and per-provider token-bucket limits.
type Limiter struct {
	config Config

	global      *rate.Limiter
	perIP       map[string]*rate.Limiter
	perProvider map[string]*rate.Limiter
	mu          sync.RWMutex

	lastCleanup time.Time
}

// New creates a new rate limiter with the given config.
func New(config Config) *Limiter {
	l := &Limiter{
		config:      config,
		global:      rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perIP:       make(map[string]*rate.Limiter),
		perProvider: make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}

	for name, r := range config.ProviderRates {
		burst := config.ProviderBurst[name]
		l.perProvider[name] = rate.NewLimiter(r, burst)
	}

	return l
}

// Allow checks if a request is permitted under the global, per-provider, and
// per-IP limits, in that order. clientIP may be empty for internal callers
// (e.g. the scheduler calling a provider directly, with no HTTP client).
func (l *Limiter) Allow(clientIP, provider string) bool {
	if !l.global.Allow() {
		rateLimitExceeded.WithLabelValues("global", provider).Inc()
		return false
	}

	l.mu.RLock()
	providerLimiter, exists := l.perProvider[provider]
	l.mu.RUnlock()

	if exists && !providerLimiter.Allow() {
		rateLimitExceeded.WithLabelValues("per_provider", provider).Inc()
		return false
	}

	if clientIP != "" {
		ipLimiter := l.getIPLimiter(clientIP)
		if !ipLimiter.Allow() {
			rateLimitExceeded.WithLabelValues("per_ip", provider).Inc()
			return false
		}
	}

	l.maybeCleanup()

	return true
}

// AllowProvider reports whether a call to provider is permitted, ignoring
// the per-IP dimension; used by the aggregator (C4.4.2) for outbound calls.
func (l *Limiter) AllowProvider(provider string) bool {
	return l.Allow("", provider)
}

// getIPLimiter returns the rate limiter for a specific IP
func (l *Limiter) getIPLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.perIP[ip]
	if !exists {
		limiter = rate.NewLimiter(l.config.PerIPRate, l.config.PerIPBurst)
		l.perIP[ip] = limiter
	}

	return limiter
}

// maybeCleanup removes stale IP limiters if cleanup interval has passed
func (l *Limiter) maybeCleanup() {
	if time.Since(l.lastCleanup) < l.config.CleanupInterval {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Clear all IP limiters (simple approach)
	// Alternative: Track last access time and only remove stale entries
	l.perIP = make(map[string]*rate.Limiter)
	l.lastCleanup = time.Now()
}

// GetClientIP extracts the real client IP from the request
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (reverse proxy)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// X-Forwarded-For can contain multiple IPs: "client, proxy1, proxy2"
		// Take the first one (original client)
		if idx := findComma(xff); idx > 0 {
			xff = xff[:idx]
		}
		xff = trimSpace(xff)
		if xff != "" {
			return xff
		}
	}

	// Check X-Real-IP header (some proxies)
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return xri
	}

	// Fallback to RemoteAddr
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// findComma returns the index of the first comma in the string
func findComma(s string) int {
	for i, c := range s {
		if c == ',' {
			return i
		}
	}
	return -1
}

// trimSpace removes leading and trailing whitespace
func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && s[start] == ' ' {
		start++
	}
	for end > start && s[end-1] == ' ' {
		end--
	}
	return s[start:end]
}
