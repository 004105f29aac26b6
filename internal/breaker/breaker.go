// Package breaker implements a three-state (closed/open/half-open) circuit
// breaker, one instance per external dependency (a subtitle provider, a
// translate backend). State evaluation is lazy: the open-to-half-open
// transition is only checked when a caller asks, not on a background timer.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sublarr/subctl/internal/metrics"
)

// State is one of closed, open, half-open.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Call when the breaker is open and the cooldown has
// not yet elapsed.
var ErrOpen = errors.New("circuit breaker is open")

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Breaker is a per-dependency circuit breaker. The zero value is not usable;
// construct with New.
//
// Semantics (matching the Python original's backend/circuit_breaker.py):
//   - closed: failures accumulate a consecutive count; reaching threshold opens.
//   - open: all calls rejected with ErrOpen until cooldown elapses.
//   - half_open: entered lazily, on the first call/status check after
//     cooldown elapses while open; exactly one probe is allowed through.
//   - half_open + success: closes immediately and resets the failure count.
//   - half_open + failure: reopens immediately, restarting the cooldown.
type Breaker struct {
	mu sync.Mutex

	name      string
	threshold int
	cooldown  time.Duration
	clock     Clock

	state           State
	consecutiveFail int
	openedAt        time.Time
	halfOpenProbeOK bool // a probe is currently in flight in half-open
}

// Option configures a Breaker at construction time.
type Option func(*Breaker)

// WithClock overrides the time source, for tests.
func WithClock(c Clock) Option {
	return func(b *Breaker) { b.clock = c }
}

// New creates a Breaker named name that opens after threshold consecutive
// failures and stays open for cooldown before allowing a half-open probe.
func New(name string, threshold int, cooldown time.Duration, opts ...Option) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	b := &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		clock:     realClock{},
		state:     StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	metrics.SetCircuitBreakerState(b.name, b.state.String())
	return b
}

// Name returns the breaker's dependency name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, evaluating the open-cooldown transition
// lazily rather than via a background timer.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentStateLocked()
}

func (b *Breaker) currentStateLocked() State {
	if b.state == StateOpen && b.clock.Now().Sub(b.openedAt) >= b.cooldown {
		b.transitionLocked(StateHalfOpen)
	}
	return b.state
}

// Allow reports whether a call is currently permitted. In half-open, only
// one probe is allowed through at a time; concurrent callers are rejected
// until the in-flight probe records its outcome.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentStateLocked() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.halfOpenProbeOK {
			return false
		}
		b.halfOpenProbeOK = true
		return true
	default: // StateOpen
		return false
	}
}

// Call executes fn if the breaker allows it, recording the outcome.
func (b *Breaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if !b.Allow() {
		return ErrOpen
	}
	err := fn(ctx)
	if err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// RecordSuccess resets the consecutive-failure count and closes the breaker
// if it was half-open.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFail = 0
	if b.state == StateHalfOpen {
		b.halfOpenProbeOK = false
		b.transitionLocked(StateClosed)
	}
}

// RecordFailure increments the consecutive-failure count, tripping the
// breaker at threshold (closed) or immediately reopening it (half-open).
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.halfOpenProbeOK = false
		b.transitionLocked(StateOpen)
		return
	}

	b.consecutiveFail++
	if b.consecutiveFail >= b.threshold {
		b.transitionLocked(StateOpen)
	}
}

func (b *Breaker) transitionLocked(s State) {
	if b.state == s {
		return
	}
	b.state = s
	switch s {
	case StateOpen:
		b.openedAt = b.clock.Now()
		metrics.RecordCircuitBreakerTrip(b.name, "failure_threshold")
	case StateClosed:
		b.consecutiveFail = 0
	}
	metrics.SetCircuitBreakerState(b.name, s.String())
}
