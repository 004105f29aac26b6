package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := New("opensubtitles", 3, time.Second)

	for i := 0; i < 2; i++ {
		b.RecordFailure()
		assert.Equal(t, StateClosed, b.State())
	}
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerHalfOpenSingleSuccessCloses(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	b := New("addic7ed", 1, 10*time.Second, WithClock(clk))

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	clk.Advance(10 * time.Second)
	require.Equal(t, StateHalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	b := New("podnapisi", 1, 10*time.Second, WithClock(clk))

	b.RecordFailure()
	clk.Advance(10 * time.Second)
	require.Equal(t, StateHalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerRejectsWhenOpen(t *testing.T) {
	b := New("subdl", 1, time.Minute)
	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	err := b.Call(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrOpen)
}

func TestCallRecordsOutcome(t *testing.T) {
	b := New("opensubtitles", 2, time.Minute)
	boom := errors.New("boom")

	err := b.Call(context.Background(), func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateClosed, b.State())

	err = b.Call(context.Background(), func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateOpen, b.State())
}

func TestRegistryReusesBreaker(t *testing.T) {
	r := NewRegistry(5, time.Minute)
	a := r.Get("opensubtitles")
	b := r.Get("opensubtitles")
	assert.Same(t, a, b)

	snap := r.Snapshot()
	assert.Equal(t, StateClosed, snap["opensubtitles"])
}
