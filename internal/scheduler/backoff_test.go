package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffPolicyNextIsBoundedAndPositive(t *testing.T) {
	p := BackoffPolicy{Base: 100 * time.Millisecond, Cap: 500 * time.Millisecond}

	for _, searchCount := range []int{0, 1, 2, 5, 20} {
		d := p.Next(searchCount)
		require.Positive(t, d, "searchCount=%d", searchCount)
		// Jitter (RandomizationFactor 0.3) never pushes the result above Cap.
		require.LessOrEqual(t, d, p.Cap, "searchCount=%d", searchCount)
	}
}

func TestBackoffPolicyDefaults(t *testing.T) {
	p := BackoffPolicy{}
	d := p.Next(1)
	require.Positive(t, d)
}
