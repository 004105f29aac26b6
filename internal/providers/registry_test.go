package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sublarr/subctl/internal/breaker"
)

func TestRegistryEnabledOrdersByPreferenceThenExcludesOpenBreakers(t *testing.T) {
	breakers := breaker.NewRegistry(1, time.Minute)
	reg := NewRegistry(breakers, nil)

	second := &fakeProvider{name: "second"}
	first := &fakeProvider{name: "first"}
	reg.Register(second)
	reg.Register(first)

	enabled := reg.Enabled()
	require.Len(t, enabled, 2)
	assert.Equal(t, "second", enabled[0].Metadata().Name, "registration order sets preference rank")

	breakers.Get("second").RecordFailure()
	enabled = reg.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "first", enabled[0].Metadata().Name)
}

func TestRegistryReplacePluginsKeepsBuiltins(t *testing.T) {
	breakers := breaker.NewRegistry(3, time.Minute)
	reg := NewRegistry(breakers, nil)

	reg.Register(&fakeProvider{name: "builtin", builtIn: true})
	reg.Register(&fakeProvider{name: "old-plugin"})

	reg.ReplacePlugins([]Provider{&fakeProvider{name: "new-plugin"}})

	_, ok := reg.Get("old-plugin")
	assert.False(t, ok)
	_, ok = reg.Get("builtin")
	assert.True(t, ok)
	_, ok = reg.Get("new-plugin")
	assert.True(t, ok)
}

func TestRegistryResetBreaker(t *testing.T) {
	breakers := breaker.NewRegistry(1, time.Hour)
	reg := NewRegistry(breakers, nil)
	reg.Register(&fakeProvider{name: "p"})

	breakers.Get("p").RecordFailure()
	assert.Equal(t, breaker.StateOpen, breakers.Get("p").State())

	reg.ResetBreaker("p")
	assert.Equal(t, breaker.StateClosed, breakers.Get("p").State())
}
