package unibill

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/unibill/provider"
)

func TestNewConfigurationDefaults(t *testing.T) {
	p := newFake("one", true, true)
	cfg, err := NewConfiguration(Config{Providers: []provider.Provider{p}})
	require.NoError(t, err)

	require.Equal(t, DefaultRequestDelay, cfg.SubsequentRequestDelay())
	require.False(t, cfg.SkipUnauthorised())
	require.False(t, cfg.AutoRecover())
	require.Nil(t, cfg.Listener())
	require.IsType(t, NopLogger{}, cfg.log)
	require.IsType(t, NopHooks{}, cfg.hooks)
	require.True(t, cfg.valid())
}

func TestNewConfigurationValidation(t *testing.T) {
	cases := []struct {
		name string
		in   Config
	}{
		{"no providers", Config{}},
		{"nil provider", Config{Providers: []provider.Provider{nil}}},
		{"unnamed provider", Config{Providers: []provider.Provider{newFake("", true, true)}}},
		{"negative delay", Config{Providers: []provider.Provider{newFake("one", true, true)}, SubsequentRequestDelay: -time.Second}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfiguration(tc.in)
			require.Error(t, err)
		})
	}
}

func TestNewConfigurationDropsDuplicates(t *testing.T) {
	a := newFake("one", true, true)
	dup := newFake("one", false, false)
	b := newFake("two", true, true)

	cfg, err := NewConfiguration(Config{
		Providers:              []provider.Provider{a, b, dup},
		SubsequentRequestDelay: time.Second,
		SkipUnauthorised:       true,
		AutoRecover:            true,
	})
	require.NoError(t, err)

	got := cfg.Providers()
	require.Len(t, got, 2)
	require.Same(t, a, got[0])
	require.Same(t, b, got[1])
	require.Equal(t, time.Second, cfg.SubsequentRequestDelay())
	require.True(t, cfg.SkipUnauthorised())
	require.True(t, cfg.AutoRecover())

	// callers get a copy
	got[0] = nil
	require.Same(t, a, cfg.Providers()[0])
}

func TestZeroConfigurationIsInvalid(t *testing.T) {
	require.False(t, Configuration{}.valid())
}
