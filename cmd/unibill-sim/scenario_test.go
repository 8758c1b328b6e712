package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/unkn0wn-root/unibill"
	"github.com/unkn0wn-root/unibill/provider"
)

func TestParseScenarioDefaults(t *testing.T) {
	sc, err := ParseScenario([]byte(`
providers:
  - name: mem
    available: false
    catalog:
      - sku: gold
        type: subscription
script:
  - op: setup
`))
	require.NoError(t, err)
	require.Equal(t, defaultTimeout, sc.Timeout)
	require.Zero(t, sc.Delay)

	p := sc.Providers[0]
	require.True(t, orTrue(p.Authorised))
	require.False(t, orTrue(p.Available))
	require.Equal(t, []provider.SkuDetails{{SKU: "gold", Type: provider.SkuTypeSubscription}}, p.catalog())
}

func TestParseScenarioDurations(t *testing.T) {
	sc, err := ParseScenario([]byte(`
delay: 250ms
timeout: 2s
providers:
  - name: mem
    latency: 10ms
`))
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, sc.Delay)
	require.Equal(t, 2*time.Second, sc.Timeout)
	require.Equal(t, 10*time.Millisecond, sc.Providers[0].Latency)
}

func TestParseScenarioRejects(t *testing.T) {
	cases := map[string]string{
		"no providers":    `script: [{op: setup}]`,
		"unnamed":         `providers: [{package: x}]`,
		"duplicate":       `providers: [{name: a}, {name: a}]`,
		"bad sku type":    `providers: [{name: a, catalog: [{sku: x, type: lifetime}]}]`,
		"empty sku":       `providers: [{name: a, catalog: [{title: x}]}]`,
		"bad store":       `providers: [{name: a, cache: {store: memcached}}]`,
		"redis no addr":   `providers: [{name: a, cache: {store: redis}}]`,
		"unknown op":      "providers: [{name: a}]\nscript: [{op: refund}]",
		"purchase no sku": "providers: [{name: a}]\nscript: [{op: purchase}]",
		"details no skus": "providers: [{name: a}]\nscript: [{op: sku_details}]",
		"toggle unknown":  "providers: [{name: a}]\nscript: [{op: unavailable, provider: b}]",
		"no cache":        "providers: [{name: a}]\nscript: [{op: invalidate, provider: a}]",
		"await zero":      "providers: [{name: a}]\nscript: [{op: await_setups}]",
		"not yaml":        `providers: [`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScenario([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestRunBasicScenario(t *testing.T) {
	sc, err := LoadScenario("testdata/basic.yaml")
	require.NoError(t, err)

	sum, err := newRunner(sc, zaptest.NewLogger(t)).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []unibill.SetupStatus{unibill.SetupSuccess, unibill.SetupProviderChanged}, sum.Setups)
	require.Equal(t, "fallback", sum.Active)
	require.Equal(t, map[string]int{
		"sku_details_response/SUCCESS":          2,
		"purchase_response/SUCCESS":             1,
		"consume_response/SUCCESS":              1,
		"purchase_response/BILLING_UNAVAILABLE": 1,
	}, sum.Responses)
}

func TestRunFailsWithoutPurchaseToConsume(t *testing.T) {
	sc, err := ParseScenario([]byte(`
delay: 1ms
timeout: 2s
providers:
  - name: mem
script:
  - op: setup
    await: true
  - op: consume
    sku: coins
`))
	require.NoError(t, err)

	_, err = newRunner(sc, zaptest.NewLogger(t)).Run(context.Background())
	require.ErrorContains(t, err, "no purchase")
}

func TestRunTimesOut(t *testing.T) {
	sc, err := ParseScenario([]byte(`
timeout: 50ms
providers:
  - name: mem
    available: false
script:
  - op: setup
  - op: purchase
    sku: coins
`))
	require.NoError(t, err)

	_, err = newRunner(sc, zaptest.NewLogger(t)).Run(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
