package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stablesats/market"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

const validConfig = `
env: dev
priceServer:
  weights:
    okex: 1.0
  priceCache:
    staleAfter: 30s
  fees:
    baseFeeRate: 0.001
    immediateFeeRate: 0.01
    delayedFeeRate: 0.1
pubsub:
  enabled: true
  addr: redis:6379
  channel: price
`

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Env != "dev" || cfg.PriceServer.PriceCache.StaleAfter != 30*time.Second {
		t.Fatalf("unexpected cfg values: %+v", cfg)
	}
	assert.Equal(t, "1", cfg.PriceServer.Weights.Weight(market.OKEx).String())
	assert.True(t, cfg.PriceServer.Weights.Weight(market.Bitfinex).IsZero())
	assert.Equal(t, "0.1", cfg.PriceServer.Fees.DelayedFeeRate.String())
	// defaults survive for omitted sections
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "BTC-USD-SWAP", cfg.Feeds.OKEx.Instrument)
	assert.Equal(t, 64, cfg.PriceServer.Stream.Buffer)
	assert.Equal(t, 5*time.Second, cfg.PriceServer.PriceCache.MaxClockSkew)

	q := cfg.PriceServer.Quote()
	assert.Equal(t, cfg.PriceServer.PriceCache, q.PriceCache)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, validConfig)
	t.Setenv("STABLESATS_REDIS_PASSWORD", "env-secret")
	t.Setenv("STABLESATS_REDIS_ADDR", "other:6379")
	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PubSub.Password != "env-secret" || cfg.PubSub.Addr != "other:6379" {
		t.Fatalf("env overrides not applied: %+v", cfg.PubSub)
	}
}

func TestValidate(t *testing.T) {
	err := Validate(AppConfig{})
	if err == nil {
		t.Fatalf("expected error for empty config")
	}
}

func TestLoadRejectsInvalidPricing(t *testing.T) {
	cases := map[string]string{
		"negative fee": `
env: dev
priceServer:
  weights: {okex: 1}
  fees: {baseFeeRate: -0.001}
`,
		"combined fee >= 1": `
env: dev
priceServer:
  weights: {okex: 1}
  fees: {baseFeeRate: 0.5, delayedFeeRate: 0.5}
`,
		"all weights zero": `
env: dev
priceServer:
  weights: {okex: 0, bitfinex: 0}
`,
		"zero staleness": `
env: dev
priceServer:
  weights: {okex: 1}
  priceCache: {staleAfter: 0s}
`,
		"negative clock skew": `
env: dev
priceServer:
  weights: {okex: 1}
  priceCache: {staleAfter: 30s, maxClockSkew: -1s}
`,
		"feed without url": `
env: dev
priceServer:
  weights: {okex: 1}
feeds:
  okex: {enabled: true, url: ""}
`,
	}
	for name, content := range cases {
		_, err := Load(writeTempConfig(t, content))
		assert.Error(t, err, name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
