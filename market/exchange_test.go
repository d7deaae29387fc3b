package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseExchangeID(t *testing.T) {
	for in, want := range map[string]ExchangeID{"okex": OKEx, "OKX": OKEx, " Bitfinex ": Bitfinex} {
		got, err := ParseExchangeID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseExchangeID("kraken")
	assert.ErrorIs(t, err, ErrUnknownExchange)

	_, err = ExchangeID(42).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownExchange)
}

func TestExchangeWeightsYAML(t *testing.T) {
	var w ExchangeWeights
	require.NoError(t, yaml.Unmarshal([]byte("okex: 0.75\n"), &w))
	assert.Equal(t, "0.75", w.Weight(OKEx).String())
	assert.True(t, w.Weight(Bitfinex).IsZero())
	assert.NoError(t, w.Validate())

	require.NoError(t, yaml.Unmarshal([]byte("okex: 0\nbitfinex: 0\n"), &w))
	assert.Error(t, w.Validate())
}
