package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stablesats/market"
)

func TestParseOKExTicker(t *testing.T) {
	raw := []byte(`{
		"arg":{"channel":"tickers","instId":"BTC-USD-SWAP"},
		"data":[{"instId":"BTC-USD-SWAP","bidPx":"49000.5","askPx":"51000","ts":"1700000000123"}]
	}`)
	ticks, err := ParseOKExTicker(raw, time.Time{})
	require.NoError(t, err)
	require.Len(t, ticks, 1)

	tk := ticks[0]
	assert.Equal(t, market.OKEx, tk.Source)
	assert.Equal(t, "0.0490005", tk.Bid.String())
	assert.Equal(t, "0.051", tk.Ask.String())
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), tk.ObservedAt)
	assert.True(t, tk.Valid())
}

func TestParseOKExIgnoresEvents(t *testing.T) {
	for _, raw := range []string{
		`{"event":"subscribe","arg":{"channel":"tickers","instId":"BTC-USD-SWAP"}}`,
		`{"event":"error","code":"60012","msg":"Invalid request"}`,
		`{"arg":{"channel":"trades","instId":"BTC-USD-SWAP"},"data":[]}`,
	} {
		ticks, err := ParseOKExTicker([]byte(raw), time.Time{})
		assert.NoError(t, err, raw)
		assert.Empty(t, ticks, raw)
	}
}

func TestParseOKExRejectsBadNumbers(t *testing.T) {
	raw := []byte(`{"arg":{"channel":"tickers"},"data":[{"bidPx":"x","askPx":"1","ts":"1"}]}`)
	_, err := ParseOKExTicker(raw, time.Time{})
	assert.Error(t, err)

	raw = []byte(`{"arg":{"channel":"tickers"},"data":[{"bidPx":"1","askPx":"1","ts":"soon"}]}`)
	_, err = ParseOKExTicker(raw, time.Time{})
	assert.Error(t, err)

	_, err = ParseOKExTicker([]byte(`not json`), time.Time{})
	assert.Error(t, err)
}

func TestParseBitfinexTicker(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := []byte(`[17470,[49000,12.5,51000,10.1,-120,-0.002,50000,1200,51500,48000]]`)
	ticks, err := ParseBitfinexTicker(raw, now)
	require.NoError(t, err)
	require.Len(t, ticks, 1)

	tk := ticks[0]
	assert.Equal(t, market.Bitfinex, tk.Source)
	assert.Equal(t, "0.049", tk.Bid.String())
	assert.Equal(t, "0.051", tk.Ask.String())
	assert.Equal(t, now, tk.ObservedAt)
	assert.Equal(t, "0.05", tk.Mid().String())
}

func TestParseBitfinexIgnoresControlFrames(t *testing.T) {
	for _, raw := range []string{
		`{"event":"info","version":2}`,
		`{"event":"subscribed","channel":"ticker","chanId":17470,"symbol":"tBTCUSD"}`,
		`[17470,"hb"]`,
		``,
	} {
		ticks, err := ParseBitfinexTicker([]byte(raw), time.Now())
		assert.NoError(t, err, raw)
		assert.Empty(t, ticks, raw)
	}
}

func TestParseBitfinexShortFrame(t *testing.T) {
	_, err := ParseBitfinexTicker([]byte(`[1,[49000,1]]`), time.Now())
	assert.Error(t, err)
}
