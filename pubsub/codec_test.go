package pubsub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stablesats/market"
	"stablesats/unit"
)

func sampleTick() market.PriceTick {
	return market.PriceTick{
		Source:     market.Bitfinex,
		Bid:        unit.CentsPerSatFromUSDPerBTC(decimal.RequireFromString("49000")),
		Ask:        unit.CentsPerSatFromUSDPerBTC(decimal.RequireFromString("51000")),
		ObservedAt: time.Date(2024, 5, 1, 12, 0, 0, 500, time.UTC),
	}
}

func TestEncodeWireFormat(t *testing.T) {
	b, err := Encode(sampleTick())
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"exchange":"bitfinex","bid":"0.049","ask":"0.051","timestamp":"2024-05-01T12:00:00.0000005Z"}`,
		string(b))
}

func TestDecodeAcceptsPublishedPayload(t *testing.T) {
	raw := []byte(`{"exchange":"okex","bid":"0.0499","ask":"0.0501","timestamp":"2024-05-01T12:00:00Z"}`)
	tk, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, market.OKEx, tk.Source)
	assert.Equal(t, "0.05", tk.Mid().String())
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), tk.ObservedAt.UTC())
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":         `nope`,
		"unknown exchange": `{"exchange":"kraken","bid":"1","ask":"1","timestamp":"2024-05-01T12:00:00Z"}`,
		"crossed":          `{"exchange":"okex","bid":"2","ask":"1","timestamp":"2024-05-01T12:00:00Z"}`,
		"zero bid":         `{"exchange":"okex","bid":"0","ask":"1","timestamp":"2024-05-01T12:00:00Z"}`,
		"missing time":     `{"exchange":"okex","bid":"1","ask":"1"}`,
	} {
		_, err := Decode([]byte(raw))
		assert.Error(t, err, name)
	}
}

func TestEncodeRejectsInvalidTick(t *testing.T) {
	tk := sampleTick()
	tk.ObservedAt = time.Time{}
	_, err := Encode(tk)
	assert.Error(t, err)
}

type captureSink struct {
	ticks []market.PriceTick
	err   error
}

func (s *captureSink) PublishTick(_ context.Context, t market.PriceTick) error {
	s.ticks = append(s.ticks, t)
	return s.err
}

type decodeErrCounter struct{ n int }

func (d *decodeErrCounter) RecordBridgeDecodeError() { d.n++ }

func TestBridgeDeliver(t *testing.T) {
	sink := &captureSink{}
	rec := &decodeErrCounter{}
	b := NewBridge(nil, "price", sink, nil, rec)

	payload, err := Encode(sampleTick())
	require.NoError(t, err)
	b.deliver(context.Background(), payload)
	b.deliver(context.Background(), []byte(`{"exchange":"okex"}`))

	require.Len(t, sink.ticks, 1)
	assert.Equal(t, market.Bitfinex, sink.ticks[0].Source)
	assert.Equal(t, 1, rec.n)

	// sink 错误只记录日志
	sink.err = errors.New("closed")
	b.deliver(context.Background(), payload)
	assert.Len(t, sink.ticks, 2)
}
