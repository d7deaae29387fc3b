package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stablesats/market"
	"stablesats/unit"
)

// BitfinexSubscribe {"event":"subscribe","channel":"ticker","symbol":"tBTCUSD"}
type BitfinexSubscribe struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
}

func NewBitfinexSubscribe(symbol string) BitfinexSubscribe {
	return BitfinexSubscribe{Event: "subscribe", Channel: "ticker", Symbol: symbol}
}

// ParseBitfinexTicker 解析 v2 ticker 推送 [CHAN_ID,[BID,BID_SIZE,ASK,ASK_SIZE,...]]。
// 推送不带时间戳，使用接收时间。事件对象与心跳 [CHAN_ID,"hb"] 返回 nil。
func ParseBitfinexTicker(raw []byte, received time.Time) ([]market.PriceTick, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, nil
	}
	var frame []json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, err
	}
	if len(frame) < 2 || len(frame[1]) == 0 || frame[1][0] != '[' {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(frame[1]))
	dec.UseNumber()
	var fields []json.Number
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("bitfinex ticker: %w", err)
	}
	if len(fields) < 4 {
		return nil, fmt.Errorf("bitfinex ticker: expected >= 4 fields, got %d", len(fields))
	}
	bid, err := decimal.NewFromString(fields[0].String())
	if err != nil {
		return nil, fmt.Errorf("bitfinex bid: %w", err)
	}
	ask, err := decimal.NewFromString(fields[2].String())
	if err != nil {
		return nil, fmt.Errorf("bitfinex ask: %w", err)
	}
	return []market.PriceTick{{
		Source:     market.Bitfinex,
		Bid:        unit.CentsPerSatFromUSDPerBTC(bid),
		Ask:        unit.CentsPerSatFromUSDPerBTC(ask),
		ObservedAt: received.UTC(),
	}}, nil
}
