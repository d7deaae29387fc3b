package pubsub

import (
	"encoding/json"
	"fmt"
	"time"

	"stablesats/market"
	"stablesats/unit"
)

// TickPayload 频道消息格式。bid/ask 为 cents/sat 十进制字符串。
type TickPayload struct {
	Exchange  market.ExchangeID `json:"exchange"`
	Bid       unit.CentsPerSat  `json:"bid"`
	Ask       unit.CentsPerSat  `json:"ask"`
	Timestamp time.Time         `json:"timestamp"`
}

func Encode(t market.PriceTick) ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("encode tick: invalid tick from %s", t.Source)
	}
	return json.Marshal(TickPayload{
		Exchange:  t.Source,
		Bid:       t.Bid,
		Ask:       t.Ask,
		Timestamp: t.ObservedAt.UTC(),
	})
}

// Decode 解析并校验；不合法的 tick 返回错误。
func Decode(raw []byte) (market.PriceTick, error) {
	var p TickPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return market.PriceTick{}, fmt.Errorf("decode tick: %w", err)
	}
	t := market.PriceTick{
		Source:     p.Exchange,
		Bid:        p.Bid,
		Ask:        p.Ask,
		ObservedAt: p.Timestamp,
	}
	if !t.Valid() {
		return market.PriceTick{}, fmt.Errorf("decode tick: invalid tick %s", raw)
	}
	return t, nil
}
