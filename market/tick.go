package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stablesats/unit"
)

var half = decimal.New(5, -1)

// PriceTick 单个交易所的一次 bid/ask 观测，构造后不可变。
type PriceTick struct {
	Source     ExchangeID
	Bid        unit.CentsPerSat
	Ask        unit.CentsPerSat
	ObservedAt time.Time
}

// Mid 返回 (bid+ask)/2。
func (t PriceTick) Mid() unit.CentsPerSat {
	return unit.NewCentsPerSat(t.Bid.Decimal().Add(t.Ask.Decimal()).Mul(half))
}

// Valid 报价为正、未交叉且带时间戳。
func (t PriceTick) Valid() bool {
	if !t.Source.Valid() || t.ObservedAt.IsZero() {
		return false
	}
	if !t.Bid.IsPositive() || !t.Ask.IsPositive() {
		return false
	}
	return t.Bid.Cmp(t.Ask) <= 0
}

// TickSink 接收行情的一端（进程内广播或 Redis）。
type TickSink interface {
	PublishTick(ctx context.Context, t PriceTick) error
}
