// Package fee 按结算档位对中间价加减费率。
package fee

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"stablesats/unit"
)

var ErrInvalidFeeConfiguration = errors.New("invalid fee configuration")

// Tier 结算档位。
type Tier int

const (
	Immediate Tier = iota
	Delayed
)

func (t Tier) String() string {
	switch t {
	case Immediate:
		return "immediate"
	case Delayed:
		return "delayed"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

func ParseTier(s string) (Tier, error) {
	switch s {
	case "immediate":
		return Immediate, nil
	case "delayed", "future":
		return Delayed, nil
	default:
		return 0, fmt.Errorf("unknown tier %q", s)
	}
}

// Direction 客户方向：Buy 加价，Sell 减价。
type Direction int

const (
	Buy Direction = iota
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

func ParseDirection(s string) (Direction, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// Config 三个相互独立的非负费率；实际价差 = base + 档位费率。
type Config struct {
	BaseFeeRate      decimal.Decimal `yaml:"baseFeeRate"`
	ImmediateFeeRate decimal.Decimal `yaml:"immediateFeeRate"`
	DelayedFeeRate   decimal.Decimal `yaml:"delayedFeeRate"`
}

func DefaultConfig() Config {
	return Config{
		BaseFeeRate:      decimal.RequireFromString("0.0005"),
		ImmediateFeeRate: decimal.RequireFromString("0.0005"),
		DelayedFeeRate:   decimal.RequireFromString("0.0007"),
	}
}

// Validate 费率必须非负，且任一档位的合计费率 < 1（否则卖出价非正）。
func (c Config) Validate() error {
	rates := map[string]decimal.Decimal{
		"baseFeeRate":      c.BaseFeeRate,
		"immediateFeeRate": c.ImmediateFeeRate,
		"delayedFeeRate":   c.DelayedFeeRate,
	}
	for name, r := range rates {
		if r.IsNegative() {
			return fmt.Errorf("%w: %s must be >= 0, got %s", ErrInvalidFeeConfiguration, name, r)
		}
	}
	for _, tier := range []Tier{Immediate, Delayed} {
		total := c.BaseFeeRate.Add(c.tierRate(tier))
		if total.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: combined %s fee rate %s must be < 1", ErrInvalidFeeConfiguration, tier, total)
		}
	}
	return nil
}

func (c Config) tierRate(t Tier) decimal.Decimal {
	if t == Delayed {
		return c.DelayedFeeRate
	}
	return c.ImmediateFeeRate
}

// Calculator 纯函数，无共享状态，可并发调用。
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{cfg: cfg}, nil
}

// FeeRate 返回 base + 档位费率。
func (c *Calculator) FeeRate(t Tier) (decimal.Decimal, error) {
	if t != Immediate && t != Delayed {
		return decimal.Zero, fmt.Errorf("unknown tier %d", int(t))
	}
	return c.cfg.BaseFeeRate.Add(c.cfg.tierRate(t)), nil
}

// Multiplier Buy 为 1+f，Sell 为 1-f；1-f 非正时返回 ErrInvalidFeeConfiguration。
func (c *Calculator) Multiplier(d Direction, t Tier) (decimal.Decimal, error) {
	f, err := c.FeeRate(t)
	if err != nil {
		return decimal.Zero, err
	}
	one := decimal.NewFromInt(1)
	switch d {
	case Buy:
		return one.Add(f), nil
	case Sell:
		m := one.Sub(f)
		if !m.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: combined %s fee rate %s leaves no sell price", ErrInvalidFeeConfiguration, t, f)
		}
		return m, nil
	default:
		return decimal.Zero, fmt.Errorf("unknown direction %d", int(d))
	}
}

// BuyRate mid*(1+base+tier)。
func (c *Calculator) BuyRate(mid unit.CentsPerSat, t Tier) (unit.CentsPerSat, error) {
	return c.Rate(mid, Buy, t)
}

// SellRate mid*(1-base-tier)。
func (c *Calculator) SellRate(mid unit.CentsPerSat, t Tier) (unit.CentsPerSat, error) {
	return c.Rate(mid, Sell, t)
}

func (c *Calculator) Rate(mid unit.CentsPerSat, d Direction, t Tier) (unit.CentsPerSat, error) {
	m, err := c.Multiplier(d, t)
	if err != nil {
		return unit.CentsPerSat{}, err
	}
	return mid.Mul(m), nil
}
