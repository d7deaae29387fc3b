// Package unit 定义聪/美分两种互不混用的金额类型以及定点汇率。
package unit

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	SatsPerBTC  = 100_000_000
	CentsPerUSD = 100
)

// ErrAmountOutOfRange 换算结果超出 int64。
var ErrAmountOutOfRange = errors.New("converted amount out of range")

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// Sats 聪，整数。
type Sats int64

// UsdCents 美分，整数。
type UsdCents int64

func (s Sats) String() string     { return fmt.Sprintf("%d sats", int64(s)) }
func (c UsdCents) String() string { return fmt.Sprintf("%d cents", int64(c)) }

// CentsPerSat 美分/聪 汇率，内部为十进制定点数。
type CentsPerSat struct {
	d decimal.Decimal
}

func NewCentsPerSat(d decimal.Decimal) CentsPerSat {
	return CentsPerSat{d: d}
}

// CentsPerSatFromUSDPerBTC 把交易所报价（USD/BTC）换算为 美分/聪：px*100/1e8。
func CentsPerSatFromUSDPerBTC(px decimal.Decimal) CentsPerSat {
	return CentsPerSat{d: px.Shift(-6)}
}

// CentsPerSatFromCentsPerBTC 把 美分/BTC 换算为 美分/聪。
func CentsPerSatFromCentsPerBTC(cents decimal.Decimal) CentsPerSat {
	return CentsPerSat{d: cents.Shift(-8)}
}

func ParseCentsPerSat(s string) (CentsPerSat, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return CentsPerSat{}, fmt.Errorf("parse cents per sat %q: %w", s, err)
	}
	return CentsPerSat{d: d}, nil
}

func (r CentsPerSat) Decimal() decimal.Decimal { return r.d }
func (r CentsPerSat) IsPositive() bool         { return r.d.IsPositive() }
func (r CentsPerSat) IsZero() bool             { return r.d.IsZero() }
func (r CentsPerSat) Equal(o CentsPerSat) bool { return r.d.Equal(o.d) }
func (r CentsPerSat) Cmp(o CentsPerSat) int    { return r.d.Cmp(o.d) }
func (r CentsPerSat) String() string           { return r.d.String() }

// Mul 按系数缩放汇率，用于费率加减价。
func (r CentsPerSat) Mul(m decimal.Decimal) CentsPerSat {
	return CentsPerSat{d: r.d.Mul(m)}
}

// InexactFloat64 只用于指标上报。
func (r CentsPerSat) InexactFloat64() float64 { return r.d.InexactFloat64() }

func (r CentsPerSat) MarshalJSON() ([]byte, error) { return r.d.MarshalJSON() }

func (r *CentsPerSat) UnmarshalJSON(b []byte) error { return r.d.UnmarshalJSON(b) }

// ToCents 按 rate 换算为美分，向零截断。
func (s Sats) ToCents(rate CentsPerSat) (UsdCents, error) {
	v, err := toInt64(decimal.NewFromInt(int64(s)).Mul(rate.d).Truncate(0))
	return UsdCents(v), err
}

// ToSats 按 rate 的倒数换算为聪，并乘以 adj（费率系数），向零截断。
// rate 非正时无法换算，返回 0。
func (c UsdCents) ToSats(rate CentsPerSat, adj decimal.Decimal) (Sats, error) {
	if !rate.d.IsPositive() {
		return 0, nil
	}
	num := decimal.NewFromInt(int64(c)).Mul(adj)
	q, _ := num.QuoRem(rate.d, 0)
	v, err := toInt64(q)
	return Sats(v), err
}

// toInt64 d 必须已是整数；IntPart 对越界值会回绕，必须先比较。
func toInt64(d decimal.Decimal) (int64, error) {
	if d.GreaterThan(maxAmount) || d.LessThan(minAmount) {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, d.String())
	}
	return d.IntPart(), nil
}
