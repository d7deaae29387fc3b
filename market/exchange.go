package market

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ExchangeID 行情来源交易所，闭集枚举。
type ExchangeID uint8

const (
	OKEx ExchangeID = iota + 1
	Bitfinex
)

// Exchanges 全部已支持交易所，顺序固定。
var Exchanges = []ExchangeID{OKEx, Bitfinex}

func (id ExchangeID) String() string {
	switch id {
	case OKEx:
		return "okex"
	case Bitfinex:
		return "bitfinex"
	default:
		return fmt.Sprintf("exchange(%d)", uint8(id))
	}
}

func (id ExchangeID) Valid() bool {
	return id == OKEx || id == Bitfinex
}

// ParseExchangeID 大小写不敏感。
func ParseExchangeID(s string) (ExchangeID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "okex", "okx":
		return OKEx, nil
	case "bitfinex":
		return Bitfinex, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownExchange, s)
	}
}

func (id ExchangeID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownExchange, uint8(id))
	}
	return []byte(id.String()), nil
}

func (id *ExchangeID) UnmarshalText(b []byte) error {
	v, err := ParseExchangeID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// ExchangeWeights 每个交易所的聚合权重；缺省或为 0 表示不参与聚合。
type ExchangeWeights struct {
	OKEx     *decimal.Decimal `yaml:"okex"`
	Bitfinex *decimal.Decimal `yaml:"bitfinex"`
}

// Weight 返回交易所权重，未配置时返回 0。
func (w ExchangeWeights) Weight(id ExchangeID) decimal.Decimal {
	var p *decimal.Decimal
	switch id {
	case OKEx:
		p = w.OKEx
	case Bitfinex:
		p = w.Bitfinex
	}
	if p == nil {
		return decimal.Zero
	}
	return *p
}

// Validate 权重不能为负，且至少一个为正。
func (w ExchangeWeights) Validate() error {
	var total decimal.Decimal
	for _, id := range Exchanges {
		v := w.Weight(id)
		if v.IsNegative() {
			return fmt.Errorf("weight for %s must be >= 0, got %s", id, v)
		}
		total = total.Add(v)
	}
	if !total.IsPositive() {
		return fmt.Errorf("at least one exchange weight must be > 0")
	}
	return nil
}
