package quote

import (
	"fmt"

	"stablesats/fee"
	"stablesats/unit"
)

// Unit 换算方向。
type Unit int

const (
	SatsToCents Unit = iota
	CentsToSats
)

func (u Unit) String() string {
	switch u {
	case SatsToCents:
		return "sats_to_cents"
	case CentsToSats:
		return "cents_to_sats"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

// ParseUnit 接受源单位（sats/cents）或完整写法。
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "sats", "sats_to_cents":
		return SatsToCents, nil
	case "cents", "cents_to_sats":
		return CentsToSats, nil
	default:
		return 0, fmt.Errorf("unknown unit %q", s)
	}
}

// ConversionRequest 通用换算请求；Amount 的单位由 Unit 的源端决定。
type ConversionRequest struct {
	Amount    int64
	Unit      Unit
	Direction fee.Direction
	Tier      fee.Tier
}

// ConversionResult Amount 的单位为 Unit 的目标端。
type ConversionResult struct {
	Amount int64
	Unit   Unit
}

// Convert 按请求分派到 CentsFromSats / SatsFromCents。
func (s *Service) Convert(req ConversionRequest) (ConversionResult, error) {
	switch req.Unit {
	case SatsToCents:
		c, err := s.CentsFromSats(unit.Sats(req.Amount), req.Direction, req.Tier)
		if err != nil {
			return ConversionResult{}, err
		}
		return ConversionResult{Amount: int64(c), Unit: req.Unit}, nil
	case CentsToSats:
		v, err := s.SatsFromCents(unit.UsdCents(req.Amount), req.Direction, req.Tier)
		if err != nil {
			return ConversionResult{}, err
		}
		return ConversionResult{Amount: int64(v), Unit: req.Unit}, nil
	default:
		return ConversionResult{}, fmt.Errorf("unknown unit %d", int(req.Unit))
	}
}

func (s *Service) CentsFromSatsForImmediateBuy(sats unit.Sats) (unit.UsdCents, error) {
	return s.CentsFromSats(sats, fee.Buy, fee.Immediate)
}

func (s *Service) CentsFromSatsForImmediateSell(sats unit.Sats) (unit.UsdCents, error) {
	return s.CentsFromSats(sats, fee.Sell, fee.Immediate)
}

func (s *Service) CentsFromSatsForDelayedBuy(sats unit.Sats) (unit.UsdCents, error) {
	return s.CentsFromSats(sats, fee.Buy, fee.Delayed)
}

func (s *Service) CentsFromSatsForDelayedSell(sats unit.Sats) (unit.UsdCents, error) {
	return s.CentsFromSats(sats, fee.Sell, fee.Delayed)
}

func (s *Service) SatsFromCentsForImmediateBuy(cents unit.UsdCents) (unit.Sats, error) {
	return s.SatsFromCents(cents, fee.Buy, fee.Immediate)
}

func (s *Service) SatsFromCentsForImmediateSell(cents unit.UsdCents) (unit.Sats, error) {
	return s.SatsFromCents(cents, fee.Sell, fee.Immediate)
}

func (s *Service) SatsFromCentsForDelayedBuy(cents unit.UsdCents) (unit.Sats, error) {
	return s.SatsFromCents(cents, fee.Buy, fee.Delayed)
}

func (s *Service) SatsFromCentsForDelayedSell(cents unit.UsdCents) (unit.Sats, error) {
	return s.SatsFromCents(cents, fee.Sell, fee.Delayed)
}
