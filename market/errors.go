package market

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoPriceAvailable   = errors.New("no price available")
	ErrStalePrice         = errors.New("stale price")
	ErrUnknownExchange    = errors.New("unknown exchange")
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// StalePriceError 所有加权交易所的最新报价都已过期；Age 为其中最新一笔的年龄。
type StalePriceError struct {
	Age time.Duration
}

func (e *StalePriceError) Error() string {
	return fmt.Sprintf("stale price: latest tick is %s old", e.Age)
}

func (e *StalePriceError) Is(target error) bool {
	return target == ErrStalePrice
}
