// Package quote 把价格缓存与费率计算绑定在一起，回答聪/美分换算查询。
package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stablesats/fee"
	"stablesats/infrastructure/logger"
	"stablesats/market"
	"stablesats/unit"
)

// Config 报价服务配置。
type Config struct {
	Weights    market.ExchangeWeights `yaml:"weights"`
	PriceCache market.CacheConfig     `yaml:"priceCache"`
	Fees       fee.Config             `yaml:"fees"`
}

// Recorder 报价服务上报指标的接口，由 monitor.Monitor 实现。
type Recorder interface {
	RecordTick(exchange string, applied bool, lag time.Duration)
	RecordQuote(kind, result string)
	UpdateMidRate(value float64)
}

// Service 持有价格缓存，后台监听 tick 流，前台同步回答换算查询。
type Service struct {
	cache *market.PriceCache
	calc  *fee.Calculator
	clock market.Clock
	log   *logger.Logger
	rec   Recorder
}

type Option func(*Service)

func WithClock(c market.Clock) Option    { return func(s *Service) { s.clock = c } }
func WithLogger(l *logger.Logger) Option { return func(s *Service) { s.log = l } }
func WithRecorder(r Recorder) Option     { return func(s *Service) { s.rec = r } }

// New 校验配置并创建冷启动的服务；费率或权重非法时直接失败。
func New(cfg Config, opts ...Option) (*Service, error) {
	s := &Service{
		clock: market.SystemClock,
		log:   logger.NewNop(),
		rec:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	calc, err := fee.NewCalculator(cfg.Fees)
	if err != nil {
		return nil, err
	}
	cache, err := market.NewPriceCache(cfg.PriceCache, cfg.Weights, s.clock)
	if err != nil {
		return nil, fmt.Errorf("price cache: %w", err)
	}
	s.calc = calc
	s.cache = cache
	return s, nil
}

// Cache 返回内部缓存（只读用途）。
func (s *Service) Cache() *market.PriceCache { return s.cache }

// Run 消费订阅直到 ctx 结束或订阅关闭，把每个 tick 写入缓存。
func (s *Service) Run(ctx context.Context, sub *market.Subscription) error {
	defer sub.Close()
	for {
		t, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, market.ErrSubscriptionClosed) {
				return nil
			}
			return err
		}
		s.apply(t)
	}
}

func (s *Service) apply(t market.PriceTick) {
	applied := s.cache.ApplyTick(t)
	s.rec.RecordTick(t.Source.String(), applied, s.clock.Now().Sub(t.ObservedAt))
	if !applied {
		s.log.LogTick("tick_dropped", t.Source.String(), map[string]interface{}{
			"observed_at": t.ObservedAt,
			"bid":         t.Bid.String(),
			"ask":         t.Ask.String(),
		})
		return
	}
	s.log.LogTick("tick_applied", t.Source.String(), map[string]interface{}{
		"observed_at": t.ObservedAt,
		"mid":         t.Mid().String(),
	})
}

// Healthy 没有可用的新鲜价格时返回错误。
func (s *Service) Healthy() error {
	_, err := s.cache.MidRate()
	return err
}

// CentsPerSatExchangeMidRate 返回未加费的聚合中间价。
func (s *Service) CentsPerSatExchangeMidRate() (unit.CentsPerSat, error) {
	mid, err := s.midRate("mid_rate")
	if err != nil {
		return unit.CentsPerSat{}, err
	}
	s.rec.RecordQuote("mid_rate", "ok")
	return mid, nil
}

// CentsFromSats 聪→美分：mid 按方向与档位加减价后乘以数量，向零截断。
func (s *Service) CentsFromSats(sats unit.Sats, d fee.Direction, t fee.Tier) (unit.UsdCents, error) {
	kind := SatsToCents.String()
	mid, err := s.midRate(kind)
	if err != nil {
		return 0, err
	}
	rate, err := s.calc.Rate(mid, d, t)
	if err != nil {
		s.rec.RecordQuote(kind, "error")
		return 0, err
	}
	cents, err := sats.ToCents(rate)
	if err != nil {
		s.rec.RecordQuote(kind, "out_of_range")
		return 0, err
	}
	s.rec.RecordQuote(kind, "ok")
	return cents, nil
}

// SatsFromCents 美分→聪：按 聪/美分（1/mid）计价，同样 Buy 加价、Sell 减价，向零截断。
func (s *Service) SatsFromCents(cents unit.UsdCents, d fee.Direction, t fee.Tier) (unit.Sats, error) {
	kind := CentsToSats.String()
	mid, err := s.midRate(kind)
	if err != nil {
		return 0, err
	}
	m, err := s.calc.Multiplier(d, t)
	if err != nil {
		s.rec.RecordQuote(kind, "error")
		return 0, err
	}
	sats, err := cents.ToSats(mid, m)
	if err != nil {
		s.rec.RecordQuote(kind, "out_of_range")
		return 0, err
	}
	s.rec.RecordQuote(kind, "ok")
	return sats, nil
}

func (s *Service) midRate(kind string) (unit.CentsPerSat, error) {
	mid, err := s.cache.MidRate()
	if err != nil {
		result := "error"
		switch {
		case errors.Is(err, market.ErrNoPriceAvailable):
			result = "no_price"
		case errors.Is(err, market.ErrStalePrice):
			result = "stale"
		}
		s.rec.RecordQuote(kind, result)
		s.log.LogQuote("quote_unavailable", map[string]interface{}{
			"kind":   kind,
			"reason": err.Error(),
		})
		return unit.CentsPerSat{}, err
	}
	s.rec.UpdateMidRate(mid.InexactFloat64())
	return mid, nil
}

type nopRecorder struct{}

func (nopRecorder) RecordTick(string, bool, time.Duration) {}
func (nopRecorder) RecordQuote(string, string)             {}
func (nopRecorder) UpdateMidRate(float64)                  {}
