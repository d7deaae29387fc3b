package market

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stablesats/unit"
)

// midRatePrecision 加权平均除法保留的小数位。
const midRatePrecision = 24

// CacheConfig 价格缓存配置。
// MaxClockSkew 允许 tick 时间戳领先本地时钟的上限，<=0 时取 StaleAfter。
type CacheConfig struct {
	StaleAfter   time.Duration `yaml:"staleAfter"`
	MaxClockSkew time.Duration `yaml:"maxClockSkew"`
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{StaleAfter: 30 * time.Second, MaxClockSkew: 5 * time.Second}
}

func (c CacheConfig) clockSkew() time.Duration {
	if c.MaxClockSkew > 0 {
		return c.MaxClockSkew
	}
	return c.StaleAfter
}

type cacheEntry struct {
	mu     sync.RWMutex
	weight decimal.Decimal
	tick   PriceTick
	seen   bool
}

func (e *cacheEntry) snapshot() (PriceTick, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tick, e.seen
}

// EntrySnapshot 单个交易所缓存条目的只读副本。
type EntrySnapshot struct {
	Exchange ExchangeID
	Weight   decimal.Decimal
	Tick     PriceTick
	Seen     bool
}

// PriceCache 维护每个交易所的最新报价，并给出带过期检查的加权中间价。
// 条目表在构造时固定，之后只更新条目内容；每个条目有独立的锁，
// 不同交易所的写入互不阻塞。
type PriceCache struct {
	cfg     CacheConfig
	clock   Clock
	entries map[ExchangeID]*cacheEntry
}

func NewPriceCache(cfg CacheConfig, weights ExchangeWeights, clock Clock) (*PriceCache, error) {
	if cfg.StaleAfter <= 0 {
		return nil, fmt.Errorf("price cache staleAfter must be > 0")
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock
	}
	entries := make(map[ExchangeID]*cacheEntry, len(Exchanges))
	for _, id := range Exchanges {
		entries[id] = &cacheEntry{weight: weights.Weight(id)}
	}
	return &PriceCache{cfg: cfg, clock: clock, entries: entries}, nil
}

// ApplyTick 仅当 tick 比当前条目严格更新时才写入；乱序、重复、畸形的 tick 静默丢弃。
// 时间戳超前本地时钟超过 clockSkew 的 tick 视为畸形，否则它会挡住之后所有真实 tick。
// 返回是否写入。
func (c *PriceCache) ApplyTick(t PriceTick) bool {
	e, ok := c.entries[t.Source]
	if !ok || !t.Valid() {
		return false
	}
	if t.ObservedAt.Sub(c.clock.Now()) > c.cfg.clockSkew() {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seen && !t.ObservedAt.After(e.tick.ObservedAt) {
		return false
	}
	e.tick = t
	e.seen = true
	return true
}

// Latest 返回某交易所缓存的最新 tick。
func (c *PriceCache) Latest(id ExchangeID) (PriceTick, bool) {
	e, ok := c.entries[id]
	if !ok {
		return PriceTick{}, false
	}
	return e.snapshot()
}

// Snapshot 按 Exchanges 顺序返回全部条目。
func (c *PriceCache) Snapshot() []EntrySnapshot {
	out := make([]EntrySnapshot, 0, len(Exchanges))
	for _, id := range Exchanges {
		e := c.entries[id]
		tick, seen := e.snapshot()
		out = append(out, EntrySnapshot{Exchange: id, Weight: e.weight, Tick: tick, Seen: seen})
	}
	return out
}

// StaleAfter 返回过期阈值。
func (c *PriceCache) StaleAfter() time.Duration { return c.cfg.StaleAfter }

// MidRate 对未过期的加权条目求 (bid+ask)/2 的加权平均。
// 从未收到加权交易所的 tick 时返回 ErrNoPriceAvailable；
// 有数据但全部过期时返回 *StalePriceError。
func (c *PriceCache) MidRate() (unit.CentsPerSat, error) {
	now := c.clock.Now()

	var (
		total     decimal.Decimal
		weightSum decimal.Decimal
		seenAny   bool
		youngest  time.Duration = -1
	)
	for _, id := range Exchanges {
		e := c.entries[id]
		if !e.weight.IsPositive() {
			continue
		}
		tick, seen := e.snapshot()
		if !seen {
			continue
		}
		seenAny = true
		age := now.Sub(tick.ObservedAt)
		if age >= c.cfg.StaleAfter {
			if youngest < 0 || age < youngest {
				youngest = age
			}
			continue
		}
		total = total.Add(tick.Mid().Decimal().Mul(e.weight))
		weightSum = weightSum.Add(e.weight)
	}

	if !seenAny {
		return unit.CentsPerSat{}, ErrNoPriceAvailable
	}
	if weightSum.IsZero() {
		return unit.CentsPerSat{}, &StalePriceError{Age: youngest}
	}
	return unit.NewCentsPerSat(total.DivRound(weightSum, midRatePrecision)), nil
}
