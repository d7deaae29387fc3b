package config

import (
	"errors"
	"fmt"
)

// Validate ensures required fields are present and pricing parameters are sane.
// Invalid weights or fees are rejected here, before any tick is processed.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	ps := cfg.PriceServer
	if err := ps.Weights.Validate(); err != nil {
		return fmt.Errorf("priceServer.weights: %w", err)
	}
	if ps.PriceCache.StaleAfter <= 0 {
		return errors.New("priceServer.priceCache.staleAfter must be > 0")
	}
	if ps.PriceCache.MaxClockSkew < 0 {
		return errors.New("priceServer.priceCache.maxClockSkew must be >= 0")
	}
	if err := ps.Fees.Validate(); err != nil {
		return fmt.Errorf("priceServer.fees: %w", err)
	}
	if ps.Stream.Buffer < 0 {
		return errors.New("priceServer.stream.buffer must be >= 0")
	}
	if ps.Stream.Retention < 0 {
		return errors.New("priceServer.stream.retention must be >= 0")
	}
	for name, fc := range map[string]FeedConfig{"okex": cfg.Feeds.OKEx, "bitfinex": cfg.Feeds.Bitfinex} {
		if !fc.Enabled {
			continue
		}
		if fc.URL == "" || fc.Instrument == "" {
			return fmt.Errorf("feeds.%s url/instrument is required when enabled", name)
		}
		if fc.ReconnectDelay < 0 {
			return fmt.Errorf("feeds.%s reconnectDelay must be >= 0", name)
		}
	}
	if cfg.PubSub.Enabled && (cfg.PubSub.Addr == "" || cfg.PubSub.Channel == "") {
		return errors.New("pubsub.addr/channel is required when enabled")
	}
	if cfg.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	return nil
}
