package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stablesats/fee"
	"stablesats/infrastructure/logger"
	"stablesats/market"
	"stablesats/quote"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string            `yaml:"env"`
	Log         logger.Config     `yaml:"log"`
	PriceServer PriceServerConfig `yaml:"priceServer"`
	Feeds       FeedsConfig       `yaml:"feeds"`
	PubSub      PubSubConfig      `yaml:"pubsub"`
	Server      ServerConfig      `yaml:"server"`
}

type PriceServerConfig struct {
	Weights    market.ExchangeWeights `yaml:"weights"`
	PriceCache market.CacheConfig     `yaml:"priceCache"`
	Fees       fee.Config             `yaml:"fees"`
	Stream     StreamConfig           `yaml:"stream"`
}

// StreamConfig 进程内 tick 广播的缓冲与保留窗口。
type StreamConfig struct {
	Buffer    int           `yaml:"buffer"`
	Retention time.Duration `yaml:"retention"`
}

type FeedsConfig struct {
	OKEx     FeedConfig `yaml:"okex"`
	Bitfinex FeedConfig `yaml:"bitfinex"`
}

// FeedConfig 单个交易所 WS 行情源。Instrument 为 OKEx instId 或 Bitfinex symbol。
type FeedConfig struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url"`
	Instrument     string        `yaml:"instrument"`
	ReconnectDelay time.Duration `yaml:"reconnectDelay"`
}

type PubSubConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Quote 转换为报价服务配置。
func (p PriceServerConfig) Quote() quote.Config {
	return quote.Config{
		Weights:    p.Weights,
		PriceCache: p.PriceCache,
		Fees:       p.Fees,
	}
}

// Default returns a config with the same defaults Load applies to missing fields.
func Default() AppConfig {
	return AppConfig{
		Log: logger.DefaultConfig(),
		PriceServer: PriceServerConfig{
			PriceCache: market.DefaultCacheConfig(),
			Fees:       fee.DefaultConfig(),
			Stream:     StreamConfig{Buffer: 64, Retention: 2 * time.Second},
		},
		Feeds: FeedsConfig{
			OKEx: FeedConfig{
				URL:            "wss://ws.okx.com:8443/ws/v5/public",
				Instrument:     "BTC-USD-SWAP",
				ReconnectDelay: 5 * time.Second,
			},
			Bitfinex: FeedConfig{
				URL:            "wss://api-pub.bitfinex.com/ws/2",
				Instrument:     "tBTCUSD",
				ReconnectDelay: 5 * time.Second,
			},
		},
		PubSub: PubSubConfig{
			Addr:    "localhost:6379",
			Channel: "stablesats:price",
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads .env (if present) and config, then overrides
// sensitive fields from env vars.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("STABLESATS_REDIS_PASSWORD"); v != "" {
		cfg.PubSub.Password = v
	}
	if v := os.Getenv("STABLESATS_REDIS_ADDR"); v != "" {
		cfg.PubSub.Addr = v
	}
	return cfg, Validate(cfg)
}
