package gateway

import (
	"stablesats/config"
	"stablesats/infrastructure/logger"
	"stablesats/market"
)

// BuildFeeds 根据配置构建已启用的行情源（仅构建，不发起连接）。
func BuildFeeds(cfg config.FeedsConfig, sink market.TickSink, log *logger.Logger, rec ConnRecorder) []*WSFeed {
	if log == nil {
		log = logger.NewNop()
	}
	var feeds []*WSFeed
	if cfg.OKEx.Enabled {
		feeds = append(feeds, &WSFeed{
			Exchange:       market.OKEx,
			URL:            cfg.OKEx.URL,
			Subscribe:      NewOKExSubscribe(cfg.OKEx.Instrument),
			Parse:          ParseOKExTicker,
			Sink:           sink,
			ReconnectDelay: cfg.OKEx.ReconnectDelay,
			Log:            log.Named("okex"),
			Recorder:       rec,
		})
	}
	if cfg.Bitfinex.Enabled {
		feeds = append(feeds, &WSFeed{
			Exchange:       market.Bitfinex,
			URL:            cfg.Bitfinex.URL,
			Subscribe:      NewBitfinexSubscribe(cfg.Bitfinex.Instrument),
			Parse:          ParseBitfinexTicker,
			Sink:           sink,
			ReconnectDelay: cfg.Bitfinex.ReconnectDelay,
			Log:            log.Named("bitfinex"),
			Recorder:       rec,
		})
	}
	return feeds
}
