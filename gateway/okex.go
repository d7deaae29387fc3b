package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"stablesats/market"
	"stablesats/unit"
)

// OKExArg 订阅参数。
type OKExArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

// OKExSubscribe {"op":"subscribe","args":[{"channel":"tickers","instId":"BTC-USD-SWAP"}]}
type OKExSubscribe struct {
	Op   string    `json:"op"`
	Args []OKExArg `json:"args"`
}

// OKExTickerMessage 对应 tickers 频道推送。
type OKExTickerMessage struct {
	Event string         `json:"event"`
	Arg   OKExArg        `json:"arg"`
	Data  []OKExTickData `json:"data"`
}

type OKExTickData struct {
	InstID string `json:"instId"`
	BidPx  string `json:"bidPx"`
	AskPx  string `json:"askPx"`
	Ts     string `json:"ts"`
}

func NewOKExSubscribe(instID string) OKExSubscribe {
	return OKExSubscribe{Op: "subscribe", Args: []OKExArg{{Channel: "tickers", InstID: instID}}}
}

// ParseOKExTicker 解析 tickers 推送；价格为 USD/BTC，时间戳为交易所毫秒时间。
// 事件消息（subscribe/error）返回 nil。
func ParseOKExTicker(raw []byte, _ time.Time) ([]market.PriceTick, error) {
	var msg OKExTickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if msg.Event != "" || msg.Arg.Channel != "tickers" {
		return nil, nil
	}
	out := make([]market.PriceTick, 0, len(msg.Data))
	for _, d := range msg.Data {
		bid, err := decimal.NewFromString(d.BidPx)
		if err != nil {
			return nil, fmt.Errorf("okex bidPx %q: %w", d.BidPx, err)
		}
		ask, err := decimal.NewFromString(d.AskPx)
		if err != nil {
			return nil, fmt.Errorf("okex askPx %q: %w", d.AskPx, err)
		}
		ms, err := strconv.ParseInt(d.Ts, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("okex ts %q: %w", d.Ts, err)
		}
		out = append(out, market.PriceTick{
			Source:     market.OKEx,
			Bid:        unit.CentsPerSatFromUSDPerBTC(bid),
			Ask:        unit.CentsPerSatFromUSDPerBTC(ask),
			ObservedAt: time.UnixMilli(ms).UTC(),
		})
	}
	return out, nil
}
