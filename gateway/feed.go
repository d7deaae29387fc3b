package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"stablesats/infrastructure/logger"
	"stablesats/market"
)

// Parser 把一条 WS 原始消息解析为零或多个 tick；非行情消息返回 nil, nil。
type Parser func(raw []byte, received time.Time) ([]market.PriceTick, error)

// ConnRecorder 连接事件指标，由 monitor.Monitor 实现。
type ConnRecorder interface {
	RecordFeedConnect(exchange string)
	RecordFeedDisconnect(exchange string)
}

// WSFeed 连接交易所公共行情 WS，订阅后把解析出的 tick 推给 Sink；断线后按 ReconnectDelay 重连。
type WSFeed struct {
	Exchange       market.ExchangeID
	URL            string
	Subscribe      interface{} // 连接后发送的订阅消息（JSON）
	Parse          Parser
	Sink           market.TickSink
	Dialer         *websocket.Dialer
	ReadTimeout    time.Duration
	ReconnectDelay time.Duration
	Clock          market.Clock
	Log            *logger.Logger
	Recorder       ConnRecorder
}

func (f *WSFeed) defaults() {
	if f.Dialer == nil {
		f.Dialer = websocket.DefaultDialer
	}
	if f.ReadTimeout <= 0 {
		f.ReadTimeout = 30 * time.Second
	}
	if f.ReconnectDelay <= 0 {
		f.ReconnectDelay = 5 * time.Second
	}
	if f.Clock == nil {
		f.Clock = market.SystemClock
	}
	if f.Log == nil {
		f.Log = logger.NewNop()
	}
}

// Run 持续运行直到 ctx 结束。
func (f *WSFeed) Run(ctx context.Context) error {
	f.defaults()
	if f.Parse == nil || f.Sink == nil {
		return fmt.Errorf("%s feed: parser and sink are required", f.Exchange)
	}
	for {
		err := f.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		f.Log.LogError(err, map[string]interface{}{
			"exchange": f.Exchange.String(),
			"action":   "feed_read",
		})
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.ReconnectDelay):
		}
	}
}

func (f *WSFeed) runOnce(ctx context.Context) error {
	conn, _, err := f.Dialer.DialContext(ctx, f.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.URL, err)
	}
	defer conn.Close()
	if f.Recorder != nil {
		f.Recorder.RecordFeedConnect(f.Exchange.String())
		defer f.Recorder.RecordFeedDisconnect(f.Exchange.String())
	}

	// ctx 结束时关闭连接以打断阻塞读
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	if f.Subscribe != nil {
		if err := conn.WriteJSON(f.Subscribe); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}
	f.Log.Info(fmt.Sprintf("%s feed connected to %s", f.Exchange, f.URL))

	for {
		_ = conn.SetReadDeadline(time.Now().Add(f.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ticks, err := f.Parse(msg, f.Clock.Now())
		if err != nil {
			f.Log.LogTick("parse_error", f.Exchange.String(), map[string]interface{}{"error": err.Error()})
			continue
		}
		for _, t := range ticks {
			if err := f.Sink.PublishTick(ctx, t); err != nil {
				f.Log.LogError(err, map[string]interface{}{
					"exchange": f.Exchange.String(),
					"action":   "publish_tick",
				})
			}
		}
	}
}
