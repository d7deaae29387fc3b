package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stablesats/config"
	"stablesats/market"
)

type sinkRecorder struct {
	mu    sync.Mutex
	ticks []market.PriceTick
}

func (s *sinkRecorder) PublishTick(_ context.Context, t market.PriceTick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, t)
	return nil
}

func (s *sinkRecorder) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ticks)
}

type connCounter struct {
	mu                   sync.Mutex
	connects, disconnect int
}

func (c *connCounter) RecordFeedConnect(string) {
	c.mu.Lock()
	c.connects++
	c.mu.Unlock()
}

func (c *connCounter) RecordFeedDisconnect(string) {
	c.mu.Lock()
	c.disconnect++
	c.mu.Unlock()
}

func (c *connCounter) get() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects, c.disconnect
}

// tickerServer 校验订阅消息后推送固定帧，然后断开。
func tickerServer(t *testing.T, frames []string, gotSub chan<- map[string]interface{}) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var sub map[string]interface{}
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		select {
		case gotSub <- sub:
		default:
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSFeedPublishesAndReconnects(t *testing.T) {
	gotSub := make(chan map[string]interface{}, 8)
	srv := tickerServer(t, []string{
		`{"event":"subscribe","arg":{"channel":"tickers","instId":"BTC-USD-SWAP"}}`,
		`garbage`,
		`{"arg":{"channel":"tickers","instId":"BTC-USD-SWAP"},"data":[{"bidPx":"49000","askPx":"51000","ts":"1700000000000"}]}`,
	}, gotSub)
	defer srv.Close()

	sink := &sinkRecorder{}
	rec := &connCounter{}
	feed := &WSFeed{
		Exchange:       market.OKEx,
		URL:            wsURL(srv),
		Subscribe:      NewOKExSubscribe("BTC-USD-SWAP"),
		Parse:          ParseOKExTicker,
		Sink:           sink,
		ReconnectDelay: 20 * time.Millisecond,
		Recorder:       rec,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	select {
	case sub := <-gotSub:
		assert.Equal(t, "subscribe", sub["op"])
	case <-time.After(3 * time.Second):
		t.Fatal("no subscribe message received")
	}

	// 服务端每次推送后断开，feed 应重连并再次收到 tick
	require.Eventually(t, func() bool { return sink.len() >= 2 }, 3*time.Second, 10*time.Millisecond)
	connects, _ := rec.get()
	assert.GreaterOrEqual(t, connects, 2)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("feed did not stop on cancel")
	}

	sink.mu.Lock()
	first := sink.ticks[0]
	sink.mu.Unlock()
	assert.Equal(t, market.OKEx, first.Source)
	assert.Equal(t, "0.05", first.Mid().String())
}

func TestWSFeedRequiresParserAndSink(t *testing.T) {
	feed := &WSFeed{Exchange: market.Bitfinex, URL: "ws://127.0.0.1:1"}
	assert.Error(t, feed.Run(context.Background()))
}

func TestBuildFeeds(t *testing.T) {
	cfg := config.Default().Feeds
	cfg.OKEx.Enabled = true
	cfg.Bitfinex.Enabled = false
	feeds := BuildFeeds(cfg, &sinkRecorder{}, nil, nil)
	require.Len(t, feeds, 1)
	assert.Equal(t, market.OKEx, feeds[0].Exchange)
	assert.Equal(t, cfg.OKEx.URL, feeds[0].URL)
	assert.Equal(t, NewOKExSubscribe("BTC-USD-SWAP"), feeds[0].Subscribe)

	cfg.Bitfinex.Enabled = true
	feeds = BuildFeeds(cfg, &sinkRecorder{}, nil, nil)
	require.Len(t, feeds, 2)
	assert.Equal(t, NewBitfinexSubscribe("tBTCUSD"), feeds[1].Subscribe)
}
