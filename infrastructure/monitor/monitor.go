package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器
type Monitor struct {
	registry *prometheus.Registry

	// 行情指标
	ticks    *prometheus.CounterVec
	tickLag  *prometheus.GaugeVec
	midRate  prometheus.Gauge
	feedConn *prometheus.CounterVec

	// 报价指标
	quotes *prometheus.CounterVec

	// 系统指标
	bridgeErrors prometheus.Counter
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "stablesats",
		Subsystem: "price",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Monitor{
		registry: reg,

		ticks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ticks_total",
			Help:      "收到的行情 tick 数，result=applied|dropped",
		}, []string{"exchange", "result"}),
		tickLag: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "tick_lag_seconds",
			Help:      "写入缓存时 tick 的年龄（秒）",
		}, []string{"exchange"}),
		midRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "mid_rate",
			Help:      "最近一次聚合中间价（美分/聪）",
		}),
		feedConn: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "feed_connections_total",
			Help:      "行情 WS 连接事件，event=connect|disconnect",
		}, []string{"exchange", "event"}),
		quotes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "quotes_total",
			Help:      "报价查询数，result=ok|no_price|stale|out_of_range|error",
		}, []string{"kind", "result"}),
		bridgeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "pubsub_decode_errors_total",
			Help:      "Redis 行情消息解码失败数",
		}),
	}
}

// RecordTick 记录 tick 是否写入缓存
func (m *Monitor) RecordTick(exchange string, applied bool, lag time.Duration) {
	result := "dropped"
	if applied {
		result = "applied"
		m.tickLag.WithLabelValues(exchange).Set(lag.Seconds())
	}
	m.ticks.WithLabelValues(exchange, result).Inc()
}

// RecordQuote 记录报价查询结果
func (m *Monitor) RecordQuote(kind, result string) {
	m.quotes.WithLabelValues(kind, result).Inc()
}

// UpdateMidRate 更新中间价
func (m *Monitor) UpdateMidRate(value float64) {
	m.midRate.Set(value)
}

func (m *Monitor) RecordFeedConnect(exchange string) {
	m.feedConn.WithLabelValues(exchange, "connect").Inc()
}

func (m *Monitor) RecordFeedDisconnect(exchange string) {
	m.feedConn.WithLabelValues(exchange, "disconnect").Inc()
}

func (m *Monitor) RecordBridgeDecodeError() {
	m.bridgeErrors.Inc()
}

// Handler 返回HTTP handler用于暴露指标
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回底层registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
