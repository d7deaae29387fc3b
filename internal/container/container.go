package container

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/redis/go-redis/v9"

	"stablesats/config"
	"stablesats/gateway"
	"stablesats/infrastructure/logger"
	"stablesats/infrastructure/monitor"
	"stablesats/internal/server"
	"stablesats/market"
	"stablesats/pubsub"
	"stablesats/quote"
)

// Container 依赖注入容器，管理所有组件的生命周期
type Container struct {
	// 配置
	cfg *config.AppConfig

	// 基础设施
	logger  *logger.Logger
	monitor *monitor.Monitor
	redis   *redis.Client

	// 行情
	publisher *market.Publisher
	feeds     []*gateway.WSFeed
	bridge    *pubsub.Bridge

	// 核心服务
	quotes *quote.Service

	// HTTP服务器
	httpServer *http.Server

	// 生命周期管理
	lifecycle *LifecycleManager
	stopOnce  sync.Once
	stopErr   error
}

// New 创建新的Container实例
func New(configPath string) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(cfg), nil
}

// NewWithConfig 使用已校验的配置创建容器
func NewWithConfig(cfg config.AppConfig) *Container {
	return &Container{
		cfg:       &cfg,
		lifecycle: NewLifecycleManager(),
	}
}

// Build 构建所有组件
func (c *Container) Build(ctx context.Context) error {
	if err := c.buildInfrastructure(ctx); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}

	if err := c.buildCoreServices(); err != nil {
		return fmt.Errorf("build core services failed: %w", err)
	}

	c.buildFeeds()
	c.registerLifecycleComponents()
	c.logger.Info("container built successfully")
	return nil
}

func (c *Container) buildInfrastructure(ctx context.Context) error {
	var err error
	c.logger, err = logger.New(c.cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}

	c.monitor = monitor.New(monitor.DefaultConfig())

	if c.cfg.PubSub.Enabled {
		c.redis, err = pubsub.NewClient(ctx, c.cfg.PubSub)
		if err != nil {
			return err
		}
		c.logger.Info(fmt.Sprintf("redis initialized at %s", c.cfg.PubSub.Addr))
	}

	c.logger.Info("infrastructure built")
	return nil
}

func (c *Container) buildCoreServices() error {
	stream := c.cfg.PriceServer.Stream
	c.publisher = market.NewPublisher(stream.Buffer, stream.Retention)

	var err error
	c.quotes, err = quote.New(c.cfg.PriceServer.Quote(),
		quote.WithLogger(c.logger.Named("quote")),
		quote.WithRecorder(c.monitor),
	)
	if err != nil {
		return fmt.Errorf("create quote service failed: %w", err)
	}

	c.logger.Info("core services built")
	return nil
}

// buildFeeds 启用 pubsub 时行情源写 Redis，由 Bridge 转入本地流；否则直接写本地流。
func (c *Container) buildFeeds() {
	var sink market.TickSink = c.publisher
	if c.redis != nil {
		sink = pubsub.NewRedisPublisher(c.redis, c.cfg.PubSub.Channel)
		c.bridge = pubsub.NewBridge(c.redis, c.cfg.PubSub.Channel, c.publisher, c.logger.Named("pubsub"), c.monitor)
	}
	c.feeds = gateway.BuildFeeds(c.cfg.Feeds, sink, c.logger, c.monitor)
	c.logger.Info(fmt.Sprintf("%d price feeds built", len(c.feeds)))
}

func (c *Container) registerLifecycleComponents() {
	// 先订阅再接入行情，避免丢失首批 tick
	sub := c.publisher.Subscribe()
	c.lifecycle.Register(&runnerComponent{
		name:   "quote_listener",
		logger: c.logger,
		run: func(ctx context.Context) error {
			defer sub.Close()
			return c.quotes.Run(ctx, sub)
		},
		health: c.quotes.Healthy,
	})

	if c.bridge != nil {
		c.lifecycle.Register(&runnerComponent{name: "pubsub_bridge", logger: c.logger, run: c.bridge.Run})
	}
	for _, f := range c.feeds {
		c.lifecycle.Register(&runnerComponent{name: f.Exchange.String() + "_feed", logger: c.logger, run: f.Run})
	}

	mux := server.New(c.quotes, c.monitor.Handler(), c.logger.Named("http"))
	c.lifecycle.Register(&httpServerComponent{
		name:    "http_server",
		handler: mux,
		addr:    c.cfg.Server.Addr,
		logger:  c.logger,
		server:  &c.httpServer,
	})
}

func (c *Container) Start(ctx context.Context) error {
	c.logger.Info("starting container...")

	if err := c.lifecycle.StartAll(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}

	notifyReady(c.logger)
	c.logger.Info("container started")
	return nil
}

// RunWatchdog 按 systemd WatchdogSec 发送心跳，仅在有新鲜价格时发送。
func (c *Container) RunWatchdog(ctx context.Context) {
	runWatchdog(ctx, c.logger, c.HealthCheck)
}

// Stop 可在 Build 中途失败后调用，也可重复调用。
func (c *Container) Stop() error {
	c.stopOnce.Do(func() { c.stopErr = c.stop() })
	return c.stopErr
}

func (c *Container) stop() error {
	lg := c.logger
	if lg == nil {
		lg = logger.NewNop()
	}
	lg.Info("stopping container...")
	notifyStopping(lg)

	var stopErr error
	if err := c.lifecycle.StopAll(); err != nil {
		lg.LogError(err, map[string]interface{}{"action": "stop"})
		stopErr = err
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			lg.LogError(err, map[string]interface{}{"action": "close_redis"})
		}
		c.redis = nil
	}

	if c.logger != nil {
		c.logger.Close()
	}
	return stopErr
}

func (c *Container) HealthCheck() error {
	return c.lifecycle.CheckHealth()
}

// Quotes 暴露报价服务，供嵌入方直接调用
func (c *Container) Quotes() *quote.Service {
	return c.quotes
}
