package pubsub

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stablesats/config"
	"stablesats/infrastructure/logger"
	"stablesats/market"
)

// NewClient 创建 Redis 客户端并 Ping 校验连接。
func NewClient(ctx context.Context, cfg config.PubSubConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// RedisPublisher 把 tick 发布到 Redis 频道，实现 market.TickSink。
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) PublishTick(ctx context.Context, t market.PriceTick) error {
	b, err := Encode(t)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// DecodeErrorRecorder 由 monitor.Monitor 实现。
type DecodeErrorRecorder interface {
	RecordBridgeDecodeError()
}

// Bridge 订阅 Redis 频道，把解码后的 tick 转发给本地 Sink。
type Bridge struct {
	rdb      *redis.Client
	channel  string
	sink     market.TickSink
	log      *logger.Logger
	recorder DecodeErrorRecorder
}

func NewBridge(rdb *redis.Client, channel string, sink market.TickSink, log *logger.Logger, rec DecodeErrorRecorder) *Bridge {
	if log == nil {
		log = logger.NewNop()
	}
	return &Bridge{rdb: rdb, channel: channel, sink: sink, log: log, recorder: rec}
}

// Run 阻塞直到 ctx 结束或订阅通道关闭。
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.log.Info(fmt.Sprintf("pubsub bridge subscribed to %s", b.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.deliver(ctx, []byte(msg.Payload))
		}
	}
}

func (b *Bridge) deliver(ctx context.Context, payload []byte) {
	t, err := Decode(payload)
	if err != nil {
		if b.recorder != nil {
			b.recorder.RecordBridgeDecodeError()
		}
		b.log.LogError(err, map[string]interface{}{"action": "pubsub_decode", "channel": b.channel})
		return
	}
	if err := b.sink.PublishTick(ctx, t); err != nil {
		b.log.LogError(err, map[string]interface{}{"action": "pubsub_forward", "exchange": t.Source.String()})
	}
}
