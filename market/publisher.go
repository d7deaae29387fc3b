package market

import (
	"context"
	"sync"
	"time"
)

const defaultSubscriptionBuffer = 64

type envelope struct {
	tick PriceTick
	at   time.Time
}

// Publisher 一个轻量的 tick 广播器。
// 每个订阅者有固定大小的缓冲；缓冲满时丢弃最旧的一条，订阅者落后后总能拿到最新行情。
type Publisher struct {
	mu        sync.RWMutex
	subs      map[*Subscription]struct{}
	buffer    int
	retention time.Duration
	clock     Clock
}

// NewPublisher buffer<=0 使用默认缓冲；retention<=0 表示不按时间过滤。
func NewPublisher(buffer int, retention time.Duration) *Publisher {
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}
	return &Publisher{
		subs:      make(map[*Subscription]struct{}),
		buffer:    buffer,
		retention: retention,
		clock:     SystemClock,
	}
}

// SetClock 仅用于测试。
func (p *Publisher) SetClock(c Clock) {
	p.mu.Lock()
	p.clock = c
	p.mu.Unlock()
}

func (p *Publisher) Subscribe() *Subscription {
	s := &Subscription{
		ch:   make(chan envelope, p.buffer),
		done: make(chan struct{}),
		pub:  p,
	}
	p.mu.Lock()
	p.subs[s] = struct{}{}
	p.mu.Unlock()
	return s
}

// Publish 非阻塞广播。
func (p *Publisher) Publish(t PriceTick) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	env := envelope{tick: t, at: p.clock.Now()}
	for s := range p.subs {
		select {
		case s.ch <- env:
			continue
		default:
		}
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- env:
		default:
		}
	}
}

// PublishTick 实现 TickSink。
func (p *Publisher) PublishTick(_ context.Context, t PriceTick) error {
	p.Publish(t)
	return nil
}

func (p *Publisher) unsubscribe(s *Subscription) {
	p.mu.Lock()
	delete(p.subs, s)
	p.mu.Unlock()
}

// Subscription 单个订阅者的接收端。
type Subscription struct {
	ch   chan envelope
	done chan struct{}
	once sync.Once
	pub  *Publisher
}

// Next 阻塞等待下一条 tick；超过 retention 的积压会被跳过。
func (s *Subscription) Next(ctx context.Context) (PriceTick, error) {
	for {
		select {
		case <-ctx.Done():
			return PriceTick{}, ctx.Err()
		case <-s.done:
			return PriceTick{}, ErrSubscriptionClosed
		case env := <-s.ch:
			if s.expired(env) {
				continue
			}
			return env.tick, nil
		}
	}
}

func (s *Subscription) expired(env envelope) bool {
	s.pub.mu.RLock()
	retention, clock := s.pub.retention, s.pub.clock
	s.pub.mu.RUnlock()
	if retention <= 0 {
		return false
	}
	return clock.Now().Sub(env.at) > retention
}

// Close 取消订阅，可重复调用。
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.pub.unsubscribe(s)
		close(s.done)
	})
}
