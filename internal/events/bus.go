package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ncnews/ncnews-backend/internal/metrics"
)

const subscriptionBuffer = 64

// Publisher is the side of the bus the domain layer depends on.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscription delivers events until Close is called or its context ends.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Bus publishes events to Redis when available and falls back to an
// in-process hub otherwise.
type Bus struct {
	client *redis.Client
	hub    *hub

	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

// NewBus connects to Redis at addr. An empty addr, or a server that does not
// answer a ping, selects in-memory mode.
func NewBus(addr string, logger *zap.SugaredLogger, m *metrics.Metrics) *Bus {
	if addr == "" {
		logger.Infow("Event bus running in-memory", "reason", "no redis address configured")
		return NewMemoryBus(logger, m)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnw("Redis unavailable; event bus running in-memory", "addr", addr, "error", err)
		client.Close()
		return NewMemoryBus(logger, m)
	}

	return &Bus{client: client, logger: logger, metrics: m}
}

func NewMemoryBus(logger *zap.SugaredLogger, m *metrics.Metrics) *Bus {
	return &Bus{hub: newHub(), logger: logger, metrics: m}
}

func (b *Bus) IsInMemoryMode() bool {
	return b.client == nil
}

func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if b.client == nil {
		b.hub.publish(ev)
		b.recordPublished(ctx, ev.Type)
		b.logger.Debugw("Published to in-memory bus", "type", ev.Type, "id", ev.ID)
		return nil
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("event marshal error: %w", err)
	}

	if err := b.client.Publish(ctx, Channel(ev.Type), data).Err(); err != nil {
		return fmt.Errorf("event publish error: %w", err)
	}
	b.recordPublished(ctx, ev.Type)
	return nil
}

// Subscribe receives every event type.
func (b *Bus) Subscribe(ctx context.Context) (Subscription, error) {
	if b.client == nil {
		return b.hub.subscribe(ctx, subscriptionBuffer), nil
	}

	ps := b.client.PSubscribe(ctx, ChannelPattern)
	// Receive the subscription confirmation so connection errors surface here.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("event subscribe error: %w", err)
	}

	sub := &redisSubscription{
		ps:   ps,
		ch:   make(chan Event, subscriptionBuffer),
		done: make(chan struct{}),
	}
	go sub.relay(ctx, b.logger)
	return sub, nil
}

func (b *Bus) Ping(ctx context.Context) error {
	if b.client != nil {
		return b.client.Ping(ctx).Err()
	}
	return nil
}

// Close ends open subscriptions and releases the Redis client.
func (b *Bus) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	b.hub.close()
	return nil
}

func (b *Bus) recordPublished(ctx context.Context, eventType string) {
	if b.metrics != nil {
		b.metrics.RecordEvent(ctx, eventType)
	}
}

type redisSubscription struct {
	ps   *redis.PubSub
	ch   chan Event
	done chan struct{}
	once sync.Once
}

func (s *redisSubscription) relay(ctx context.Context, logger *zap.SugaredLogger) {
	defer close(s.ch)

	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warnw("Dropping malformed event", "channel", msg.Channel, "error", err)
				continue
			}
			if ev.Type == "" {
				ev.Type = TypeFromChannel(msg.Channel)
			}

			select {
			case s.ch <- ev:
			default:
			}
		}
	}
}

func (s *redisSubscription) Events() <-chan Event {
	return s.ch
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
