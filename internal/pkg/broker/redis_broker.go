package broker

import (
	"context"
	log "log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBroker 多实例之间通过 Redis Pub/Sub 扇出
type RedisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb}
}

func (s *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	return s.rdb.Publish(ctx, topic, payload).Err()
}

func (s *RedisBroker) Subscribe(ctx context.Context, topics ...string) (Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, topics...)
	// 等待 SUBSCRIBE 回执，确保返回后订阅已生效
	for range topics {
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return nil, err
		}
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) pump() {
	defer close(s.out)
	in := s.pubsub.Channel()
	for {
		select {
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- []byte(msg.Payload):
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) C() <-chan []byte {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
		if err != nil {
			log.Warn("close redis subscription failed", "err", err)
		}
	})
	return err
}
