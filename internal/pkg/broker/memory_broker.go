package broker

import (
	"context"
	log "log/slog"
	"sync"
)

// MemoryBroker 单进程实现，用于测试和单实例部署
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	buffer int
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subs:   make(map[string]map[*memorySubscription]struct{}),
		buffer: 64,
	}
}

// Publish 订阅方缓冲满时丢弃，与 Redis Pub/Sub 的至多一次语义一致
func (s *MemoryBroker) Publish(_ context.Context, topic string, payload []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sub := range s.subs[topic] {
		sub.deliver(topic, payload)
	}
	return nil
}

func (s *MemoryBroker) Subscribe(_ context.Context, topics ...string) (Subscription, error) {
	sub := &memorySubscription{
		broker: s,
		topics: topics,
		out:    make(chan []byte, s.buffer),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range topics {
		if s.subs[t] == nil {
			s.subs[t] = make(map[*memorySubscription]struct{})
		}
		s.subs[t][sub] = struct{}{}
	}
	return sub, nil
}

// SubscriberCount 当前主题订阅数
func (s *MemoryBroker) SubscriberCount(topic string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs[topic])
}

func (s *MemoryBroker) remove(sub *memorySubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range sub.topics {
		delete(s.subs[t], sub)
		if len(s.subs[t]) == 0 {
			delete(s.subs, t)
		}
	}
}

type memorySubscription struct {
	broker *MemoryBroker
	topics []string
	out    chan []byte

	mu     sync.Mutex
	closed bool
}

func (s *memorySubscription) deliver(topic string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- payload:
	default:
		log.Warn("subscription buffer full, message dropped", "topic", topic)
	}
}

func (s *memorySubscription) C() <-chan []byte {
	return s.out
}

func (s *memorySubscription) Close() error {
	s.broker.remove(s)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
	return nil
}
