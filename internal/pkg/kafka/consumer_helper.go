package kafka

import (
	"Helpdock/internal/pkg/logger"
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

const (
	batchSize    = 32
	batchTimeout = 1 * time.Second
	maxRetry     = 5
)

type LogicFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// pullMessageBatch 拉取一批消息并执行业务逻辑
func pullMessageBatch(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim, logic LogicFunc) error {
	batch := make([]*sarama.ConsumerMessage, 0, batchSize)
	ticker := time.NewTicker(batchTimeout)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				if len(batch) > 0 {
					processBatch(session, batch, logic)
				}
				return nil
			}
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				processBatch(session, batch, logic)
				batch = make([]*sarama.ConsumerMessage, 0, batchSize)
				ticker.Reset(batchTimeout)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				processBatch(session, batch, logic)
				batch = make([]*sarama.ConsumerMessage, 0, batchSize)
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// processBatch 并发处理一批消息，单条重试有上限，超过后记录并跳过
func processBatch(session sarama.ConsumerGroupSession, messages []*sarama.ConsumerMessage, logic LogicFunc) {
	var wg sync.WaitGroup

	for _, msg := range messages {
		wg.Add(1)

		go func(m *sarama.ConsumerMessage) {
			defer wg.Done()
			ctx := messageContext(session.Context(), m)
			retryInterval := 100 * time.Millisecond

			for attempt := 1; ; attempt++ {
				err := logic(ctx, m)
				if err == nil {
					return
				}
				if attempt >= maxRetry {
					log.ErrorContext(ctx, "give up message", "offset", m.Offset, "partition", m.Partition, "err", err)
					return
				}
				log.WarnContext(ctx, "process message error", "attempt", attempt, "err", err)

				select {
				case <-session.Context().Done():
					return
				case <-time.After(retryInterval):
				}
				retryInterval *= 2
				if retryInterval > 5*time.Second {
					retryInterval = 5 * time.Second
				}
			}
		}(msg)
	}

	wg.Wait()

	if len(messages) > 0 {
		session.MarkMessage(messages[len(messages)-1], "")
	}
}

// messageContext 从消息头恢复 trace_id
func messageContext(ctx context.Context, m *sarama.ConsumerMessage) context.Context {
	for _, h := range m.Headers {
		if h != nil && string(h.Key) == logger.TraceIDKey {
			return logger.WithTraceID(ctx, string(h.Value))
		}
	}
	return ctx
}

// ToEvent 将 kafka 消息转换为领域事件
func ToEvent(msg *sarama.ConsumerMessage) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
