package kafka

import (
	"Helpdock/internal/api/config"
	"Helpdock/internal/pkg/logger"
	"context"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// Producer 领域事件生产者
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(kafkaCfg config.KafkaConfig) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(kafkaCfg.Brokers, newSaramaConfig(kafkaCfg))
	if err != nil {
		return nil, err
	}
	return &Producer{producer: producer, topic: kafkaCfg.EventTopic}, nil
}

// Emit 同步发送，带上 trace_id 方便串联消费端日志
func (p *Producer) Emit(ctx context.Context, evt *Event) error {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(evt.Key()),
		Value: sarama.ByteEncoder(value),
	}
	if traceID, ok := ctx.Value(logger.TraceIDKey).(string); ok && traceID != "" {
		msg.Headers = []sarama.RecordHeader{{Key: []byte(logger.TraceIDKey), Value: []byte(traceID)}}
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to send event", "type", evt.Type, "err", err)
		return err
	}

	log.DebugContext(ctx, "Event sent", "type", evt.Type, "partition", partition, "offset", offset)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
