package kafka

import (
	"Helpdock/internal/api/config"
	"Helpdock/internal/pkg/es"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理所有 Kafka 消费者
type ConsumerManager struct {
	indexConsumer sarama.ConsumerGroup
	indexHandler  sarama.ConsumerGroupHandler
	topic         string
}

// NewConsumerManager 构造函数
func NewConsumerManager(cfg config.KafkaConfig, esRepo es.MessageRepo) (*ConsumerManager, error) {
	indexConsumer, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.IndexerGroupID, newSaramaConfig(cfg))
	if err != nil {
		return nil, err
	}

	return &ConsumerManager{
		indexConsumer: indexConsumer,
		indexHandler:  NewMessageIndexHandler(esRepo),
		topic:         cfg.EventTopic,
	}, nil
}

// Start 启动所有消费者，阻塞到 ctx 结束
func (m *ConsumerManager) Start(ctx context.Context) error {
	go func() {
		for err := range m.indexConsumer.Errors() {
			log.Error("Error from consumer group", "err", err)
		}
	}()

	go func() {
		log.Info("Message index consumer started", "topic", m.topic)
		for {
			if err := m.indexConsumer.Consume(ctx, []string{m.topic}, m.indexHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.indexConsumer.Close(); err != nil {
		log.Error("Failed to close index consumer", "err", err)
	}
	return nil
}
