package service

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/pkg/broker"
	"Helpdock/internal/pkg/kafka"
	"context"
	log "log/slog"

	"github.com/goccy/go-json"
)

// EventEmitter 领域事件出口，生产环境为 Kafka 生产者
type EventEmitter interface {
	Emit(ctx context.Context, evt *kafka.Event) error
}

// NopEmitter 未配置 Kafka 时使用
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, *kafka.Event) error { return nil }

// emit 事件丢失不影响主流程
func emit(ctx context.Context, emitter EventEmitter, evt *kafka.Event) {
	if emitter == nil {
		return
	}
	if err := emitter.Emit(ctx, evt); err != nil {
		log.ErrorContext(ctx, "emit event failed", "type", evt.Type, "err", err)
	}
}

// publish 实时推送失败只记日志，客户端重连后会重新拉取快照
func publish(ctx context.Context, b broker.Broker, topic string, evt *dto.BusEvent) {
	if b == nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.ErrorContext(ctx, "marshal bus event failed", "err", err)
		return
	}
	if err = b.Publish(ctx, topic, data); err != nil {
		log.ErrorContext(ctx, "publish bus event failed", "topic", topic, "type", evt.Type, "err", err)
	}
}
