package kafka

import (
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/es"
	"context"
	log "log/slog"
	"strings"

	"github.com/IBM/sarama"
)

// MessageIndexHandler 把消息事件同步到 ES，供工作区内检索
type MessageIndexHandler struct {
	esRepo es.MessageRepo
}

func NewMessageIndexHandler(esRepo es.MessageRepo) *MessageIndexHandler {
	return &MessageIndexHandler{esRepo: esRepo}
}

func (s *MessageIndexHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("message index consumer setup")
	return nil
}

func (s *MessageIndexHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("message index consumer cleanup")
	return nil
}

func (s *MessageIndexHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	return pullMessageBatch(session, claim, s.handle)
}

func (s *MessageIndexHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	evt, err := ToEvent(msg)
	if err != nil {
		// 坏消息重试无意义
		log.ErrorContext(ctx, "unmarshal event error", "offset", msg.Offset, "err", err)
		return nil
	}

	switch evt.Type {
	case consts.EventMessageCreated:
		// 图片正文是 data URI，不进索引
		if evt.Text == "" || strings.HasPrefix(evt.Text, consts.ImageDataURIPrefix) {
			return nil
		}
		return s.esRepo.IndexMessage(ctx, &es.MessageES{
			MessageID:      evt.MessageID,
			ConversationID: evt.ConversationID,
			WorkspaceID:    evt.WorkspaceID,
			Sender:         evt.Sender,
			Text:           evt.Text,
			CreatedAt:      evt.OccurredAt,
		})
	case consts.EventWorkspaceDeleted:
		return s.esRepo.DeleteByWorkspace(ctx, evt.WorkspaceID)
	default:
		return nil
	}
}
