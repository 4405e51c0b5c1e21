package service

import (
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/mongo"
	"Helpdock/internal/pkg/redis"
	"context"
	"errors"
	log "log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AggregateService 工作区聚合计数：统一用 $inc，定期按真实数据校准
type AggregateService interface {
	// Apply 失败只记日志，不影响触发它的写操作
	Apply(ctx context.Context, workspaceID primitive.ObjectID, delta mongo.StatsDelta)
	MarkDirty(ctx context.Context, workspaceID primitive.ObjectID)
	Recount(ctx context.Context, workspaceID primitive.ObjectID) error
	// RecountDirty 校准所有被标记的工作区，返回处理数量
	RecountDirty(ctx context.Context) (int, error)
}

type aggregateServiceImpl struct {
	workspaceRepo mongo.WorkspaceRepo
	convRepo      mongo.ConversationRepo
	messageRepo   mongo.MessageRepo
}

func NewAggregateService(
	workspaceRepo mongo.WorkspaceRepo,
	convRepo mongo.ConversationRepo,
	messageRepo mongo.MessageRepo,
) AggregateService {
	return &aggregateServiceImpl{
		workspaceRepo: workspaceRepo,
		convRepo:      convRepo,
		messageRepo:   messageRepo,
	}
}

func (s *aggregateServiceImpl) Apply(ctx context.Context, workspaceID primitive.ObjectID, delta mongo.StatsDelta) {
	if delta.IsZero() {
		return
	}
	if err := s.workspaceRepo.IncStats(ctx, workspaceID, delta); err != nil {
		log.ErrorContext(ctx, "apply workspace stats delta failed",
			"workspace_id", workspaceID.Hex(),
			"delta", delta,
			"err", err)
	}
	s.MarkDirty(ctx, workspaceID)
}

func (s *aggregateServiceImpl) MarkDirty(ctx context.Context, workspaceID primitive.ObjectID) {
	if err := redis.SAdd(ctx, consts.WorkspaceDirtyKey, workspaceID.Hex()); err != nil {
		log.WarnContext(ctx, "mark workspace dirty failed", "workspace_id", workspaceID.Hex(), "err", err)
	}
}

// Recount 用会话与消息的真实数量覆盖聚合值
func (s *aggregateServiceImpl) Recount(ctx context.Context, workspaceID primitive.ObjectID) error {
	recount, err := s.convRepo.Recount(ctx, workspaceID)
	if err != nil {
		return err
	}
	messages, err := s.messageRepo.CountByWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	return s.workspaceRepo.SetStats(ctx, workspaceID, mongo.WorkspaceStats{
		ConversationCount: recount.Conversations,
		MessageCount:      messages,
		UnresolvedCount:   recount.Unresolved,
		UnreadCount:       recount.Unread,
	})
}

func (s *aggregateServiceImpl) RecountDirty(ctx context.Context) (int, error) {
	processingKey := consts.WorkspaceDirtyKey + ":processing"

	// 上一轮中途失败留下的集合优先处理
	ids, err := redis.GetSet(ctx, processingKey)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		if err = redis.Rename(ctx, consts.WorkspaceDirtyKey, processingKey); err != nil {
			if strings.Contains(err.Error(), "no such key") {
				return 0, nil
			}
			return 0, err
		}
		if ids, err = redis.GetSet(ctx, processingKey); err != nil {
			return 0, err
		}
	}

	done := 0
	var failed []interface{}
	for _, hex := range ids {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			continue
		}
		if err = s.Recount(ctx, id); err != nil {
			// 工作区已删除则无需再校准
			if errors.Is(err, mongo.ErrNotFound) {
				continue
			}
			log.ErrorContext(ctx, "recount workspace stats failed", "workspace_id", hex, "err", err)
			failed = append(failed, hex)
			continue
		}
		done++
	}

	// 失败的放回待校准集合，下一轮重试
	if len(failed) > 0 {
		if err = redis.SAdd(ctx, consts.WorkspaceDirtyKey, failed...); err != nil {
			log.ErrorContext(ctx, "requeue failed workspaces failed", "count", len(failed), "err", err)
			return done, err
		}
	}
	if err = redis.DeleteKey(ctx, processingKey); err != nil {
		log.ErrorContext(ctx, "delete workspace processing set failed", "err", err)
	}
	return done, nil
}
