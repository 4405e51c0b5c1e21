package job

import (
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/logger"
	"Helpdock/internal/pkg/redis"
	"Helpdock/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// WorkspaceRecountJob 把增量维护的工作区统计按源数据重新校准
type WorkspaceRecountJob struct {
	aggregateSvc service.AggregateService
	lockTTL      time.Duration
}

func NewWorkspaceRecountJob(aggregateSvc service.AggregateService) *WorkspaceRecountJob {
	return &WorkspaceRecountJob{
		aggregateSvc: aggregateSvc,
		lockTTL:      5 * time.Minute,
	}
}

func (s *WorkspaceRecountJob) Run() {
	traceID := "job-recount-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	// 多实例只跑一个
	ok, err := redis.TryLock(ctx, consts.WorkspaceRecountLock, traceID, s.lockTTL, 1)
	if err != nil {
		log.ErrorContext(ctx, "acquire recount lock error", "err", err)
		return
	}
	if !ok {
		log.DebugContext(ctx, "recount already running elsewhere")
		return
	}
	defer redis.UnLock(ctx, consts.WorkspaceRecountLock, traceID)

	start := time.Now()
	n, err := s.aggregateSvc.RecountDirty(ctx)
	if err != nil {
		log.ErrorContext(ctx, "recount dirty workspaces error", "err", err)
		return
	}
	if n > 0 {
		log.InfoContext(ctx, "recount workspace stats success",
			"count", n,
			"latency", time.Since(start))
	}
}
