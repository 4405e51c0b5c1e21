package service

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/model"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/kafka"
	"Helpdock/internal/pkg/mongo"
	"Helpdock/internal/pkg/util"
	"Helpdock/internal/repository"
	"context"
	log "log/slog"
	"time"

	"gorm.io/datatypes"
)

// UpgradeService 升级申请：租户提交，运营人工审核
type UpgradeService interface {
	// Me 当前租户、额度以及是否有待审核申请
	Me(ctx context.Context, viewer *Viewer) (*dto.TenantDTO, error)
	Request(ctx context.Context, viewer *Viewer, req *dto.UpgradeReq) (*dto.UpgradeRequestDTO, error)
	List(ctx context.Context, status string, page, size int) ([]*dto.UpgradeRequestDTO, error)
	Review(ctx context.Context, reviewer *Viewer, id uint64, req *dto.ReviewUpgradeReq) (*dto.UpgradeRequestDTO, error)
}

type upgradeServiceImpl struct {
	upgradeRepo   repository.UpgradeRequestRepo
	workspaceRepo mongo.WorkspaceRepo
	planSvc       PlanService
	emitter       EventEmitter
}

func NewUpgradeService(
	upgradeRepo repository.UpgradeRequestRepo,
	workspaceRepo mongo.WorkspaceRepo,
	planSvc PlanService,
	emitter EventEmitter,
) UpgradeService {
	return &upgradeServiceImpl{
		upgradeRepo:   upgradeRepo,
		workspaceRepo: workspaceRepo,
		planSvc:       planSvc,
		emitter:       emitter,
	}
}

func (s *upgradeServiceImpl) Me(ctx context.Context, viewer *Viewer) (*dto.TenantDTO, error) {
	tenant, err := s.planSvc.GetTenant(ctx, viewer.TenantID, viewer.NormalizedEmail())
	if err != nil {
		return nil, err
	}
	pending, err := s.upgradeRepo.GetPendingByTenant(ctx, viewer.TenantID)
	if err != nil {
		return nil, err
	}
	tenant.PendingUpgrade = pending != nil
	return tenant, nil
}

func (s *upgradeServiceImpl) Request(ctx context.Context, viewer *Viewer, req *dto.UpgradeReq) (*dto.UpgradeRequestDTO, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, ErrParamInvalid
	}
	tenant, err := s.planSvc.EnsureTenant(ctx, viewer.TenantID, viewer.NormalizedEmail())
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}
	if tenant.Plan == req.Plan {
		return nil, ErrPlanInvalid
	}
	pending, err := s.upgradeRepo.GetPendingByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, ErrUpgradePending
	}

	reason := req.Reason
	if reason == "" {
		reason = consts.LimitReasonManual
	}
	usage, err := s.usageSnapshot(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	record := &model.UpgradeRequest{
		TenantID:      tenant.ID,
		Email:         tenant.Email,
		CurrentPlan:   tenant.Plan,
		RequestedPlan: req.Plan,
		Reason:        reason,
		Status:        consts.UpgradeStatusPending,
		Usage:         usage,
	}
	if err = s.upgradeRepo.CreateUpgradeRequest(ctx, record); err != nil {
		return nil, err
	}

	emit(ctx, s.emitter, &kafka.Event{
		Type:     consts.EventUpgradeRequested,
		TenantID: tenant.ID,
		Data: map[string]interface{}{
			"request_id":     record.ID,
			"current_plan":   record.CurrentPlan,
			"requested_plan": record.RequestedPlan,
			"reason":         record.Reason,
		},
		OccurredAt: time.Now().UTC(),
	})
	log.InfoContext(ctx, "upgrade requested",
		"tenant_id", tenant.ID,
		"from", record.CurrentPlan,
		"to", record.RequestedPlan,
		"reason", reason)
	return toUpgradeRequestDTO(record), nil
}

// usageSnapshot 聚合值只作参考，审核人员据此判断
func (s *upgradeServiceImpl) usageSnapshot(ctx context.Context, tenantID string) (datatypes.JSONMap, error) {
	owned, err := s.workspaceRepo.ListByOwner(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var conversations, messages, members int64
	for _, ws := range owned {
		conversations += util.ClampZero(ws.Stats.ConversationCount)
		messages += util.ClampZero(ws.Stats.MessageCount)
		members += int64(len(ws.Members))
	}
	return datatypes.JSONMap{
		"workspaces":    len(owned),
		"members":       members,
		"conversations": conversations,
		"messages":      messages,
	}, nil
}

func (s *upgradeServiceImpl) List(ctx context.Context, status string, page, size int) ([]*dto.UpgradeRequestDTO, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > consts.DefaultPageMax {
		size = 20
	}
	list, err := s.upgradeRepo.ListUpgradeRequests(ctx, status, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.UpgradeRequestDTO, 0, len(list))
	for _, r := range list {
		res = append(res, toUpgradeRequestDTO(r))
	}
	return res, nil
}

func (s *upgradeServiceImpl) Review(ctx context.Context, reviewer *Viewer, id uint64, req *dto.ReviewUpgradeReq) (*dto.UpgradeRequestDTO, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, ErrParamInvalid
	}
	record, err := s.upgradeRepo.GetUpgradeRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrUpgradeNotFound
	}
	if record.Status != consts.UpgradeStatusPending {
		return nil, ErrUpgradeReviewed
	}

	affected, err := s.upgradeRepo.ReviewUpgradeRequest(ctx, record, req.Status, req.Note)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrUpgradeReviewed
	}
	record.Status = req.Status
	record.Note = req.Note
	log.InfoContext(ctx, "upgrade reviewed",
		"request_id", id,
		"tenant_id", record.TenantID,
		"status", req.Status,
		"reviewer", reviewer.TenantID)
	return toUpgradeRequestDTO(record), nil
}

func toUpgradeRequestDTO(r *model.UpgradeRequest) *dto.UpgradeRequestDTO {
	usage := map[string]interface{}(r.Usage)
	if usage == nil {
		usage = map[string]interface{}{}
	}
	return &dto.UpgradeRequestDTO{
		ID:            r.ID,
		TenantID:      r.TenantID,
		Email:         r.Email,
		CurrentPlan:   r.CurrentPlan,
		RequestedPlan: r.RequestedPlan,
		Reason:        r.Reason,
		Status:        r.Status,
		Note:          r.Note,
		Usage:         usage,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
}
