package service

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/model"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/mongo"
	"Helpdock/internal/repository"
	"context"
	"slices"
	"sort"
)

// defaultLimits 配置表缺行或缺字段时的兜底
var defaultLimits = map[string]dto.PlanLimits{
	consts.PlanTrial:   {MaxWorkspaces: 1, MaxMembersPerWorkspace: 2, MaxCustomers: 50, AllowImageUpload: false},
	consts.PlanFree:    {MaxWorkspaces: 1, MaxMembersPerWorkspace: 2, MaxCustomers: 50, AllowImageUpload: false},
	consts.PlanBasic:   {MaxWorkspaces: 3, MaxMembersPerWorkspace: 5, MaxCustomers: 500, AllowImageUpload: true},
	consts.PlanPremium: {MaxWorkspaces: 10, MaxMembersPerWorkspace: 20, MaxCustomers: -1, AllowImageUpload: true},
}

// PlanTiers 展示顺序
var PlanTiers = []string{consts.PlanTrial, consts.PlanFree, consts.PlanBasic, consts.PlanPremium}

// PlanService 套餐额度判断。受限返回 LimitState，不返回错误
type PlanService interface {
	EnsureTenant(ctx context.Context, tenantID, email string) (*model.Tenant, error)
	GetTenant(ctx context.Context, tenantID, email string) (*dto.TenantDTO, error)
	GetLimits(ctx context.Context, tenantID string) (string, dto.PlanLimits, error)
	GetPlanTable(ctx context.Context) (map[string]dto.PlanLimits, error)
	UpdatePlan(ctx context.Context, tier string, patch *dto.PlanLimitsPatch) (*dto.PlanLimits, error)

	CheckWorkspaceCreate(ctx context.Context, tenantID string) (*dto.LimitState, error)
	CheckImageUpload(ctx context.Context, tenantID string) (*dto.LimitState, error)
	CheckMemberAdd(ctx context.Context, tenantID string, ws *mongo.Workspace) (*dto.LimitState, error)
	// VisibleConversations 排序并标记锁定，返回可见上限
	VisibleConversations(ctx context.Context, tenantID string, list []*mongo.Conversation) ([]*dto.ConversationDTO, int, error)
	CheckConversationOpen(ctx context.Context, tenantID string, conv *mongo.Conversation) (*dto.LimitState, error)
}

type planServiceImpl struct {
	tenantRepo     repository.TenantRepo
	planConfigRepo repository.PlanConfigRepo
	workspaceRepo  mongo.WorkspaceRepo
	convRepo       mongo.ConversationRepo
}

func NewPlanService(
	tenantRepo repository.TenantRepo,
	planConfigRepo repository.PlanConfigRepo,
	workspaceRepo mongo.WorkspaceRepo,
	convRepo mongo.ConversationRepo,
) PlanService {
	return &planServiceImpl{
		tenantRepo:     tenantRepo,
		planConfigRepo: planConfigRepo,
		workspaceRepo:  workspaceRepo,
		convRepo:       convRepo,
	}
}

func (s *planServiceImpl) EnsureTenant(ctx context.Context, tenantID, email string) (*model.Tenant, error) {
	return s.tenantRepo.EnsureTenant(ctx, tenantID, email)
}

func (s *planServiceImpl) GetTenant(ctx context.Context, tenantID, email string) (*dto.TenantDTO, error) {
	tenant, err := s.EnsureTenant(ctx, tenantID, email)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}
	limits, err := s.limitsForPlan(ctx, tenant.Plan)
	if err != nil {
		return nil, err
	}
	return &dto.TenantDTO{
		ID:     tenant.ID,
		Email:  tenant.Email,
		Plan:   tenant.Plan,
		Limits: limits,
	}, nil
}

// GetLimits 租户未建档时按 trial 处理
func (s *planServiceImpl) GetLimits(ctx context.Context, tenantID string) (string, dto.PlanLimits, error) {
	plan := consts.PlanTrial
	tenant, err := s.tenantRepo.GetTenantByID(ctx, tenantID)
	if err != nil {
		return "", dto.PlanLimits{}, err
	}
	if tenant != nil && tenant.Plan != "" {
		plan = tenant.Plan
	}
	limits, err := s.limitsForPlan(ctx, plan)
	return plan, limits, err
}

func (s *planServiceImpl) limitsForPlan(ctx context.Context, plan string) (dto.PlanLimits, error) {
	cfg, err := s.planConfigRepo.GetPlanConfig(ctx, plan)
	if err != nil {
		return dto.PlanLimits{}, err
	}
	return ResolveLimits(plan, cfg), nil
}

// ResolveLimits 按字段回退默认值，未知套餐按 trial
func ResolveLimits(plan string, cfg *model.PlanConfig) dto.PlanLimits {
	limits, ok := defaultLimits[plan]
	if !ok {
		limits = defaultLimits[consts.PlanTrial]
	}
	if cfg == nil {
		return limits
	}
	if cfg.MaxWorkspaces != nil {
		limits.MaxWorkspaces = *cfg.MaxWorkspaces
	}
	if cfg.MaxMembersPerWorkspace != nil {
		limits.MaxMembersPerWorkspace = *cfg.MaxMembersPerWorkspace
	}
	if cfg.MaxCustomers != nil {
		limits.MaxCustomers = *cfg.MaxCustomers
	}
	if cfg.AllowImageUpload != nil {
		limits.AllowImageUpload = *cfg.AllowImageUpload
	}
	return limits
}

func (s *planServiceImpl) GetPlanTable(ctx context.Context) (map[string]dto.PlanLimits, error) {
	rows, err := s.planConfigRepo.ListPlanConfigs(ctx)
	if err != nil {
		return nil, err
	}
	byTier := make(map[string]*model.PlanConfig, len(rows))
	for _, r := range rows {
		byTier[r.Tier] = r
	}
	table := make(map[string]dto.PlanLimits, len(PlanTiers))
	for _, tier := range PlanTiers {
		table[tier] = ResolveLimits(tier, byTier[tier])
	}
	return table, nil
}

func (s *planServiceImpl) UpdatePlan(ctx context.Context, tier string, patch *dto.PlanLimitsPatch) (*dto.PlanLimits, error) {
	if _, ok := defaultLimits[tier]; !ok {
		return nil, ErrPlanInvalid
	}
	cfg := &model.PlanConfig{
		Tier:                   tier,
		MaxWorkspaces:          patch.MaxWorkspaces,
		MaxMembersPerWorkspace: patch.MaxMembersPerWorkspace,
		MaxCustomers:           patch.MaxCustomers,
		AllowImageUpload:       patch.AllowImageUpload,
	}
	if err := s.planConfigRepo.SavePlanConfig(ctx, cfg); err != nil {
		return nil, err
	}
	limits := ResolveLimits(tier, cfg)
	return &limits, nil
}

// CheckWorkspaceCreate 直接枚举租户的工作区，不信任聚合
func (s *planServiceImpl) CheckWorkspaceCreate(ctx context.Context, tenantID string) (*dto.LimitState, error) {
	plan, limits, err := s.GetLimits(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if limits.MaxWorkspaces < 0 {
		return nil, nil
	}
	owned, err := s.workspaceRepo.ListByOwner(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(owned) >= limits.MaxWorkspaces {
		return limitState(consts.LimitReasonWorkspace, plan, limits.MaxWorkspaces), nil
	}
	return nil, nil
}

func (s *planServiceImpl) CheckImageUpload(ctx context.Context, tenantID string) (*dto.LimitState, error) {
	plan, limits, err := s.GetLimits(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !limits.AllowImageUpload {
		return limitState(consts.LimitReasonUpload, plan, 0), nil
	}
	return nil, nil
}

func (s *planServiceImpl) CheckMemberAdd(ctx context.Context, tenantID string, ws *mongo.Workspace) (*dto.LimitState, error) {
	plan, limits, err := s.GetLimits(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if limits.MaxMembersPerWorkspace >= 0 && len(ws.Members) >= limits.MaxMembersPerWorkspace {
		return limitState(consts.LimitReasonMember, plan, limits.MaxMembersPerWorkspace), nil
	}
	return nil, nil
}

func (s *planServiceImpl) VisibleConversations(ctx context.Context, tenantID string, list []*mongo.Conversation) ([]*dto.ConversationDTO, int, error) {
	_, limits, err := s.GetLimits(ctx, tenantID)
	if err != nil {
		return nil, 0, err
	}
	return ApplyVisibility(list, limits.MaxCustomers), limits.MaxCustomers, nil
}

// CheckConversationOpen 服务端同样拒绝打开被锁定的会话
func (s *planServiceImpl) CheckConversationOpen(ctx context.Context, tenantID string, conv *mongo.Conversation) (*dto.LimitState, error) {
	plan, limits, err := s.GetLimits(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if limits.MaxCustomers < 0 {
		return nil, nil
	}
	list, err := s.convRepo.ListByWorkspace(ctx, conv.WorkspaceID)
	if err != nil {
		return nil, err
	}
	SortByRecency(list)
	for i, c := range list {
		if c.ID == conv.ID {
			if i >= limits.MaxCustomers {
				return limitState(consts.LimitReasonChat, plan, limits.MaxCustomers), nil
			}
			return nil, nil
		}
	}
	return nil, ErrConversationNotFound
}

// SortByRecency 最近更新在前，同一时间按 ID 倒序，保证位置稳定
func SortByRecency(list []*mongo.Conversation) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID.Hex() > list[j].ID.Hex()
	})
}

// ApplyVisibility 前 limit 个可打开，其余锁定；limit 为负不限。不改动入参顺序
func ApplyVisibility(list []*mongo.Conversation, limit int) []*dto.ConversationDTO {
	sorted := slices.Clone(list)
	SortByRecency(sorted)
	res := make([]*dto.ConversationDTO, 0, len(sorted))
	for i, c := range sorted {
		d := toConversationDTO(c)
		d.Locked = limit >= 0 && i >= limit
		res = append(res, d)
	}
	return res
}

func limitState(reason, plan string, limit int) *dto.LimitState {
	return &dto.LimitState{LimitReached: true, Reason: reason, Plan: plan, Limit: limit}
}
