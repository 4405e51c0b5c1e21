package dto

// PlanLimits 套餐限制，负数表示不限
type PlanLimits struct {
	MaxWorkspaces          int  `json:"maxWorkspaces"`
	MaxMembersPerWorkspace int  `json:"maxMembersPerWorkspace"`
	MaxCustomers           int  `json:"maxCustomers"`
	AllowImageUpload       bool `json:"allowImageUpload"`
}

// PlanLimitsPatch 运营修改套餐，nil 字段恢复默认
type PlanLimitsPatch struct {
	MaxWorkspaces          *int  `json:"maxWorkspaces"`
	MaxMembersPerWorkspace *int  `json:"maxMembersPerWorkspace"`
	MaxCustomers           *int  `json:"maxCustomers"`
	AllowImageUpload       *bool `json:"allowImageUpload"`
}

// LimitState 额度受限状态，不是错误
type LimitState struct {
	LimitReached bool   `json:"limitReached"`
	Reason       string `json:"reason"`
	Plan         string `json:"plan"`
	Limit        int    `json:"limit"`
}

// TenantDTO 当前租户
type TenantDTO struct {
	ID     string     `json:"id"`
	Email  string     `json:"email"`
	Plan   string     `json:"plan"`
	Limits PlanLimits `json:"limits"`
	// PendingUpgrade 是否已有待审核申请
	PendingUpgrade bool `json:"pendingUpgrade"`
}

// UpgradeReq 申请升级
type UpgradeReq struct {
	Plan   string `json:"plan" binding:"required" validate:"oneof=basic premium"`
	Reason string `json:"reason" validate:"omitempty,oneof=upload chat workspace member manual"`
}

// ReviewUpgradeReq 运营审核
type ReviewUpgradeReq struct {
	Status string `json:"status" binding:"required" validate:"oneof=approved rejected"`
	Note   string `json:"note" validate:"max=500"`
}

// UpgradeRequestDTO 升级申请
type UpgradeRequestDTO struct {
	ID            uint64                 `json:"id"`
	TenantID      string                 `json:"tenantId"`
	Email         string                 `json:"email"`
	CurrentPlan   string                 `json:"currentPlan"`
	RequestedPlan string                 `json:"requestedPlan"`
	Reason        string                 `json:"reason"`
	Status        string                 `json:"status"`
	Note          string                 `json:"note"`
	Usage         map[string]interface{} `json:"usage"`
	CreatedAt     string                 `json:"createdAt"`
}
