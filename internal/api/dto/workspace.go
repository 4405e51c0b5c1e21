package dto

import "time"

// WorkspaceDTO 工作区
type WorkspaceDTO struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	OwnerID    string               `json:"ownerId"`
	OwnerEmail string               `json:"ownerEmail"`
	Members    []string             `json:"members"`
	Settings   WorkspaceSettingsDTO `json:"settings"`
	Stats      WorkspaceStatsDTO    `json:"stats"`
	IsOwner    bool                 `json:"isOwner"`
	CreatedAt  time.Time            `json:"createdAt"`
}

type WorkspaceSettingsDTO struct {
	BrandColor  string `json:"brandColor"`
	LogoURL     string `json:"logoUrl"`
	DisplayName string `json:"displayName"`
}

// WorkspaceStatsDTO 展示值，负数已截断为 0
type WorkspaceStatsDTO struct {
	ConversationCount int64 `json:"conversationCount"`
	MessageCount      int64 `json:"messageCount"`
	UnresolvedCount   int64 `json:"unresolvedCount"`
	UnreadCount       int64 `json:"unreadCount"`
}

// CreateWorkspaceReq 创建工作区
type CreateWorkspaceReq struct {
	Name        string `json:"name" binding:"required" validate:"min=1,max=80"`
	BrandColor  string `json:"brandColor" validate:"omitempty,hexcolor"`
	DisplayName string `json:"displayName" validate:"omitempty,max=80"`
}

// UpdateWorkspaceReq 修改设置，仅所有者
type UpdateWorkspaceReq struct {
	Name        string `json:"name" validate:"omitempty,max=80"`
	BrandColor  string `json:"brandColor" validate:"omitempty,hexcolor"`
	DisplayName string `json:"displayName" validate:"omitempty,max=80"`
}

// MemberReq 添加 / 移除成员
type MemberReq struct {
	Email string `json:"email" binding:"required" validate:"email"`
}

// CreateWorkspaceResp 配额不足时 Workspace 为空，Limit 给出原因
type CreateWorkspaceResp struct {
	Workspace *WorkspaceDTO `json:"workspace,omitempty"`
	Limit     *LimitState   `json:"limit,omitempty"`
}

// CustomFieldDTO 自定义字段 schema
type CustomFieldDTO struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// CustomFieldReq 新增或修改字段
type CustomFieldReq struct {
	Key   string `json:"key" binding:"required" validate:"min=1,max=40,alphanum"`
	Label string `json:"label" binding:"required" validate:"min=1,max=80"`
	Type  string `json:"type" binding:"required" validate:"oneof=text number email url"`
}

// WidgetConfigDTO 挂件公开配置
type WidgetConfigDTO struct {
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
	BrandColor  string `json:"brandColor"`
	LogoURL     string `json:"logoUrl"`
	DisplayName string `json:"displayName"`
	// AllowImageUpload 挂件据此决定是否显示上传按钮
	AllowImageUpload bool `json:"allowImageUpload"`
}
