package dto

import "time"

// ConversationDTO 会话
type ConversationDTO struct {
	ID               string            `json:"id"`
	WorkspaceID      string            `json:"workspaceId"`
	CustomerName     string            `json:"customerName"`
	CustomerEmail    string            `json:"customerEmail"`
	ExternalID       string            `json:"externalId,omitempty"`
	IsOpen           bool              `json:"isOpen"`
	IsResolved       bool              `json:"isResolved"`
	UnreadCountAdmin int64             `json:"unreadCountAdmin"`
	UnreadCountUser  int64             `json:"unreadCountUser"`
	LastMessage      string            `json:"lastMessage"`
	CustomData       map[string]string `json:"customData"`
	// Locked 超出套餐可见客户数，不可打开
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MessageDTO 消息
type MessageDTO struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Text           string    `json:"text"`
	Sender         string    `json:"sender"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MessagePage 一页升序消息
type MessagePage struct {
	Messages []*MessageDTO `json:"messages"`
	HasMore  bool          `json:"hasMore"`
}

// DayGroup 按本地日期分组
type DayGroup struct {
	Day      string   `json:"day"`
	FirstIdx int      `json:"firstIndex"`
	IDs      []string `json:"ids"`
}

// StartConversationReq 访客开启会话
type StartConversationReq struct {
	Name       string            `json:"name" binding:"required" validate:"min=1,max=100"`
	Email      string            `json:"email" binding:"required" validate:"email"`
	ExternalID string            `json:"externalId" validate:"omitempty,max=128"`
	CustomData map[string]string `json:"customData"`
}

// StartConversationResp Token 用于后续访客接口与实时连接
type StartConversationResp struct {
	Conversation *ConversationDTO `json:"conversation"`
	Token        string           `json:"token"`
	Resumed      bool             `json:"resumed"`
}

// SendMessageReq 发送文本
type SendMessageReq struct {
	Text string `json:"text" binding:"required" validate:"min=1,max=5000"`
}

// SendResult 成功时 Message 非空；被套餐拦截时 Limit 非空
type SendResult struct {
	Message *MessageDTO `json:"message,omitempty"`
	Limit   *LimitState `json:"limit,omitempty"`
}

// UpdateStatusReq 修改会话状态，两个标志相互独立
type UpdateStatusReq struct {
	IsResolved *bool `json:"isResolved"`
	IsOpen     *bool `json:"isOpen"`
}

// CustomDataReq 写入自定义字段值
type CustomDataReq struct {
	Data map[string]string `json:"data" binding:"required"`
}

// MarkReadResp 本次清零的未读数
type MarkReadResp struct {
	Cleared int64 `json:"cleared"`
}

// ConversationListResp 会话列表，按最近更新倒序
type ConversationListResp struct {
	Conversations []*ConversationDTO `json:"conversations"`
	VisibleLimit  int                `json:"visibleLimit"`
}

// SearchMessageDTO 检索命中
type SearchMessageDTO struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}
