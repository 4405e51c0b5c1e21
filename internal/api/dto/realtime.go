package dto

// 客户端帧类型
const (
	FrameOpen      = "open"
	FrameLoadOlder = "load_older"
	FrameRead      = "read"
	FrameClose     = "close"
)

// 服务端帧类型
const (
	FrameSnapshot     = "snapshot"
	FramePrepend      = "prepend"
	FrameMessage      = "message"
	FrameConversation = "conversation"
	FrameLimit        = "limit"
	FrameError        = "error"
)

// ClientFrame 客户端指令
type ClientFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
}

// ServerFrame 推送给客户端
type ServerFrame struct {
	Type         string           `json:"type"`
	Messages     []*MessageDTO    `json:"messages,omitempty"`
	Message      *MessageDTO      `json:"message,omitempty"`
	Conversation *ConversationDTO `json:"conversation,omitempty"`
	HasMore      bool             `json:"hasMore"`
	Days         []DayGroup       `json:"days,omitempty"`
	Limit        *LimitState      `json:"limit,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// BusEvent Pub/Sub 上的事件，conversation 类事件只是提示，订阅方需重新读库
type BusEvent struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversationId"`
	WorkspaceID    string      `json:"workspaceId"`
	Message        *MessageDTO `json:"message,omitempty"`
}
