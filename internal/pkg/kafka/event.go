package kafka

import "time"

// Event 领域事件，统一写入一个 Topic，按 Key 分区
type Event struct {
	Type           string                 `json:"type"`
	WorkspaceID    string                 `json:"workspace_id,omitempty"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	TenantID       string                 `json:"tenant_id,omitempty"`
	MessageID      string                 `json:"message_id,omitempty"`
	Sender         string                 `json:"sender,omitempty"`
	Text           string                 `json:"text,omitempty"`
	Data           map[string]interface{} `json:"data,omitempty"`
	OccurredAt     time.Time              `json:"occurred_at"`
}

// Key 分区键：有会话按会话，否则按工作区，再否则按租户
func (e *Event) Key() string {
	switch {
	case e.ConversationID != "":
		return e.ConversationID
	case e.WorkspaceID != "":
		return e.WorkspaceID
	default:
		return e.TenantID
	}
}
