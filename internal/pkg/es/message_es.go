package es

import "time"

// MessageES 写入 ES 的消息文档，图片消息不入索引
type MessageES struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	WorkspaceID    string    `json:"workspace_id"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}
