package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message 会话时间线上的一条消息，创建后不再修改
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `bson:"conversation_id"`
	WorkspaceID    primitive.ObjectID `bson:"workspace_id"`
	Text           string             `bson:"text"` // 纯文本或图片 data URI
	Sender         string             `bson:"sender"`
	CreatedAt      time.Time          `bson:"created_at"`
}

// Before 时间线全序：先 created_at，再 _id
func (m *Message) Before(o *Message) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.Before(o.CreatedAt)
	}
	return m.ID.Hex() < o.ID.Hex()
}
