package mongo

import (
	"Helpdock/internal/pkg/consts"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation 一位访客在某个 workspace 下的会话
// 在线状态与解决状态是两个独立标志
type Conversation struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	WorkspaceID      primitive.ObjectID `bson:"workspace_id"`
	OwnerID          string             `bson:"owner_id"`
	CustomerName     string             `bson:"customer_name"`
	CustomerEmail    string             `bson:"customer_email"`
	ExternalID       string             `bson:"external_id,omitempty"`
	IsOpen           bool               `bson:"is_open"`
	IsResolved       bool               `bson:"is_resolved"`
	UnreadCountAdmin int64              `bson:"unread_count_admin"`
	UnreadCountUser  int64              `bson:"unread_count_user"`
	LastMessage      string             `bson:"last_message"`
	CustomData       map[string]string  `bson:"custom_data,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

// UnreadFor 返回某角色的未读数
func (c *Conversation) UnreadFor(role string) int64 {
	if role == consts.RoleAdmin {
		return c.UnreadCountAdmin
	}
	return c.UnreadCountUser
}

// UnreadField 角色对应的未读字段名
func UnreadField(role string) string {
	if role == consts.RoleAdmin {
		return "unread_count_admin"
	}
	return "unread_count_user"
}

// ConversationRecount 对账时从会话表重算出的真实值
type ConversationRecount struct {
	Conversations int64 `bson:"conversations"`
	Unresolved    int64 `bson:"unresolved"`
	Unread        int64 `bson:"unread"`
}
