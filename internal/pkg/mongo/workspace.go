package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Workspace 租户下的一个客服渠道
type Workspace struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Name       string             `bson:"name"`
	OwnerID    string             `bson:"owner_id"`
	OwnerEmail string             `bson:"owner_email"`
	Members    []string           `bson:"members"` // 小写邮箱，集合语义
	Settings   WorkspaceSettings  `bson:"settings"`
	Stats      WorkspaceStats     `bson:"stats"`
	CreatedAt  time.Time          `bson:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at"`
}

type WorkspaceSettings struct {
	BrandColor  string `bson:"brand_color"`
	LogoURL     string `bson:"logo_url"`
	DisplayName string `bson:"display_name"`
}

// WorkspaceStats 聚合计数，仅通过 $inc 变更，并发下可能短暂为负
type WorkspaceStats struct {
	ConversationCount int64 `bson:"conversation_count"`
	MessageCount      int64 `bson:"message_count"`
	UnresolvedCount   int64 `bson:"unresolved_count"`
	UnreadCount       int64 `bson:"unread_count"`
}

// StatsDelta 一次 $inc 的增量，零值字段不写
type StatsDelta struct {
	Conversations int64
	Messages      int64
	Unresolved    int64
	Unread        int64
}

func (d StatsDelta) IsZero() bool {
	return d == StatsDelta{}
}

// Apply 把增量叠加到 stats 上，测试与内存实现共用
func (d StatsDelta) Apply(s *WorkspaceStats) {
	s.ConversationCount += d.Conversations
	s.MessageCount += d.Messages
	s.UnresolvedCount += d.Unresolved
	s.UnreadCount += d.Unread
}
