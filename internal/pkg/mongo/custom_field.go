package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CustomField 会话自定义字段的 schema
// 删除只打标记，已存的 custom_data 不动
type CustomField struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id"`
	Key         string             `bson:"key"`
	Label       string             `bson:"label"`
	Type        string             `bson:"type"`
	Deleted     bool               `bson:"deleted"`
	CreatedAt   time.Time          `bson:"created_at"`
}
