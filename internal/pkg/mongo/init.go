package mongo

import (
	"Helpdock/internal/api/config"
	"Helpdock/internal/pkg/logger"
	"context"
	"errors"
	log "log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	WorkspaceCollection    = "workspaces"
	ConversationCollection = "conversations"
	MessageCollection      = "messages"
	CustomFieldCollection  = "custom_fields"
)

// ErrNotFound 统一的未找到错误，由 service 层映射为业务错误
var ErrNotFound = errors.New("mongo: document not found")

// InitMongo 建立连接并返回 Database 引用，同时初始化索引
func InitMongo(cfg config.MongoConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URL).
		SetMonitor(logger.NewMongoMonitor()),
	)
	if err != nil {
		return nil, err
	}

	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(cfg.Database)
	if err = ensureIndexes(ctx, db); err != nil {
		return nil, err
	}

	log.Info("MongoDB initialized successfully", "db", cfg.Database)
	return db, nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		WorkspaceCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
			{Keys: bson.D{{Key: "members", Value: 1}}},
		},
		ConversationCollection: {
			{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "updated_at", Value: -1}}},
			{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "external_id", Value: 1}}},
			{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "customer_email", Value: 1}}},
		},
		MessageCollection: {
			// 时间线分页依赖 (created_at, _id) 全序
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "workspace_id", Value: 1}}},
		},
		CustomFieldCollection: {
			{
				Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for col, models := range indexes {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			log.Error("create mongo index failed", "collection", col, "err", err)
			return err
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
