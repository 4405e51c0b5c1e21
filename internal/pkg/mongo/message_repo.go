package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepo interface {
	Insert(ctx context.Context, msg *Message) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Message, error)
	// Tail 最新 limit 条，升序返回
	Tail(ctx context.Context, conversationID primitive.ObjectID, limit int) ([]*Message, error)
	// Before 严格早于 cursor 的 limit 条，升序返回
	Before(ctx context.Context, conversationID primitive.ObjectID, cursor *Message, limit int) ([]*Message, error)
	CountByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error)
	DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error)
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{col: db.Collection(MessageCollection)}
}

// Insert ObjectID 在进程内生成，同一毫秒内按生成顺序递增
func (s *messageRepoImpl) Insert(ctx context.Context, msg *Message) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, msg)
	return err
}

func (s *messageRepoImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Message, error) {
	var msg Message
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		return nil, notFound(err)
	}
	return &msg, nil
}

func (s *messageRepoImpl) Tail(ctx context.Context, conversationID primitive.ObjectID, limit int) ([]*Message, error) {
	return s.page(ctx, bson.M{"conversation_id": conversationID}, limit)
}

func (s *messageRepoImpl) Before(ctx context.Context, conversationID primitive.ObjectID, cursor *Message, limit int) ([]*Message, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"$or": bson.A{
			bson.M{"created_at": bson.M{"$lt": cursor.CreatedAt}},
			bson.M{"created_at": cursor.CreatedAt, "_id": bson.M{"$lt": cursor.ID}},
		},
	}
	return s.page(ctx, filter, limit)
}

// page 倒序取 limit 条再翻转，得到“最后 N 条”的升序视图
func (s *messageRepoImpl) page(ctx context.Context, filter bson.M, limit int) ([]*Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *messageRepoImpl) CountByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"workspace_id": workspaceID})
}

func (s *messageRepoImpl) DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"workspace_id": workspaceID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
