package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CustomFieldRepo interface {
	// Upsert 同 key 已删除的字段会被恢复
	Upsert(ctx context.Context, field *CustomField) error
	ListActive(ctx context.Context, workspaceID primitive.ObjectID) ([]*CustomField, error)
	SoftDelete(ctx context.Context, workspaceID primitive.ObjectID, key string) error
	DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error)
}

type customFieldRepoImpl struct {
	col *mongo.Collection
}

func NewCustomFieldRepo(db *mongo.Database) CustomFieldRepo {
	return &customFieldRepoImpl{col: db.Collection(CustomFieldCollection)}
}

func (s *customFieldRepoImpl) Upsert(ctx context.Context, field *CustomField) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"workspace_id": field.WorkspaceID, "key": field.Key},
		bson.M{
			"$set":         bson.M{"label": field.Label, "type": field.Type, "deleted": false},
			"$setOnInsert": bson.M{"created_at": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *customFieldRepoImpl) ListActive(ctx context.Context, workspaceID primitive.ObjectID) ([]*CustomField, error) {
	cursor, err := s.col.Find(ctx,
		bson.M{"workspace_id": workspaceID, "deleted": false},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var fields []*CustomField
	if err = cursor.All(ctx, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (s *customFieldRepoImpl) SoftDelete(ctx context.Context, workspaceID primitive.ObjectID, key string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"workspace_id": workspaceID, "key": key, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *customFieldRepoImpl) DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"workspace_id": workspaceID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
