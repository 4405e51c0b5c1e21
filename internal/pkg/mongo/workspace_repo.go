package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type WorkspaceRepo interface {
	Create(ctx context.Context, ws *Workspace) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Workspace, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Workspace, error)
	ListByMember(ctx context.Context, email string) ([]*Workspace, error)
	UpdateSettings(ctx context.Context, id primitive.ObjectID, name string, settings WorkspaceSettings) error
	SetLogo(ctx context.Context, id primitive.ObjectID, logoURL string) error
	AddMember(ctx context.Context, id primitive.ObjectID, email string) error
	RemoveMember(ctx context.Context, id primitive.ObjectID, email string) error
	IncStats(ctx context.Context, id primitive.ObjectID, delta StatsDelta) error
	SetStats(ctx context.Context, id primitive.ObjectID, stats WorkspaceStats) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type workspaceRepoImpl struct {
	col *mongo.Collection
}

func NewWorkspaceRepo(db *mongo.Database) WorkspaceRepo {
	return &workspaceRepoImpl{col: db.Collection(WorkspaceCollection)}
}

func (s *workspaceRepoImpl) Create(ctx context.Context, ws *Workspace) error {
	if ws.ID.IsZero() {
		ws.ID = primitive.NewObjectID()
	}
	if ws.Members == nil {
		ws.Members = []string{}
	}
	_, err := s.col.InsertOne(ctx, ws)
	return err
}

func (s *workspaceRepoImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Workspace, error) {
	var ws Workspace
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&ws); err != nil {
		return nil, notFound(err)
	}
	return &ws, nil
}

// ListByOwner 配额判断直接枚举，不读聚合
func (s *workspaceRepoImpl) ListByOwner(ctx context.Context, ownerID string) ([]*Workspace, error) {
	return s.find(ctx, bson.M{"owner_id": ownerID})
}

func (s *workspaceRepoImpl) ListByMember(ctx context.Context, email string) ([]*Workspace, error) {
	return s.find(ctx, bson.M{"members": email})
}

func (s *workspaceRepoImpl) find(ctx context.Context, filter bson.M) ([]*Workspace, error) {
	cursor, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var list []*Workspace
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *workspaceRepoImpl) UpdateSettings(ctx context.Context, id primitive.ObjectID, name string, settings WorkspaceSettings) error {
	set := bson.M{
		"settings.brand_color":  settings.BrandColor,
		"settings.display_name": settings.DisplayName,
		"updated_at":            time.Now(),
	}
	if name != "" {
		set["name"] = name
	}
	return s.updateOne(ctx, id, bson.M{"$set": set})
}

func (s *workspaceRepoImpl) SetLogo(ctx context.Context, id primitive.ObjectID, logoURL string) error {
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{"settings.logo_url": logoURL, "updated_at": time.Now()}})
}

func (s *workspaceRepoImpl) AddMember(ctx context.Context, id primitive.ObjectID, email string) error {
	return s.updateOne(ctx, id, bson.M{"$addToSet": bson.M{"members": email}})
}

func (s *workspaceRepoImpl) RemoveMember(ctx context.Context, id primitive.ObjectID, email string) error {
	return s.updateOne(ctx, id, bson.M{"$pull": bson.M{"members": email}})
}

// IncStats 原子增减，不做读改写
func (s *workspaceRepoImpl) IncStats(ctx context.Context, id primitive.ObjectID, delta StatsDelta) error {
	if delta.IsZero() {
		return nil
	}
	inc := bson.M{}
	if delta.Conversations != 0 {
		inc["stats.conversation_count"] = delta.Conversations
	}
	if delta.Messages != 0 {
		inc["stats.message_count"] = delta.Messages
	}
	if delta.Unresolved != 0 {
		inc["stats.unresolved_count"] = delta.Unresolved
	}
	if delta.Unread != 0 {
		inc["stats.unread_count"] = delta.Unread
	}
	return s.updateOne(ctx, id, bson.M{"$inc": inc})
}

// SetStats 对账任务用真实计数覆盖
func (s *workspaceRepoImpl) SetStats(ctx context.Context, id primitive.ObjectID, stats WorkspaceStats) error {
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{"stats": stats}})
}

func (s *workspaceRepoImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *workspaceRepoImpl) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
