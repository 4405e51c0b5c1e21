package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ConversationRepo interface {
	Create(ctx context.Context, conv *Conversation) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Conversation, error)
	FindByExternalID(ctx context.Context, workspaceID primitive.ObjectID, externalID string) (*Conversation, error)
	FindByEmail(ctx context.Context, workspaceID primitive.ObjectID, email string) (*Conversation, error)
	// ListByWorkspace 按 updated_at 倒序，同一时间按 _id 倒序
	ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]*Conversation, error)
	// AppendPreview 更新预览与时间，并给接收方未读 +1
	AppendPreview(ctx context.Context, id primitive.ObjectID, preview, recipientRole string, at time.Time) error
	// ResetUnread 把某角色未读清零，返回清零前的值；已经为 0 时返回 0
	ResetUnread(ctx context.Context, id primitive.ObjectID, role string) (int64, error)
	// SetResolved / SetOpen 返回是否真的发生了状态变化
	SetResolved(ctx context.Context, id primitive.ObjectID, resolved bool) (bool, error)
	SetOpen(ctx context.Context, id primitive.ObjectID, open bool) (bool, error)
	UpdateCustomData(ctx context.Context, id primitive.ObjectID, data map[string]string) error
	Recount(ctx context.Context, workspaceID primitive.ObjectID) (*ConversationRecount, error)
	DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error)
}

type conversationRepoImpl struct {
	col *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) ConversationRepo {
	return &conversationRepoImpl{col: db.Collection(ConversationCollection)}
}

func (s *conversationRepoImpl) Create(ctx context.Context, conv *Conversation) error {
	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, conv)
	return err
}

func (s *conversationRepoImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Conversation, error) {
	return s.findOne(ctx, bson.M{"_id": id}, nil)
}

func (s *conversationRepoImpl) FindByExternalID(ctx context.Context, workspaceID primitive.ObjectID, externalID string) (*Conversation, error) {
	return s.findOne(ctx, bson.M{"workspace_id": workspaceID, "external_id": externalID}, latestFirst())
}

func (s *conversationRepoImpl) FindByEmail(ctx context.Context, workspaceID primitive.ObjectID, email string) (*Conversation, error) {
	return s.findOne(ctx, bson.M{"workspace_id": workspaceID, "customer_email": email}, latestFirst())
}

func latestFirst() *options.FindOneOptions {
	return options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}})
}

func (s *conversationRepoImpl) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*Conversation, error) {
	var conv Conversation
	var res *mongo.SingleResult
	if opts != nil {
		res = s.col.FindOne(ctx, filter, opts)
	} else {
		res = s.col.FindOne(ctx, filter)
	}
	if err := res.Decode(&conv); err != nil {
		return nil, notFound(err)
	}
	return &conv, nil
}

func (s *conversationRepoImpl) ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]*Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.col.Find(ctx, bson.M{"workspace_id": workspaceID}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var list []*Conversation
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *conversationRepoImpl) AppendPreview(ctx context.Context, id primitive.ObjectID, preview, recipientRole string, at time.Time) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"last_message": preview, "updated_at": at},
		"$inc": bson.M{UnreadField(recipientRole): 1},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetUnread 条件是计数 > 0，重复投递的通知拿到的是 0，不会重复扣减
func (s *conversationRepoImpl) ResetUnread(ctx context.Context, id primitive.ObjectID, role string) (int64, error) {
	field := UnreadField(role)
	var before Conversation
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, field: bson.M{"$gt": 0}},
		bson.M{"$set": bson.M{field: 0}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return before.UnreadFor(role), nil
}

func (s *conversationRepoImpl) SetResolved(ctx context.Context, id primitive.ObjectID, resolved bool) (bool, error) {
	return s.transition(ctx, id, "is_resolved", resolved)
}

func (s *conversationRepoImpl) SetOpen(ctx context.Context, id primitive.ObjectID, open bool) (bool, error) {
	return s.transition(ctx, id, "is_open", open)
}

func (s *conversationRepoImpl) transition(ctx context.Context, id primitive.ObjectID, field string, value bool) (bool, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, field: !value},
		bson.M{"$set": bson.M{field: value, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *conversationRepoImpl) UpdateCustomData(ctx context.Context, id primitive.ObjectID, data map[string]string) error {
	if len(data) == 0 {
		return nil
	}
	set := bson.M{}
	for k, v := range data {
		set["custom_data."+k] = v
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *conversationRepoImpl) Recount(ctx context.Context, workspaceID primitive.ObjectID) (*ConversationRecount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"workspace_id": workspaceID}}},
		{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"conversations": bson.M{"$sum": 1},
			"unresolved": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$is_resolved", false}}, 1, 0},
			}},
			"unread": bson.M{"$sum": "$unread_count_admin"},
		}}},
	}
	cursor, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var rows []ConversationRecount
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &ConversationRecount{}, nil
	}
	return &rows[0], nil
}

func (s *conversationRepoImpl) DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"workspace_id": workspaceID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
