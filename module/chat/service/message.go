package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"DevChat/module/chat/model"
)

// Store is the durable message store over mongo. Append implements the
// gateway's MessageStore; the read side serves the history endpoints only.
type Store struct {
	messages *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{messages: db.Collection((&model.Message{}).GetTableName())}
}

// Append persists one message. createdAt is server-assigned by the caller so
// the stored record and the live push carry the same timestamp.
func (s *Store) Append(ctx context.Context, fromUserID, toUserID, text string, createdAt time.Time) error {
	m := &model.Message{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Text:       text,
		CreateTime: createdAt,
	}
	_, err := s.messages.InsertOne(ctx, m)
	return errors.Wrap(err, "append message")
}

// History returns the full conversation between two users, oldest first.
func (s *Store) History(ctx context.Context, userA, userB string) ([]model.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"from_user_id": userA, "to_user_id": userB},
		bson.M{"from_user_id": userB, "to_user_id": userA},
	}}
	return s.find(ctx, filter)
}

// InboxFor returns everything addressed to userID, oldest first.
func (s *Store) InboxFor(ctx context.Context, userID string) ([]model.Message, error) {
	return s.find(ctx, bson.M{"to_user_id": userID})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]model.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "create_time", Value: 1}})
	cur, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find messages")
	}
	defer cur.Close(ctx)
	var out []model.Message
	for cur.Next(ctx) {
		m := model.Message{}
		if err := cur.Decode(&m); err != nil {
			return nil, errors.Wrap(err, "decode message")
		}
		out = append(out, m)
	}
	return out, cur.Err()
}
