package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one stored chat message. Append-only: the gateway writes every
// outgoing message here regardless of delivery outcome and never mutates it.
type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	FromUserID string             `bson:"from_user_id" json:"fromUserId"`
	ToUserID   string             `bson:"to_user_id" json:"toUserId"`
	Text       string             `bson:"text" json:"text"`
	CreateTime time.Time          `bson:"create_time" json:"createdAt"`
}

func (m *Message) GetTableName() string { return "message" }
