package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FriendRequest status values.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestDeclined = "declined"
)

type FriendRequest struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FromUserID string             `bson:"from_user_id" json:"fromUserId"`
	ToUserID   string             `bson:"to_user_id" json:"toUserId"`
	Status     string             `bson:"status" json:"status"`
	CreateTime time.Time          `bson:"create_time" json:"createdAt"`
}

func (r *FriendRequest) GetTableName() string { return "friend_request" }
