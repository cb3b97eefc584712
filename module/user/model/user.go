package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the account master record. UserID is the short public identifier
// people exchange to add each other; it never changes. Friends holds the
// public IDs of accepted friends (the edge is written on both sides).
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID       string             `bson:"user_id" json:"userId"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Friends      []string           `bson:"friends" json:"-"`
	CreateTime   time.Time          `bson:"create_time" json:"-"`
}

func (u *User) GetTableName() string { return "user" }

// Ref is the public projection pushed to clients.
type Ref struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (u *User) Ref() Ref { return Ref{UserID: u.UserID, Username: u.Username} }
