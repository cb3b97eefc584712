package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"DevChat/module/user/model"
	"DevChat/tools/errs"
	"DevChat/tools/ids"
)

// Service owns the user and friend_request collections. It doubles as the
// gateway's identity directory (Resolve / FriendsOf).
type Service struct {
	users    *mongo.Collection
	requests *mongo.Collection
}

func New(db *mongo.Database) *Service {
	return &Service{
		users:    db.Collection((&model.User{}).GetTableName()),
		requests: db.Collection((&model.FriendRequest{}).GetTableName()),
	}
}

// Register creates an account with a bcrypt-hashed password and a generated
// public user ID.
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	if username == "" || password == "" {
		return nil, errs.ErrBadRequest.WithDetail("missing fields")
	}
	count, err := s.users.CountDocuments(ctx, bson.M{"username": username})
	if err != nil {
		return nil, errors.Wrap(err, "count users")
	}
	if count > 0 {
		return nil, errs.ErrUserExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	u := &model.User{
		UserID:       ids.NewUserID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Friends:      []string{},
		CreateTime:   time.Now(),
	}
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		return nil, errors.Wrap(err, "insert user")
	}
	return u, nil
}

// Login verifies credentials and returns the account.
func (s *Service) Login(ctx context.Context, username, password string) (*model.User, error) {
	u := &model.User{}
	err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, errs.ErrInvalidCredentials
	}
	return u, nil
}

// GetByUserID loads an account by its public ID.
func (s *Service) GetByUserID(ctx context.Context, userID string) (*model.User, error) {
	u := &model.User{}
	err := s.users.FindOne(ctx, bson.M{"user_id": userID}).Decode(u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return u, nil
}

// Resolve implements the gateway directory: public ID -> display name.
func (s *Service) Resolve(ctx context.Context, userID string) (string, bool, error) {
	u, err := s.GetByUserID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return u.Username, true, nil
}

// FriendsOf implements the gateway directory: the accepted friend edge set.
func (s *Service) FriendsOf(ctx context.Context, userID string) ([]string, error) {
	u, err := s.GetByUserID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u.Friends, nil
}

// ResolveMany loads public refs for a set of user IDs.
func (s *Service) ResolveMany(ctx context.Context, userIDs []string) ([]model.Ref, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"user_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, errors.Wrap(err, "find users")
	}
	defer cur.Close(ctx)
	var out []model.Ref
	for cur.Next(ctx) {
		u := &model.User{}
		if err := cur.Decode(u); err != nil {
			return nil, errors.Wrap(err, "decode user")
		}
		out = append(out, u.Ref())
	}
	return out, cur.Err()
}

// CreateFriendRequest opens a pending request from -> to.
func (s *Service) CreateFriendRequest(ctx context.Context, fromUserID, toUserID string) (*model.FriendRequest, *model.User, error) {
	target, err := s.GetByUserID(ctx, toUserID)
	if err != nil {
		return nil, nil, err
	}
	from, err := s.GetByUserID(ctx, fromUserID)
	if err != nil {
		return nil, nil, err
	}
	for _, f := range from.Friends {
		if f == toUserID {
			return nil, nil, errs.ErrBadRequest.WithDetail("already friends")
		}
	}
	fr := &model.FriendRequest{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     model.RequestPending,
		CreateTime: time.Now(),
	}
	res, err := s.requests.InsertOne(ctx, fr)
	if err != nil {
		return nil, nil, errors.Wrap(err, "insert friend request")
	}
	fr.ID = res.InsertedID.(primitive.ObjectID)
	return fr, target, nil
}

// PendingRequestsFor lists pending requests addressed to userID.
func (s *Service) PendingRequestsFor(ctx context.Context, userID string) ([]model.FriendRequest, error) {
	cur, err := s.requests.Find(ctx, bson.M{"to_user_id": userID, "status": model.RequestPending})
	if err != nil {
		return nil, errors.Wrap(err, "find requests")
	}
	defer cur.Close(ctx)
	var out []model.FriendRequest
	for cur.Next(ctx) {
		fr := model.FriendRequest{}
		if err := cur.Decode(&fr); err != nil {
			return nil, errors.Wrap(err, "decode request")
		}
		out = append(out, fr)
	}
	return out, cur.Err()
}

// AcceptFriendRequest marks the request accepted and writes the friend edge
// on both accounts. Only the addressee may accept. Returns the requester so
// the caller can notify them.
func (s *Service) AcceptFriendRequest(ctx context.Context, requestID, byUserID string) (*model.User, error) {
	fr, err := s.findRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if fr.ToUserID != byUserID {
		return nil, errs.ErrNotAuthorized
	}
	if _, err := s.requests.UpdateByID(ctx, fr.ID, bson.M{"$set": bson.M{"status": model.RequestAccepted}}); err != nil {
		return nil, errors.Wrap(err, "update request")
	}
	// $addToSet keeps the edge idempotent when the same request is accepted
	// twice.
	if _, err := s.users.UpdateOne(ctx, bson.M{"user_id": fr.FromUserID}, bson.M{"$addToSet": bson.M{"friends": fr.ToUserID}}); err != nil {
		return nil, errors.Wrap(err, "add friend edge")
	}
	if _, err := s.users.UpdateOne(ctx, bson.M{"user_id": fr.ToUserID}, bson.M{"$addToSet": bson.M{"friends": fr.FromUserID}}); err != nil {
		return nil, errors.Wrap(err, "add friend edge")
	}
	return s.GetByUserID(ctx, fr.FromUserID)
}

// RejectFriendRequest marks the request declined. Only the addressee may
// reject.
func (s *Service) RejectFriendRequest(ctx context.Context, requestID, byUserID string) error {
	fr, err := s.findRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if fr.ToUserID != byUserID {
		return errs.ErrNotAuthorized
	}
	_, err = s.requests.UpdateByID(ctx, fr.ID, bson.M{"$set": bson.M{"status": model.RequestDeclined}})
	return errors.Wrap(err, "update request")
}

func (s *Service) findRequest(ctx context.Context, requestID string) (*model.FriendRequest, error) {
	oid, err := primitive.ObjectIDFromHex(requestID)
	if err != nil {
		return nil, errs.ErrBadRequest.WithDetail("bad request id")
	}
	fr := &model.FriendRequest{}
	err = s.requests.FindOne(ctx, bson.M{"_id": oid}).Decode(fr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find request")
	}
	return fr, nil
}
