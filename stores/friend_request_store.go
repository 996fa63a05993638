package stores

import (
	"context"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"lingo-server/models"
	"lingo-server/utils/errors"
)

// FriendRequestStore persists friend-request records.
type FriendRequestStore interface {
	Create(ctx context.Context, sender, receiver primitive.ObjectID) (*models.FriendRequest, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.FriendRequest, error)
	// FindBetween returns every request between the pair in either
	// direction, regardless of status.
	FindBetween(ctx context.Context, a, b primitive.ObjectID) ([]models.FriendRequest, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error
	ListBySender(ctx context.Context, sender primitive.ObjectID, status string) ([]models.FriendRequest, error)
	ListByReceiver(ctx context.Context, receiver primitive.ObjectID, status string) ([]models.FriendRequest, error)
	ListAll(ctx context.Context) ([]models.FriendRequest, error)
}

// MongoFriendRequestStore stores requests in the "friend_requests" collection.
type MongoFriendRequestStore struct {
	coll *mongo.Collection
}

func NewMongoFriendRequestStore(db *mongo.Database) *MongoFriendRequestStore {
	return &MongoFriendRequestStore{coll: db.Collection("friend_requests")}
}

func (s *MongoFriendRequestStore) Create(ctx context.Context, sender, receiver primitive.ObjectID) (*models.FriendRequest, error) {
	now := time.Now()
	request := &models.FriendRequest{
		Sender:    sender,
		Receiver:  receiver,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := s.coll.InsertOne(ctx, request)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to create friend request", http.StatusInternalServerError)
	}
	request.ID = result.InsertedID.(primitive.ObjectID)
	return request, nil
}

func (s *MongoFriendRequestStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to load friend request", http.StatusInternalServerError)
	}
	return &request, nil
}

func (s *MongoFriendRequestStore) FindBetween(ctx context.Context, a, b primitive.ObjectID) ([]models.FriendRequest, error) {
	return s.find(ctx, bson.M{
		"$or": []bson.M{
			{"sender": a, "receiver": b},
			{"sender": b, "receiver": a},
		},
	})
}

func (s *MongoFriendRequestStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
	)
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to update friend request", http.StatusInternalServerError)
	}
	if result.MatchedCount == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (s *MongoFriendRequestStore) ListBySender(ctx context.Context, sender primitive.ObjectID, status string) ([]models.FriendRequest, error) {
	return s.find(ctx, bson.M{"sender": sender, "status": status})
}

func (s *MongoFriendRequestStore) ListByReceiver(ctx context.Context, receiver primitive.ObjectID, status string) ([]models.FriendRequest, error) {
	return s.find(ctx, bson.M{"receiver": receiver, "status": status})
}

func (s *MongoFriendRequestStore) ListAll(ctx context.Context) ([]models.FriendRequest, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoFriendRequestStore) find(ctx context.Context, filter bson.M) ([]models.FriendRequest, error) {
	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to query friend requests", http.StatusInternalServerError)
	}

	requests := []models.FriendRequest{}
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to decode friend requests", http.StatusInternalServerError)
	}
	return requests, nil
}
