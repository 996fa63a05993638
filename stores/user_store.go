package stores

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lingo-server/models"
	"lingo-server/utils/errors"
)

// UserStore persists user records.
type UserStore interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetActiveByEmail ignores soft-deleted accounts (signup duplicate check).
	GetActiveByEmail(ctx context.Context, email string) (*models.User, error)
	// Onboard sets the profile fields and isOnBoarded on the user matching
	// id+email and returns the updated record.
	Onboard(ctx context.Context, id primitive.ObjectID, email string, profile models.OnboardingProfile) (*models.User, error)
	// AddFriend inserts friendID into userID's friends set (no duplicates).
	AddFriend(ctx context.Context, userID, friendID primitive.ObjectID) error
	// ListRecommended returns onboarded users excluding self and self's friends.
	ListRecommended(ctx context.Context, self *models.User) ([]models.User, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	DeleteAll(ctx context.Context) (int64, error)
}

const userCacheTTL = 24 * time.Hour

// MongoUserStore stores users in the "users" collection with a Redis
// read-through cache keyed by id.
type MongoUserStore struct {
	coll        *mongo.Collection
	redisClient *redis.Client
}

func NewMongoUserStore(db *mongo.Database, redisClient *redis.Client) *MongoUserStore {
	return &MongoUserStore{
		coll:        db.Collection("users"),
		redisClient: redisClient,
	}
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Friends == nil {
		user.Friends = []primitive.ObjectID{}
	}

	result, err := s.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errors.ErrDuplicateAccount
		}
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to create user in database", http.StatusInternalServerError)
	}
	user.ID = result.InsertedID.(primitive.ObjectID)

	s.cache(ctx, user)
	return user, nil
}

func (s *MongoUserStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	// Check Redis first
	if cached, err := s.redisClient.Get(ctx, userCacheKey(id)).Result(); err == nil {
		var user models.User
		if err := json.Unmarshal([]byte(cached), &user); err == nil {
			return &user, nil
		}
		log.Printf("Failed to unmarshal cached user %s", id.Hex())
	}

	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to load user", http.StatusInternalServerError)
	}

	s.cache(ctx, &user)
	return &user, nil
}

// GetByEmail always reads Mongo directly; the cached copy never carries the
// password hash, so credential checks must not go through it.
func (s *MongoUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUserStore) GetActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email, "isDeleted": false})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to load user", http.StatusInternalServerError)
	}
	return &user, nil
}

func (s *MongoUserStore) Onboard(ctx context.Context, id primitive.ObjectID, email string, profile models.OnboardingProfile) (*models.User, error) {
	set := bson.M{
		"fullName":         profile.FullName,
		"bio":              profile.Bio,
		"nativeLanguage":   profile.NativeLanguage,
		"learningLanguage": profile.LearningLanguage,
		"location":         profile.Location,
		"isOnBoarded":      true,
		"updatedAt":        time.Now(),
	}
	if profile.Image != "" {
		set["image"] = profile.Image
	}

	var user models.User
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "email": email},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to update user", http.StatusInternalServerError)
	}

	s.cache(ctx, &user)
	return &user, nil
}

func (s *MongoUserStore) AddFriend(ctx context.Context, userID, friendID primitive.ObjectID) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$addToSet": bson.M{"friends": friendID},
			"$set":      bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to update friends list", http.StatusInternalServerError)
	}

	s.invalidate(ctx, userID)
	return nil
}

func (s *MongoUserStore) ListRecommended(ctx context.Context, self *models.User) ([]models.User, error) {
	exclude := append([]primitive.ObjectID{self.ID}, self.Friends...)
	cursor, err := s.coll.Find(ctx, bson.M{
		"_id":         bson.M{"$nin": exclude},
		"isOnBoarded": true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to query users", http.StatusInternalServerError)
	}

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to decode users", http.StatusInternalServerError)
	}
	return users, nil
}

func (s *MongoUserStore) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	cursor, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to query users", http.StatusInternalServerError)
	}

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to decode users", http.StatusInternalServerError)
	}
	return users, nil
}

func (s *MongoUserStore) DeleteAll(ctx context.Context) (int64, error) {
	result, err := s.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(err, "DB_ERROR", "Failed to delete users", http.StatusInternalServerError)
	}

	if err := s.redisClient.FlushDB(ctx).Err(); err != nil {
		log.Printf("Failed to flush user cache: %v", err)
	}
	return result.DeletedCount, nil
}

// cache writes the user through to Redis; the json marshal strips the
// password hash, so cached copies are only good for id lookups.
func (s *MongoUserStore) cache(ctx context.Context, user *models.User) {
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, userCacheKey(user.ID), data, userCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache user %s: %v", user.ID.Hex(), err)
	}
}

func (s *MongoUserStore) invalidate(ctx context.Context, id primitive.ObjectID) {
	if err := s.redisClient.Del(ctx, userCacheKey(id)).Err(); err != nil {
		log.Printf("Failed to invalidate user %s: %v", id.Hex(), err)
	}
}

func userCacheKey(id primitive.ObjectID) string {
	return "user:" + id.Hex()
}
