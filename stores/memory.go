package stores

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"lingo-server/models"
	"lingo-server/utils/errors"
)

// InMemoryUserStore is a map-backed UserStore with the same semantics as the
// Mongo implementation (unique email, set-valued friends). The service and
// handler tests run against it.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]*models.User
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: map[primitive.ObjectID]*models.User{}}
}

func (s *InMemoryUserStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return nil, errors.ErrDuplicateAccount
		}
	}

	clone := *user
	clone.ID = primitive.NewObjectID()
	now := time.Now()
	clone.CreatedAt = now
	clone.UpdatedAt = now
	if clone.Friends == nil {
		clone.Friends = []primitive.ObjectID{}
	}
	s.users[clone.ID] = &clone

	copied := clone
	return &copied, nil
}

func (s *InMemoryUserStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *InMemoryUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findByEmail(email, false)
}

func (s *InMemoryUserStore) GetActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findByEmail(email, true)
}

func (s *InMemoryUserStore) findByEmail(email string, activeOnly bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email && (!activeOnly || !u.IsDeleted) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (s *InMemoryUserStore) Onboard(ctx context.Context, id primitive.ObjectID, email string, profile models.OnboardingProfile) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || user.Email != email {
		return nil, errors.ErrNotFound
	}

	user.FullName = profile.FullName
	user.Bio = profile.Bio
	user.NativeLanguage = profile.NativeLanguage
	user.LearningLanguage = profile.LearningLanguage
	user.Location = profile.Location
	if profile.Image != "" {
		user.Image = profile.Image
	}
	user.IsOnBoarded = true
	user.UpdatedAt = time.Now()

	clone := *user
	return &clone, nil
}

func (s *InMemoryUserStore) AddFriend(ctx context.Context, userID, friendID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return errors.ErrNotFound
	}
	if !user.HasFriend(friendID) {
		user.Friends = append(user.Friends, friendID)
		user.UpdatedAt = time.Now()
	}
	return nil
}

func (s *InMemoryUserStore) ListRecommended(ctx context.Context, self *models.User) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recommended := []models.User{}
	for _, u := range s.users {
		if u.ID == self.ID || !u.IsOnBoarded || self.HasFriend(u.ID) {
			continue
		}
		recommended = append(recommended, *u)
	}
	return recommended, nil
}

func (s *InMemoryUserStore) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := []models.User{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (s *InMemoryUserStore) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := int64(len(s.users))
	s.users = map[primitive.ObjectID]*models.User{}
	return count, nil
}

// InMemoryFriendRequestStore is the map-backed FriendRequestStore.
type InMemoryFriendRequestStore struct {
	mu       sync.RWMutex
	requests map[primitive.ObjectID]*models.FriendRequest
}

func NewInMemoryFriendRequestStore() *InMemoryFriendRequestStore {
	return &InMemoryFriendRequestStore{requests: map[primitive.ObjectID]*models.FriendRequest{}}
}

func (s *InMemoryFriendRequestStore) Create(ctx context.Context, sender, receiver primitive.ObjectID) (*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	request := &models.FriendRequest{
		ID:        primitive.NewObjectID(),
		Sender:    sender,
		Receiver:  receiver,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.requests[request.ID] = request

	clone := *request
	return &clone, nil
}

func (s *InMemoryFriendRequestStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.requests[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	clone := *request
	return &clone, nil
}

func (s *InMemoryFriendRequestStore) FindBetween(ctx context.Context, a, b primitive.ObjectID) ([]models.FriendRequest, error) {
	return s.filter(func(r *models.FriendRequest) bool {
		return (r.Sender == a && r.Receiver == b) || (r.Sender == b && r.Receiver == a)
	}), nil
}

func (s *InMemoryFriendRequestStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[id]
	if !ok {
		return errors.ErrNotFound
	}
	request.Status = status
	request.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryFriendRequestStore) ListBySender(ctx context.Context, sender primitive.ObjectID, status string) ([]models.FriendRequest, error) {
	return s.filter(func(r *models.FriendRequest) bool {
		return r.Sender == sender && r.Status == status
	}), nil
}

func (s *InMemoryFriendRequestStore) ListByReceiver(ctx context.Context, receiver primitive.ObjectID, status string) ([]models.FriendRequest, error) {
	return s.filter(func(r *models.FriendRequest) bool {
		return r.Receiver == receiver && r.Status == status
	}), nil
}

func (s *InMemoryFriendRequestStore) ListAll(ctx context.Context) ([]models.FriendRequest, error) {
	return s.filter(func(*models.FriendRequest) bool { return true }), nil
}

func (s *InMemoryFriendRequestStore) filter(keep func(*models.FriendRequest) bool) []models.FriendRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []models.FriendRequest{}
	for _, r := range s.requests {
		if keep(r) {
			matched = append(matched, *r)
		}
	}
	return matched
}
