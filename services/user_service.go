package services

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"lingo-server/models"
	"lingo-server/stores"
	"lingo-server/utils/errors"
)

// UserService orchestrates recommendation, friend listing and the
// friend-request state machine.
type UserService struct {
	users    stores.UserStore
	requests stores.FriendRequestStore
}

func NewUserService(users stores.UserStore, requests stores.FriendRequestStore) *UserService {
	return &UserService{users: users, requests: requests}
}

// SendRequestResult carries either the newly created request or the
// already-existing ones between the pair.
type SendRequestResult struct {
	Created  *models.FriendRequest
	Existing []models.FriendRequest
}

// FriendRequestInbox is the partitioned request listing: pending requests
// addressed to the user, the accepted/rejected outcomes of requests the user
// sent, plus the unfiltered table for diagnostics.
type FriendRequestInbox struct {
	Incoming []models.PopulatedRequest `json:"incomingFriendRequest"`
	Accepted []models.PopulatedRequest `json:"acceptedFriendRequest"`
	Rejected []models.PopulatedRequest `json:"rejectedFriendRequest"`
	All      []models.FriendRequest    `json:"allFr"`
}

// GetRecommendedUsers returns onboarded users excluding the caller and the
// caller's friends.
func (s *UserService) GetRecommendedUsers(ctx context.Context, idHex string) ([]models.User, error) {
	id, err := stores.ParseID(idHex)
	if err != nil {
		return nil, err
	}
	current, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.users.ListRecommended(ctx, current)
}

// GetMyFriends expands the caller's friends set to full profiles.
func (s *UserService) GetMyFriends(ctx context.Context, idHex string) ([]models.User, error) {
	id, err := stores.ParseID(idHex)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.users.ListByIDs(ctx, user.Friends)
}

// GetUserByID returns a single user profile.
func (s *UserService) GetUserByID(ctx context.Context, idHex string) (*models.User, error) {
	id, err := stores.ParseID(idHex)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

// SendFriendRequest creates a pending request from sender to receiver. If a
// request already exists between the pair in either direction — whatever its
// status — the existing records are returned and nothing is created.
func (s *UserService) SendFriendRequest(ctx context.Context, receiverHex, senderHex string) (*SendRequestResult, error) {
	if receiverHex == senderHex {
		return nil, errors.ErrSelfRequest
	}
	receiverID, err := stores.ParseID(receiverHex)
	if err != nil {
		return nil, err
	}
	senderID, err := stores.ParseID(senderHex)
	if err != nil {
		return nil, err
	}

	receiver, err := s.users.GetByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	// The duplicate check runs before the friendship check so that an
	// accepted request keeps short-circuiting instead of erroring.
	existing, err := s.requests.FindBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &SendRequestResult{Existing: existing}, nil
	}

	if receiver.HasFriend(senderID) {
		return nil, errors.ErrAlreadyFriends
	}

	request, err := s.requests.Create(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	return &SendRequestResult{Created: request}, nil
}

// GetFriendRequests builds the request inbox for the user.
func (s *UserService) GetFriendRequests(ctx context.Context, idHex string) (*FriendRequestInbox, error) {
	id, err := stores.ParseID(idHex)
	if err != nil {
		return nil, err
	}

	incoming, err := s.requests.ListByReceiver(ctx, id, models.StatusPending)
	if err != nil {
		return nil, err
	}
	accepted, err := s.requests.ListBySender(ctx, id, models.StatusAccepted)
	if err != nil {
		return nil, err
	}
	rejected, err := s.requests.ListBySender(ctx, id, models.StatusRejected)
	if err != nil {
		return nil, err
	}
	all, err := s.requests.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	populatedIncoming, err := s.populateSenders(ctx, incoming)
	if err != nil {
		return nil, err
	}
	populatedAccepted, err := s.populateReceivers(ctx, accepted)
	if err != nil {
		return nil, err
	}
	populatedRejected, err := s.populateReceivers(ctx, rejected)
	if err != nil {
		return nil, err
	}

	return &FriendRequestInbox{
		Incoming: populatedIncoming,
		Accepted: populatedAccepted,
		Rejected: populatedRejected,
		All:      all,
	}, nil
}

// GetOutgoingFriendRequests returns the user's pending sent requests with
// receiver previews.
func (s *UserService) GetOutgoingFriendRequests(ctx context.Context, idHex string) ([]models.PopulatedRequest, error) {
	id, err := stores.ParseID(idHex)
	if err != nil {
		return nil, err
	}
	outgoing, err := s.requests.ListBySender(ctx, id, models.StatusPending)
	if err != nil {
		return nil, err
	}
	return s.populateReceivers(ctx, outgoing)
}

// AcceptFriendRequest marks a pending request accepted and inserts each party
// into the other's friends set. Accepted and rejected are terminal, so a
// resolved request cannot be accepted again. The two friend writes are
// independent updates issued concurrently; a crash between them can leave a
// one-sided friendship (the document store gives no cross-document
// transaction here).
func (s *UserService) AcceptFriendRequest(ctx context.Context, receiverHex, requestHex string) (string, error) {
	requestID, err := stores.ParseID(requestHex)
	if err != nil {
		return "", err
	}
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return "", err
	}
	if request.Receiver.Hex() != receiverHex {
		return "", errors.ErrForbidden
	}
	if request.Status != models.StatusPending {
		return "", errors.ErrRequestClosed
	}

	if err := s.requests.UpdateStatus(ctx, requestID, models.StatusAccepted); err != nil {
		return "", err
	}

	var wg sync.WaitGroup
	var errReceiver, errSender error
	wg.Add(2)
	go func() {
		defer wg.Done()
		errReceiver = s.users.AddFriend(ctx, request.Receiver, request.Sender)
	}()
	go func() {
		defer wg.Done()
		errSender = s.users.AddFriend(ctx, request.Sender, request.Receiver)
	}()
	wg.Wait()
	if errReceiver != nil {
		return "", errReceiver
	}
	if errSender != nil {
		return "", errSender
	}

	sender, err := s.users.GetByID(ctx, request.Sender)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Friend request from %s accepted", sender.FullName), nil
}

// RejectFriendRequest marks the request rejected. Friends sets are untouched.
func (s *UserService) RejectFriendRequest(ctx context.Context, receiverHex, requestHex string) (string, error) {
	requestID, err := stores.ParseID(requestHex)
	if err != nil {
		return "", err
	}
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return "", err
	}
	if request.Receiver.Hex() != receiverHex {
		return "", errors.ErrForbidden
	}

	if err := s.requests.UpdateStatus(ctx, requestID, models.StatusRejected); err != nil {
		return "", err
	}

	sender, err := s.users.GetByID(ctx, request.Sender)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Friend Request from %s rejected", sender.FullName), nil
}

// populateSenders expands the sender of each request to its restricted
// profile, leaving the receiver as a raw id.
func (s *UserService) populateSenders(ctx context.Context, requests []models.FriendRequest) ([]models.PopulatedRequest, error) {
	byID, err := s.lookup(ctx, requests, func(r models.FriendRequest) primitive.ObjectID { return r.Sender })
	if err != nil {
		return nil, err
	}

	populated := []models.PopulatedRequest{}
	for _, r := range requests {
		view := models.PopulatedRequest{
			ID:        r.ID,
			Receiver:  r.Receiver,
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		}
		if user, ok := byID[r.Sender]; ok {
			view.Sender = user.Summary()
		} else {
			view.Sender = r.Sender
		}
		populated = append(populated, view)
	}
	return populated, nil
}

func (s *UserService) populateReceivers(ctx context.Context, requests []models.FriendRequest) ([]models.PopulatedRequest, error) {
	byID, err := s.lookup(ctx, requests, func(r models.FriendRequest) primitive.ObjectID { return r.Receiver })
	if err != nil {
		return nil, err
	}

	populated := []models.PopulatedRequest{}
	for _, r := range requests {
		view := models.PopulatedRequest{
			ID:        r.ID,
			Sender:    r.Sender,
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		}
		if user, ok := byID[r.Receiver]; ok {
			view.Receiver = user.Summary()
		} else {
			view.Receiver = r.Receiver
		}
		populated = append(populated, view)
	}
	return populated, nil
}

func (s *UserService) lookup(ctx context.Context, requests []models.FriendRequest, party func(models.FriendRequest) primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	ids := []primitive.ObjectID{}
	seen := map[primitive.ObjectID]bool{}
	for _, r := range requests {
		id := party(r)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := map[primitive.ObjectID]models.User{}
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}
