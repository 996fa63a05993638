package services

import (
	"context"
	"log"

	"lingo-server/auth"
	"lingo-server/models"
	"lingo-server/stores"
	"lingo-server/stream"
	"lingo-server/utils/errors"
)

// AuthService orchestrates signup, signin, Google login, onboarding and the
// administrative wipe. Every dependency comes in through the constructor.
type AuthService struct {
	users  stores.UserStore
	hasher auth.PasswordHasher
	tokens auth.TokenIssuer
	chat   stream.ChatProvider
}

func NewAuthService(users stores.UserStore, hasher auth.PasswordHasher, tokens auth.TokenIssuer, chat stream.ChatProvider) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, chat: chat}
}

// GoogleIdentity is the external identity delivered by the OAuth callback.
type GoogleIdentity struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// DeletedCounts reports the administrative wipe result.
type DeletedCounts struct {
	Local  int64 `json:"deletedLocal"`
	Remote int   `json:"deletedRemote"`
}

// Signup registers a local account and returns a session token. The email
// must not belong to an active (non-deleted) account.
func (s *AuthService) Signup(ctx context.Context, email, fullName, password, image string) (string, error) {
	_, err := s.users.GetActiveByEmail(ctx, email)
	if err == nil {
		return "", errors.ErrDuplicateAccount
	}
	if err != errors.ErrNotFound {
		return "", err
	}

	user := &models.User{
		Email:    email,
		FullName: fullName,
		Image:    image,
		Provider: models.ProviderLocal,
	}
	if err := s.preparePassword(user, password); err != nil {
		return "", err
	}

	user, err = s.users.Create(ctx, user)
	if err != nil {
		return "", err
	}

	if err := s.upsertProfile(ctx, user); err != nil {
		return "", err
	}

	return s.tokens.Issue(user.ID.Hex(), user.Email)
}

// preparePassword hashes the plaintext onto the record before persistence.
// OAuth accounts carry no password, so hashing only applies to local ones.
func (s *AuthService) preparePassword(user *models.User, password string) error {
	if user.Provider != models.ProviderLocal || password == "" {
		return nil
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	user.Password = hashed
	return nil
}

// Signin authenticates a local account and returns a session token.
func (s *AuthService) Signin(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user.Password == "" {
		return "", errors.ErrNoPasswordSet
	}
	if !s.hasher.Verify(password, user.Password) {
		return "", errors.ErrInvalidCredentials
	}
	return s.tokens.Issue(user.ID.Hex(), user.Email)
}

// CreateOrLoginGoogleUser resolves the external identity to a local user and
// returns a session token.
func (s *AuthService) CreateOrLoginGoogleUser(ctx context.Context, identity GoogleIdentity) (string, error) {
	user, err := s.resolveGoogleIdentity(ctx, identity)
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(user.ID.Hex(), user.Email)
}

// resolveGoogleIdentity looks the identity up by email and creates the user
// on first login. Repeat logins return the existing record untouched. An
// identity without an email (a failed or malformed userinfo response) must
// not become a user.
func (s *AuthService) resolveGoogleIdentity(ctx context.Context, identity GoogleIdentity) (*models.User, error) {
	if identity.Email == "" {
		return nil, errors.ValidationError("Google identity carries no email")
	}
	user, err := s.users.GetByEmail(ctx, identity.Email)
	if err == nil {
		return user, nil
	}
	if err != errors.ErrNotFound {
		return nil, err
	}

	user, err = s.users.Create(ctx, &models.User{
		Email:    identity.Email,
		FullName: identity.Name,
		Image:    identity.Picture,
		Provider: models.ProviderGoogle,
	})
	if err != nil {
		return nil, errors.Wrap(err, "IDENTITY_CREATION_FAILED", "Failed to create Google user", 500)
	}
	if user == nil {
		return nil, errors.NewAPIError("IDENTITY_CREATION_FAILED", "Failed to create Google user", 500)
	}

	if err := s.upsertProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetMe returns the user behind a session id, or nil (without error) when
// the record no longer exists. Callers must check for the nil sentinel.
func (s *AuthService) GetMe(ctx context.Context, idHex string) (*models.User, error) {
	id, err := stores.ParseID(idHex)
	if err != nil {
		return nil, nil
	}
	user, err := s.users.GetByID(ctx, id)
	if err == errors.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindUserByID resolves a session claim id to a user for the session guard.
func (s *AuthService) FindUserByID(ctx context.Context, idHex string) (*models.User, error) {
	id, err := stores.ParseID(idHex)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

// Onboard completes the profile, marks the user onboarded and re-syncs the
// chat provider with the new display name and image.
func (s *AuthService) Onboard(ctx context.Context, idHex, email string, profile models.OnboardingProfile) (*models.User, error) {
	id, err := stores.ParseID(idHex)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Onboard(ctx, id, email, profile)
	if err != nil {
		return nil, err
	}

	if err := s.upsertProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAll hard-deletes every local user and every remote chat user except
// the reserved system account. Administrative, unscoped.
func (s *AuthService) DeleteAll(ctx context.Context) (DeletedCounts, error) {
	local, err := s.users.DeleteAll(ctx)
	if err != nil {
		return DeletedCounts{}, err
	}

	remote, err := s.chat.DeleteAllUsers(ctx)
	if err != nil {
		return DeletedCounts{Local: local}, errors.ExternalProvider(err)
	}

	log.Printf("Deleted %d local users, %d remote chat users", local, remote)
	return DeletedCounts{Local: local, Remote: remote}, nil
}

func (s *AuthService) upsertProfile(ctx context.Context, user *models.User) error {
	err := s.chat.UpsertUser(ctx, stream.UpsertedUser{
		ID:    user.ID.Hex(),
		Name:  user.FullName,
		Image: user.Image,
	})
	if err != nil {
		return errors.ExternalProvider(err)
	}
	return nil
}
