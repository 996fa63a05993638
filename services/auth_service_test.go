package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"lingo-server/auth"
	"lingo-server/models"
	"lingo-server/stores"
	"lingo-server/stream"
	apierrors "lingo-server/utils/errors"
)

type fakeChat struct {
	upserts []stream.UpsertedUser
	deleted int
	fail    bool
}

func (f *fakeChat) UpsertUser(ctx context.Context, user stream.UpsertedUser) error {
	if f.fail {
		return errors.New("stream unavailable")
	}
	f.upserts = append(f.upserts, user)
	return nil
}

func (f *fakeChat) CreateToken(userID string) (string, error) {
	return "chat-token-" + userID, nil
}

func (f *fakeChat) DeleteAllUsers(ctx context.Context) (int, error) {
	if f.fail {
		return 0, errors.New("stream unavailable")
	}
	return f.deleted, nil
}

func newAuthFixture() (*AuthService, *stores.InMemoryUserStore, *fakeChat, *auth.JWTManager) {
	users := stores.NewInMemoryUserStore()
	chat := &fakeChat{}
	tokens := auth.NewJWTManager("test-secret", time.Hour)
	service := NewAuthService(users, auth.NewBcryptHasher(), tokens, chat)
	return service, users, chat, tokens
}

func TestSignupIssuesVerifiableToken(t *testing.T) {
	service, users, chat, tokens := newAuthFixture()
	ctx := context.Background()

	token, err := service.Signup(ctx, "mira@example.com", "Mira K", "hunter22", "pic.png")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.Email != "mira@example.com" {
		t.Fatalf("claims.Email mismatch: got %s", claims.Email)
	}

	user, err := users.GetByEmail(ctx, "mira@example.com")
	if err != nil {
		t.Fatalf("user not persisted: %v", err)
	}
	if user.ID.Hex() != claims.ID {
		t.Fatalf("token id %s != stored id %s", claims.ID, user.ID.Hex())
	}
	if user.Provider != models.ProviderLocal {
		t.Fatalf("provider = %s, want local", user.Provider)
	}
	if user.IsOnBoarded || user.IsDeleted {
		t.Fatal("new user must start not onboarded and not deleted")
	}
	if user.Password == "" || user.Password == "hunter22" {
		t.Fatal("password must be stored hashed")
	}
	if len(chat.upserts) != 1 || chat.upserts[0].ID != user.ID.Hex() {
		t.Fatalf("profile not upserted to chat provider: %+v", chat.upserts)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	service, _, _, _ := newAuthFixture()
	ctx := context.Background()

	if _, err := service.Signup(ctx, "dup@example.com", "First", "password1", ""); err != nil {
		t.Fatalf("first Signup failed: %v", err)
	}
	_, err := service.Signup(ctx, "dup@example.com", "Second", "password2", "")
	if err != apierrors.ErrDuplicateAccount {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

// The unique email index blocks re-signup even when the prior account is
// soft-deleted; the duplicate surfaces from the store instead of the
// pre-check.
func TestSignupSoftDeletedEmailStaysBlocked(t *testing.T) {
	service, users, _, _ := newAuthFixture()
	ctx := context.Background()

	if _, err := users.Create(ctx, &models.User{
		Email:     "gone@example.com",
		Provider:  models.ProviderLocal,
		IsDeleted: true,
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, err := service.Signup(ctx, "gone@example.com", "Back Again", "password1", "")
	if err != apierrors.ErrDuplicateAccount {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestSigninFlows(t *testing.T) {
	service, users, _, tokens := newAuthFixture()
	ctx := context.Background()

	signupToken, err := service.Signup(ctx, "kai@example.com", "Kai", "pass-word", "")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	signupClaims, _ := tokens.Verify(signupToken)

	token, err := service.Signin(ctx, "kai@example.com", "pass-word")
	if err != nil {
		t.Fatalf("Signin failed: %v", err)
	}
	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("signin token does not verify: %v", err)
	}
	if claims.ID != signupClaims.ID || claims.Email != signupClaims.Email {
		t.Fatal("signin token identifies a different user than signup")
	}

	if _, err := service.Signin(ctx, "kai@example.com", "wrong"); err != apierrors.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := service.Signin(ctx, "nobody@example.com", "pass-word"); err != apierrors.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// OAuth-only accounts have no password to check against.
	if _, err := users.Create(ctx, &models.User{
		Email:    "oauth@example.com",
		Provider: models.ProviderGoogle,
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := service.Signin(ctx, "oauth@example.com", "anything"); err != apierrors.ErrNoPasswordSet {
		t.Fatalf("expected ErrNoPasswordSet, got %v", err)
	}
}

func TestGoogleLoginIsIdempotent(t *testing.T) {
	service, users, chat, tokens := newAuthFixture()
	ctx := context.Background()

	identity := GoogleIdentity{Email: "g@example.com", Name: "G User", Picture: "g.png"}

	first, err := service.CreateOrLoginGoogleUser(ctx, identity)
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	second, err := service.CreateOrLoginGoogleUser(ctx, identity)
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}

	firstClaims, _ := tokens.Verify(first)
	secondClaims, _ := tokens.Verify(second)
	if firstClaims.ID != secondClaims.ID {
		t.Fatal("repeat login resolved to a different user")
	}

	user, err := users.GetByEmail(ctx, "g@example.com")
	if err != nil {
		t.Fatalf("google user not persisted: %v", err)
	}
	if user.Provider != models.ProviderGoogle {
		t.Fatalf("provider = %s, want google", user.Provider)
	}
	if user.Password != "" {
		t.Fatal("google account must carry no password")
	}
	if user.FullName != "G User" || user.Image != "g.png" {
		t.Fatalf("profile fields not taken from identity: %+v", user)
	}
	if len(chat.upserts) != 1 {
		t.Fatalf("expected exactly one chat upsert, got %d", len(chat.upserts))
	}
}

// A failed userinfo fetch decodes to an empty identity; it must not mint a
// user with an empty email.
func TestGoogleLoginRejectsEmptyIdentity(t *testing.T) {
	service, users, _, _ := newAuthFixture()
	ctx := context.Background()

	if _, err := service.CreateOrLoginGoogleUser(ctx, GoogleIdentity{Name: "No Mail"}); err == nil {
		t.Fatal("expected an error for an identity without an email")
	}

	if count, _ := users.DeleteAll(ctx); count != 0 {
		t.Fatalf("an empty-email user was created: %d records", count)
	}
}

func TestSignupChatProviderFailureIsHard(t *testing.T) {
	service, users, chat, _ := newAuthFixture()
	chat.fail = true
	ctx := context.Background()

	if _, err := service.Signup(ctx, "lost@example.com", "Lost", "password1", ""); err == nil {
		t.Fatal("expected signup to fail when the chat provider is down")
	}

	// No compensating rollback: the local user survives the failed upsert.
	if _, err := users.GetByEmail(ctx, "lost@example.com"); err != nil {
		t.Fatalf("local user should still exist: %v", err)
	}
}

func TestOnboard(t *testing.T) {
	service, _, chat, tokens := newAuthFixture()
	ctx := context.Background()

	token, err := service.Signup(ctx, "elio@example.com", "Elio", "password1", "")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	claims, _ := tokens.Verify(token)

	profile := models.OnboardingProfile{
		FullName:         "Elio Rossi",
		Bio:              "learning for travel",
		NativeLanguage:   "Italian",
		LearningLanguage: "Japanese",
		Location:         "Torino",
	}
	user, err := service.Onboard(ctx, claims.ID, claims.Email, profile)
	if err != nil {
		t.Fatalf("Onboard failed: %v", err)
	}
	if !user.IsOnBoarded {
		t.Fatal("IsOnBoarded not set")
	}
	if user.NativeLanguage != "Italian" || user.Location != "Torino" {
		t.Fatalf("profile fields not applied: %+v", user)
	}

	// Signup and onboarding each re-sync the chat provider.
	if len(chat.upserts) != 2 {
		t.Fatalf("expected 2 chat upserts, got %d", len(chat.upserts))
	}
	last := chat.upserts[len(chat.upserts)-1]
	if last.Name != "Elio Rossi" {
		t.Fatalf("chat provider got stale name %q", last.Name)
	}

	if _, err := service.Onboard(ctx, "64f0c1e2a3b4c5d6e7f80912", "ghost@example.com", profile); err != apierrors.ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestGetMeSentinel(t *testing.T) {
	service, _, _, _ := newAuthFixture()
	ctx := context.Background()

	user, err := service.GetMe(ctx, "64f0c1e2a3b4c5d6e7f80912")
	if err != nil {
		t.Fatalf("GetMe must not error for a missing user: %v", err)
	}
	if user != nil {
		t.Fatal("expected nil sentinel for missing user")
	}

	user, err = service.GetMe(ctx, "not-a-hex-id")
	if err != nil || user != nil {
		t.Fatalf("expected nil sentinel for malformed id, got %v / %v", user, err)
	}
}

func TestDeleteAll(t *testing.T) {
	service, users, chat, _ := newAuthFixture()
	chat.deleted = 3
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com"} {
		if _, err := service.Signup(ctx, email, "Name", "password1", ""); err != nil {
			t.Fatalf("seed signup failed: %v", err)
		}
	}

	counts, err := service.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if counts.Local != 2 || counts.Remote != 3 {
		t.Fatalf("counts = %+v, want local 2 remote 3", counts)
	}

	if _, err := users.GetByEmail(ctx, "a@example.com"); err != apierrors.ErrNotFound {
		t.Fatal("users not wiped")
	}
}
