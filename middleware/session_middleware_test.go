package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"lingo-server/auth"
	"lingo-server/config"
	"lingo-server/models"
	"lingo-server/utils/errors"
)

type fakeResolver struct {
	users map[string]*models.User
}

func (f *fakeResolver) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return user, nil
}

func newGuardFixture(t *testing.T) (*auth.JWTManager, *fakeResolver, http.Handler, *Identity) {
	t.Helper()
	tokens := auth.NewJWTManager("test-secret", time.Hour)
	resolver := &fakeResolver{users: map[string]*models.User{}}

	var seen Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			t.Error("identity missing from context in protected handler")
		}
		seen = identity
		w.WriteHeader(http.StatusOK)
	})

	return tokens, resolver, SessionGuard(tokens, resolver)(next), &seen
}

func TestSessionGuardMissingCookie(t *testing.T) {
	_, _, guard, _ := newGuardFixture(t)

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, httptest.NewRequest("GET", "/user/friends", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body struct {
		Success    bool   `json:"success"`
		StatusCode int    `json:"statusCode"`
		Method     string `json:"method"`
		URL        string `json:"url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if body.Success || body.StatusCode != 401 || body.Method != "GET" || body.URL != "/user/friends" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
}

func TestSessionGuardInvalidToken(t *testing.T) {
	_, _, guard, _ := newGuardFixture(t)

	req := httptest.NewRequest("GET", "/user/friends", nil)
	req.AddCookie(&http.Cookie{Name: config.SessionCookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSessionGuardVanishedUser(t *testing.T) {
	tokens, _, guard, _ := newGuardFixture(t)

	token, err := tokens.Issue(primitive.NewObjectID().Hex(), "ghost@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	req := httptest.NewRequest("GET", "/user/friends", nil)
	req.AddCookie(&http.Cookie{Name: config.SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for a deleted user", rec.Code)
	}
}

func TestSessionGuardAttachesIdentity(t *testing.T) {
	tokens, resolver, guard, seen := newGuardFixture(t)

	id := primitive.NewObjectID()
	resolver.users[id.Hex()] = &models.User{ID: id, Email: "live@example.com"}

	token, err := tokens.Issue(id.Hex(), "live@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	req := httptest.NewRequest("GET", "/user/friends", nil)
	req.AddCookie(&http.Cookie{Name: config.SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen.ID != id.Hex() || seen.Email != "live@example.com" {
		t.Fatalf("identity = %+v", seen)
	}
}
