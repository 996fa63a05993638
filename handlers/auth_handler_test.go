package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lingo-server/auth"
	"lingo-server/config"
	"lingo-server/middleware"
	"lingo-server/models"
	"lingo-server/services"
	"lingo-server/stores"
	"lingo-server/stream"
)

type noopChat struct{}

func (noopChat) UpsertUser(ctx context.Context, user stream.UpsertedUser) error { return nil }
func (noopChat) CreateToken(userID string) (string, error)                      { return "tok", nil }
func (noopChat) DeleteAllUsers(ctx context.Context) (int, error)                { return 0, nil }

func newAuthHandlerFixture(t *testing.T) (*AuthHandler, *stores.InMemoryUserStore) {
	t.Helper()
	users := stores.NewInMemoryUserStore()
	tokens := auth.NewJWTManager("test-secret", time.Hour)
	service := services.NewAuthService(users, auth.NewBcryptHasher(), tokens, noopChat{})

	cfg := config.Config{Environment: "development", FrontendURL: "http://localhost:3000"}
	return NewAuthHandler(service, cfg), users
}

func TestSignupHandlerSetsCookie(t *testing.T) {
	handler, _ := newAuthHandlerFixture(t)

	body := `{"email":"new@example.com","fullName":"New User","password":"password1","image":""}`
	req := httptest.NewRequest("POST", "/auth/signup", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Signup(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token   string `json:"token"`
		Success bool   `json:"success"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body: %v", err)
	}
	if !resp.Success || resp.Token == "" {
		t.Fatalf("response = %+v", resp)
	}

	cookie := findCookie(rec.Result().Cookies(), config.SessionCookieName)
	if cookie == nil {
		t.Fatal("session cookie not set")
	}
	if cookie.Value != resp.Token || !cookie.HttpOnly || cookie.Path != "/" {
		t.Fatalf("cookie = %+v", cookie)
	}
}

func TestSignupHandlerValidation(t *testing.T) {
	handler, _ := newAuthHandlerFixture(t)

	for _, body := range []string{
		`{"email":"","fullName":"X","password":"p"}`,
		`{"email":"a@b.com","fullName":"","password":"p"}`,
		`{"email":"a@b.com","fullName":"X","password":""}`,
		`not json`,
	} {
		req := httptest.NewRequest("POST", "/auth/signup", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Signup(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestOnboardHandlerValidation(t *testing.T) {
	handler, users := newAuthHandlerFixture(t)

	user, err := users.Create(context.Background(), &models.User{
		Email:    "pending@example.com",
		Provider: models.ProviderLocal,
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	identity := middleware.Identity{ID: user.ID.Hex(), Email: user.Email}

	// Missing bio fails and persists nothing.
	body := `{"fullName":"P User","nativeLanguage":"French","learningLanguage":"Korean","location":"Lyon"}`
	req := httptest.NewRequest("POST", "/auth/onboard", strings.NewReader(body))
	req = req.WithContext(middleware.WithIdentity(req.Context(), identity))
	rec := httptest.NewRecorder()
	handler.Onboard(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	stored, _ := users.GetByID(context.Background(), user.ID)
	if stored.IsOnBoarded || stored.FullName != "" {
		t.Fatalf("failed onboarding persisted fields: %+v", stored)
	}

	// Full profile succeeds.
	body = `{"fullName":"P User","bio":"hi","nativeLanguage":"French","learningLanguage":"Korean","location":"Lyon"}`
	req = httptest.NewRequest("POST", "/auth/onboard", strings.NewReader(body))
	req = req.WithContext(middleware.WithIdentity(req.Context(), identity))
	rec = httptest.NewRecorder()
	handler.Onboard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	stored, _ = users.GetByID(context.Background(), user.ID)
	if !stored.IsOnBoarded || stored.Bio != "hi" {
		t.Fatalf("onboarding not persisted: %+v", stored)
	}
}

func TestMeSentinelPayload(t *testing.T) {
	handler, _ := newAuthHandlerFixture(t)

	identity := middleware.Identity{ID: "64f0c1e2a3b4c5d6e7f80912", Email: "ghost@example.com"}
	req := httptest.NewRequest("GET", "/auth/me", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), identity))
	rec := httptest.NewRecorder()
	handler.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 sentinel", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body: %v", err)
	}
	if resp["message"] != "Unauthenticated" {
		t.Fatalf("sentinel = %+v", resp)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	handler, _ := newAuthHandlerFixture(t)

	rec := httptest.NewRecorder()
	handler.Logout(rec, httptest.NewRequest("POST", "/auth/logout", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	cookie := findCookie(rec.Result().Cookies(), config.SessionCookieName)
	if cookie == nil || cookie.MaxAge >= 0 || cookie.Value != "" {
		t.Fatalf("cookie not cleared: %+v", cookie)
	}
}

func TestSetCookieHandler(t *testing.T) {
	handler, _ := newAuthHandlerFixture(t)

	req := httptest.NewRequest("POST", "/auth/set-cookie", strings.NewReader(`{"token":"handed-off"}`))
	rec := httptest.NewRecorder()
	handler.SetCookie(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	cookie := findCookie(rec.Result().Cookies(), config.SessionCookieName)
	if cookie == nil || cookie.Value != "handed-off" {
		t.Fatalf("cookie = %+v", cookie)
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
