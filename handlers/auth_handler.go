package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"lingo-server/config"
	"lingo-server/middleware"
	"lingo-server/models"
	"lingo-server/services"
	"lingo-server/utils/errors"
)

const (
	sessionMaxAge    = int(24 * time.Hour / time.Second)
	oauthStateCookie = "oauth_state"
	userInfoURL      = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type AuthHandler struct {
	authService *services.AuthService
	oauth       *oauth2.Config
	cfg         config.Config
}

func NewAuthHandler(authService *services.AuthService, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		oauth:       cfg.GoogleOauthConfig(),
		cfg:         cfg,
	}
}

type signupInput struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
	Image    string `json:"image"`
}

func validateSignup(input signupInput) *errors.APIError {
	if input.Email == "" || input.FullName == "" || input.Password == "" {
		return errors.ValidationError("email, fullName and password are required")
	}
	return nil
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input signupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, r, errors.ErrInvalidInput)
		return
	}
	if err := validateSignup(input); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	token, err := h.authService.Signup(r.Context(), input.Email, input.FullName, input.Password, input.Image)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(token, sessionMaxAge))
	middleware.WriteJSON(w, http.StatusCreated, map[string]any{"token": token, "success": true})
}

type signinInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validateSignin(input signinInput) *errors.APIError {
	if input.Email == "" || input.Password == "" {
		return errors.ValidationError("email and password are required")
	}
	return nil
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var input signinInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, r, errors.ErrInvalidInput)
		return
	}
	if err := validateSignin(input); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	token, err := h.authService.Signin(r.Context(), input.Email, input.Password)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(token, sessionMaxAge))
	middleware.WriteJSON(w, http.StatusCreated, map[string]any{"token": token, "success": true})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionCookie("", -1))
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Successfully Logged out"})
}

// Me returns the logged-in user, or the sentinel payload when the session id
// no longer resolves. The sentinel is a 200, not an error.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.WriteError(w, r, errors.ErrUnauthenticated)
		return
	}

	user, err := h.authService.GetMe(r.Context(), identity.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if user == nil {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Unauthenticated"})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

func validateOnboarding(profile models.OnboardingProfile) *errors.APIError {
	if profile.FullName == "" || profile.Bio == "" || profile.NativeLanguage == "" ||
		profile.LearningLanguage == "" || profile.Location == "" {
		return errors.ValidationError("Enter values for given fields")
	}
	return nil
}

func (h *AuthHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.WriteError(w, r, errors.ErrUnauthenticated)
		return
	}

	var profile models.OnboardingProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		middleware.WriteError(w, r, errors.ErrInvalidInput)
		return
	}
	if err := validateOnboarding(profile); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	user, err := h.authService.Onboard(r.Context(), identity.ID, identity.Email, profile)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// DeleteAll wipes every local and remote user. Administrative, unscoped.
func (h *AuthHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	counts, err := h.authService.DeleteAll(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": counts})
}

// SetCookie turns a token handed back from the OAuth redirect into the
// session cookie.
func (h *AuthHandler) SetCookie(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteError(w, r, errors.ErrInvalidInput)
		return
	}
	if body.Token != "" {
		http.SetCookie(w, h.sessionCookie(body.Token, sessionMaxAge))
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Successfully Logged in"})
}

// GoogleLogin begins the OAuth code flow.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(10 * time.Minute / time.Second),
		HttpOnly: true,
		Secure:   h.cfg.IsProd(),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback exchanges the code, resolves the identity and hands the
// session token to the frontend via redirect.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.FormValue("state") {
		h.oauthFailed(w, r)
		return
	}

	oauthToken, err := h.oauth.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		h.oauthFailed(w, r)
		return
	}

	identity, err := h.fetchGoogleIdentity(r, oauthToken)
	if err != nil {
		h.oauthFailed(w, r)
		return
	}

	token, err := h.authService.CreateOrLoginGoogleUser(r.Context(), identity)
	if err != nil {
		h.oauthFailed(w, r)
		return
	}

	http.SetCookie(w, h.sessionCookie(token, sessionMaxAge))
	http.Redirect(w, r, h.cfg.FrontendURL+"/oauth-success?token="+token, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) fetchGoogleIdentity(r *http.Request, token *oauth2.Token) (services.GoogleIdentity, error) {
	var identity services.GoogleIdentity

	client := h.oauth.Client(r.Context(), token)
	resp, err := client.Get(userInfoURL)
	if err != nil {
		return identity, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return identity, err
	}
	if resp.StatusCode != http.StatusOK {
		return identity, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, &identity); err != nil {
		return identity, err
	}
	return identity, nil
}

func (h *AuthHandler) oauthFailed(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.cfg.FrontendURL+"/login?error=oauth_failed", http.StatusTemporaryRedirect)
}

func (h *AuthHandler) sessionCookie(token string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if h.cfg.IsProd() {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     config.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.IsProd(),
		SameSite: sameSite,
	}
}
