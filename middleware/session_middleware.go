package middleware

import (
	"context"
	"net/http"

	"lingo-server/auth"
	"lingo-server/config"
	"lingo-server/models"
	"lingo-server/utils/errors"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	ID    string
	Email string
}

// UserResolver checks that a session claim still maps to a live user.
type UserResolver interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// SessionGuard extracts the session token from the jwt cookie, verifies it
// and resolves the claim against the user store. Requests without a valid,
// resolvable session are rejected.
func SessionGuard(tokens auth.TokenIssuer, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(config.SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteError(w, r, errors.ErrUnauthenticated)
				return
			}

			claims, err := tokens.Verify(cookie.Value)
			if err != nil {
				WriteError(w, r, errors.ErrUnauthenticated)
				return
			}

			// The token may outlive the account; re-check the store.
			user, err := users.FindUserByID(r.Context(), claims.ID)
			if err != nil {
				WriteError(w, r, errors.ErrUnauthenticated)
				return
			}

			identity := Identity{ID: user.ID.Hex(), Email: user.Email}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity attaches an authenticated identity to the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom returns the authenticated identity set by SessionGuard.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
