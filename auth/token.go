package auth

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lingo-server/utils/errors"
)

// TokenIssuer signs and verifies session credentials.
type TokenIssuer interface {
	Issue(userID, email string) (string, error)
	Verify(token string) (*Claims, error)
}

// Claims is the session credential payload.
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTManager issues HS256 session tokens bounded by a fixed duration.
type JWTManager struct {
	secret   string
	duration time.Duration
}

func NewJWTManager(secret string, duration time.Duration) *JWTManager {
	return &JWTManager{secret: secret, duration: duration}
}

func (m *JWTManager) Issue(userID, email string) (string, error) {
	claims := &Claims{
		ID:    userID,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.secret))
	if err != nil {
		return "", errors.Wrap(err, "JWT_ERROR", "Failed to generate token", http.StatusInternalServerError)
	}
	return signed, nil
}

func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.ErrInvalidToken
		}
		return []byte(m.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}
