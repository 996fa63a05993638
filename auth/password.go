package auth

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"lingo-server/utils/errors"
)

// PasswordHasher applies a salted one-way hash to local-account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// BcryptHasher hashes with bcrypt at the default cost.
type BcryptHasher struct{}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "HASH_ERROR", "Failed to hash password", http.StatusInternalServerError)
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
