package errors

import (
	"fmt"
	"net/http"
)

// APIError represents a custom error type for API responses
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details string `json:"details,omitempty"`
}

// Error returns the error message
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

var (
	ErrInvalidInput    = NewAPIError("VALIDATION_ERROR", "Invalid request data", http.StatusBadRequest)
	ErrUnauthenticated = NewAPIError("UNAUTHENTICATED", "Authentication required", http.StatusUnauthorized)
	ErrNotFound        = NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrInternal        = NewAPIError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)

	ErrDuplicateAccount   = NewAPIError("DUPLICATE_ACCOUNT", "User already exists", http.StatusBadRequest)
	ErrInvalidCredentials = NewAPIError("INVALID_CREDENTIALS", "Incorrect Password", http.StatusUnauthorized)
	ErrNoPasswordSet      = NewAPIError("NO_PASSWORD_SET", "Password doesnt exist for OAuth users", http.StatusUnauthorized)
	ErrInvalidToken       = NewAPIError("INVALID_TOKEN", "Invalid or expired token", http.StatusUnauthorized)
	ErrSelfRequest        = NewAPIError("SELF_REQUEST", "You cant send a friend request to yourself", http.StatusBadRequest)
	ErrAlreadyFriends     = NewAPIError("ALREADY_FRIENDS", "Already a friend", http.StatusBadRequest)
	ErrForbidden          = NewAPIError("FORBIDDEN", "You cant act on this friend request", http.StatusForbidden)
	ErrRequestClosed      = NewAPIError("REQUEST_CLOSED", "Friend request already resolved", http.StatusBadRequest)
)

// ValidationError returns a field-specific 400 error.
func ValidationError(message string) *APIError {
	return NewAPIError("VALIDATION_ERROR", message, http.StatusBadRequest)
}

// ExternalProvider wraps a chat-provider failure as a 502.
func ExternalProvider(err error) *APIError {
	return NewAPIError("EXTERNAL_PROVIDER_ERROR", "Chat provider call failed", http.StatusBadGateway, err.Error())
}

func Wrap(err error, code, message string, status int) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return NewAPIError(code, message, status, err.Error())
}
