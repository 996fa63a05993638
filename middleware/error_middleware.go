package middleware

import (
	"encoding/json"
	"log"
	"net/http"

	"lingo-server/utils/errors"
)

// errorEnvelope is the uniform error body every failure is recovered into.
type errorEnvelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	URL        string `json:"url"`
	Method     string `json:"method"`
}

// ErrorMiddleware recovers panics into a standardized JSON response
func ErrorMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Printf("Panic recovered: %v", rec)
					WriteError(w, r, errors.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes an APIError as the uniform error envelope
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := err.(*errors.APIError)
	if !ok {
		apiErr = errors.Wrap(err, "UNKNOWN_ERROR", "Internal server error", errors.ErrInternal.Status)
	}
	// Log server errors
	if apiErr.Status >= 500 {
		log.Printf("Server error %s %s: %s (Details: %s)", r.Method, r.URL.Path, apiErr.Error(), apiErr.Details)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(errorEnvelope{
		Success:    false,
		StatusCode: apiErr.Status,
		Message:    apiErr.Message,
		URL:        r.URL.Path,
		Method:     r.Method,
	})
}

// WriteJSON writes a success payload.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
