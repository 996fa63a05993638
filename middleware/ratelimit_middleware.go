package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lingo-server/utils/errors"
)

// LimiterStore maintains per-key rate limiters and performs periodic cleanup.
type LimiterStore struct {
	mu              sync.Mutex
	limit           rate.Limit
	burst           int
	clients         map[string]*clientEntry
	cleanupInterval time.Duration
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiterStore creates a store allowing limitPerMinute events per key
// with the given burst capacity.
func NewLimiterStore(limitPerMinute, burst int, cleanupInterval time.Duration) *LimiterStore {
	if limitPerMinute <= 0 {
		limitPerMinute = 60
	}
	s := &LimiterStore{
		limit:           rate.Every(time.Minute / time.Duration(limitPerMinute)),
		burst:           burst,
		clients:         map[string]*clientEntry{},
		cleanupInterval: cleanupInterval,
	}
	go s.cleanupLoop()
	return s
}

func (s *LimiterStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		s.mu.Lock()
		for k, v := range s.clients {
			if v.lastSeen.Before(cutoff) {
				delete(s.clients, k)
			}
		}
		s.mu.Unlock()
	}
}

// Allow reports whether the key may proceed.
func (s *LimiterStore) Allow(key string) bool {
	s.mu.Lock()
	entry, ok := s.clients[key]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[key] = entry
	}
	entry.lastSeen = time.Now()
	s.mu.Unlock()
	return entry.limiter.Allow()
}

// RateLimit gates requests per client IP.
func RateLimit(store *LimiterStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !store.Allow(host) {
				WriteError(w, r, errors.NewAPIError("RATE_LIMITED", "Too many requests", http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
