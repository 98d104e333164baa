package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Prune the caller map once it grows past this many entries.
	cleanupThreshold = 500
	maxIdleAge       = 10 * time.Minute
)

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a per-caller token bucket. Authenticated callers are
// keyed by user id, anonymous ones by remote address.
type RateLimiter struct {
	mu      sync.Mutex
	callers map[string]*callerLimiter
	limit   rate.Limit
	burst   int
	message string
}

// NewRateLimiter allows one request per interval with the given burst.
func NewRateLimiter(interval time.Duration, burst int, message string) *RateLimiter {
	return &RateLimiter{
		callers: make(map[string]*callerLimiter),
		limit:   rate.Every(interval),
		burst:   burst,
		message: message,
	}
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(callerKey(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": rl.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.callers[key]
	if !ok {
		if len(rl.callers) >= cleanupThreshold {
			rl.pruneLocked()
		}
		entry = &callerLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.callers[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// pruneLocked drops callers idle longer than maxIdleAge. Caller holds mu.
func (rl *RateLimiter) pruneLocked() {
	cutoff := time.Now().Add(-maxIdleAge)
	for key, entry := range rl.callers {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.callers, key)
		}
	}
}

func callerKey(r *http.Request) string {
	if id, err := GetUserIDFromContext(r.Context()); err == nil {
		return "user:" + strconv.Itoa(id)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "addr:" + r.RemoteAddr
	}
	return "addr:" + host
}
