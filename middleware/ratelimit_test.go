package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedHandler(rl *RateLimiter) http.Handler {
	return rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimiterBlocksSecondRequest(t *testing.T) {
	handler := limitedHandler(NewRateLimiter(10*time.Second, 1, "slow down"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "slow down")
}

func TestRateLimiterKeysCallersSeparately(t *testing.T) {
	handler := limitedHandler(NewRateLimiter(10*time.Second, 1, "slow down"))

	for _, addr := range []string{"10.0.0.1:1234", "10.0.0.2:1234", "10.0.0.3:9"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "first request from %s", addr)
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(20*time.Millisecond, 1, "slow down")

	require.True(t, rl.allow("caller"))
	require.False(t, rl.allow("caller"))
	time.Sleep(25 * time.Millisecond)
	assert.True(t, rl.allow("caller"))
}

func TestRateLimiterPrunesIdleCallers(t *testing.T) {
	rl := NewRateLimiter(time.Second, 1, "slow down")
	for i := 0; i < cleanupThreshold; i++ {
		rl.allow(string(rune(i)))
	}
	// Age everyone out, then a new caller triggers the prune.
	rl.mu.Lock()
	for _, entry := range rl.callers {
		entry.lastSeen = time.Now().Add(-maxIdleAge - time.Minute)
	}
	rl.mu.Unlock()

	rl.allow("fresh")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Len(t, rl.callers, 1)
}
