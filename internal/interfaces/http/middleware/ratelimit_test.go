package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_BurstThenRefill(t *testing.T) {
	l := NewTokenBucketLimiter(1, 2, 0)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	ok, info := l.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 2, info.Limit)
	assert.Equal(t, 1, info.Remaining)

	ok, _ = l.Allow("a")
	assert.True(t, ok)
	ok, info = l.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, 0, info.Remaining)

	ok, _ = l.Allow("b")
	assert.True(t, ok, "keys have separate buckets")

	now = now.Add(1100 * time.Millisecond)
	ok, _ = l.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 2, l.BucketCount())
}

func TestTokenBucketLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	l := NewTokenBucketLimiter(10, 5, 0)
	l.cleanupInterval = time.Minute
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	l.Allow("idle")
	require.Equal(t, 1, l.BucketCount())

	now = now.Add(2 * time.Minute)
	l.cleanup()
	assert.Equal(t, 0, l.BucketCount())
}

func TestTokenBucketLimiter_StopIdempotent(t *testing.T) {
	l := NewTokenBucketLimiter(1, 1, time.Hour)
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	l := NewTokenBucketLimiter(0.001, 1, 0)
	cfg := DefaultRateLimitConfig()
	h := newEngine(RateLimit(l, cfg))

	w := serve(h, http.MethodGet, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = serve(h, http.MethodGet, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "COMMON_007")
}

func TestRateLimit_SkipPaths(t *testing.T) {
	l := NewTokenBucketLimiter(0.001, 1, 0)
	cfg := DefaultRateLimitConfig()
	cfg.SkipPaths = []string{"/"}
	h := newEngine(RateLimit(l, cfg))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "").Code)
	}
	assert.Equal(t, 0, l.BucketCount())
}
