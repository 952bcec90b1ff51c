package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) *RedisRateLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRateLimiter(client)
}

func TestRedisRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows requests under limit", func(t *testing.T) {
		limiter := newTestLimiter(t)

		for i := 0; i < 5; i++ {
			allowed, remaining, _ := limiter.Check(ctx, "203.0.113.1", 10)
			assert.True(t, allowed)
			assert.Equal(t, 10-i-1, remaining)
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		limiter := newTestLimiter(t)

		for i := 0; i < 5; i++ {
			limiter.Check(ctx, "203.0.113.2", 5)
		}

		allowed, remaining, _ := limiter.Check(ctx, "203.0.113.2", 5)
		assert.False(t, allowed)
		assert.Equal(t, 0, remaining)
	})

	t.Run("tracks clients separately", func(t *testing.T) {
		limiter := newTestLimiter(t)

		for i := 0; i < 5; i++ {
			limiter.Check(ctx, "203.0.113.3", 5)
		}

		allowed, _, _ := limiter.Check(ctx, "203.0.113.4", 5)
		assert.True(t, allowed)
	})

	t.Run("window slides", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })

		limiter := NewRedisRateLimiter(client)
		clock := int64(1_000_000)
		limiter.now = func() int64 { return clock }

		for i := 0; i < 3; i++ {
			limiter.Check(ctx, "203.0.113.5", 3)
		}
		allowed, _, _ := limiter.Check(ctx, "203.0.113.5", 3)
		require.False(t, allowed)

		clock += 61
		allowed, _, _ = limiter.Check(ctx, "203.0.113.5", 3)
		assert.True(t, allowed)
	})

	t.Run("fails open when redis is down", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		mr.Close()

		limiter := NewRedisRateLimiter(client)
		allowed, _, _ := limiter.Check(ctx, "203.0.113.6", 1)
		assert.True(t, allowed)
	})
}

func TestResolveRateLimitMiddleware(t *testing.T) {
	newHandler := func(limit int) http.Handler {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })

		m := NewResolveRateLimitMiddleware(client, limit)
		return m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
	}

	t.Run("sets rate limit headers", func(t *testing.T) {
		handler := newHandler(10)
		req := httptest.NewRequest("GET", "/r/promo", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("rejects over limit", func(t *testing.T) {
		handler := newHandler(2)

		var rec *httptest.ResponseRecorder
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest("GET", "/r/promo", nil)
			req.Header.Set("X-Forwarded-For", "203.0.113.8")
			rec = httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
		}

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("zero limit disables the guard", func(t *testing.T) {
		handler := newHandler(0)

		for i := 0; i < 5; i++ {
			req := httptest.NewRequest("GET", "/r/promo", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}
