package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/rightwin/qr-portal-server/internal/config"
)

const rateLimitKeyPrefix = "ratelimit:resolve:"

var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = 0
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    else
        resetAt = now + window
    end
    return {0, 0, resetAt}
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)

local remaining = limit - count - 1
local resetAt = now + window

return {1, remaining, resetAt}
`)

func defaultUnixNow() int64 {
	return time.Now().Unix()
}

type RedisRateLimiter struct {
	client *redis.Client
	now    func() int64
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

// Check runs a sliding-window check for one caller. Redis failures allow the
// request; the resolve path must not go down with the limiter.
func (rl *RedisRateLimiter) Check(ctx context.Context, clientIP string, limit int) (allowed bool, remaining int, resetAt int64) {
	nowFn := rl.now
	if nowFn == nil {
		nowFn = defaultUnixNow
	}
	now := nowFn()
	key := rateLimitKeyPrefix + clientIP
	window := int64(config.ResolveRateWindow.Seconds())

	result, err := rateLimitScript.Run(ctx, rl.client, []string{key}, now, window, limit).Int64Slice()
	if err != nil {
		log.Warn().Err(err).Str("clientIp", clientIP).Msg("redis rate limit check failed, allowing request")
		return true, limit - 1, now + window
	}

	if len(result) != 3 {
		log.Warn().Str("clientIp", clientIP).Msg("unexpected redis rate limit result")
		return true, limit - 1, now + window
	}

	return result[0] == 1, int(result[1]), result[2]
}

// ResolveRateLimitMiddleware throttles the public resolve endpoint per
// client IP. Authenticated routes are not subject to it.
type ResolveRateLimitMiddleware struct {
	limiter *RedisRateLimiter
	limit   int
}

func NewResolveRateLimitMiddleware(client *redis.Client, limit int) *ResolveRateLimitMiddleware {
	return &ResolveRateLimitMiddleware{
		limiter: NewRedisRateLimiter(client),
		limit:   limit,
	}
}

func (m *ResolveRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := ClientIP(r)
		allowed, remaining, resetAt := m.limiter.Check(r.Context(), clientIP, m.limit)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))

		if !allowed {
			log.Warn().Str("clientIp", clientIP).Msg("resolve rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(int(config.ResolveRateWindow.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
