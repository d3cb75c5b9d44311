package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter throttles callers by client IP. The service runs as
// multiple stateless instances, so the primary implementation is a
// shared fixed-window counter in Redis; when Redis is not configured
// it degrades to a per-process token bucket whose idle entries are
// evicted on an explicit cleanup interval.
type RateLimiter struct {
	redisClient *redis.Client
	logger      *zap.Logger

	limit  int
	window time.Duration

	// per-process fallback
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// visitor holds the fallback limiter for one client.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter. redisClient may be nil, in
// which case the per-process fallback is used.
func NewRateLimiter(redisClient *redis.Client, limit, burst int, window time.Duration, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		redisClient: redisClient,
		logger:      logger,
		limit:       limit,
		window:      window,
		visitors:    make(map[string]*visitor),
		rate:        rate.Limit(float64(limit) / window.Seconds()),
		burst:       burst,
	}

	if redisClient == nil {
		go rl.cleanupVisitors()
	}

	return rl
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(r.Context(), clientIP(r)) {
				respondError(w, r, http.StatusTooManyRequests, ErrorCodeRateLimitExceeded, ErrorMessageRateLimitExceeded)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(ctx context.Context, ip string) bool {
	if rl.redisClient != nil {
		return rl.allowRedis(ctx, ip)
	}
	return rl.allowLocal(ip)
}

// allowRedis counts requests per window in a shared key. INCR then
// EXPIRE on first hit keeps the window aligned across instances. Redis
// outages fail open: rate limiting is protection, not correctness.
func (rl *RateLimiter) allowRedis(ctx context.Context, ip string) bool {
	key := fmt.Sprintf("ratelimit:%s:%d", ip, time.Now().Unix()/int64(rl.window.Seconds()))

	count, err := rl.redisClient.Incr(ctx, key).Result()
	if err != nil {
		rl.logger.Warn("Rate limiter Redis unavailable, failing open", zap.Error(err))
		return true
	}

	if count == 1 {
		if err := rl.redisClient.Expire(ctx, key, rl.window).Err(); err != nil {
			rl.logger.Warn("Failed to set rate limit key expiry", zap.Error(err))
		}
	}

	return count <= int64(rl.limit)
}

func (rl *RateLimiter) allowLocal(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()

	return v.limiter.Allow()
}

// cleanupVisitors evicts idle fallback entries so the map cannot grow
// without bound.
func (rl *RateLimiter) cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Reset drops all fallback state. Exposed so operators (and tests) get
// deterministic window semantics from the per-process limiter.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.visitors = make(map[string]*visitor)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
