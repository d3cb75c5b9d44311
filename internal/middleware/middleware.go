package middleware

import (
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Config holds middleware configuration.
type Config struct {
	Logger *zap.Logger

	CORS *CORSConfig

	// RedisClient backs the shared rate limiter; nil selects the
	// per-process fallback.
	RedisClient     *redis.Client
	RateLimit       int
	RateLimitBurst  int
	RateLimitWindow time.Duration

	RequestTimeout time.Duration
}

// Chain assembles the full middleware stack. Listed outermost first:
// the access log sees every request, the request id is available to
// everything below it, and the timeout wraps only the handler itself.
func Chain(config *Config) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(
		config.RedisClient,
		config.RateLimit,
		config.RateLimitBurst,
		config.RateLimitWindow,
		config.Logger,
	)

	stack := []func(http.Handler) http.Handler{
		Logger(config.Logger),
		RequestID,
		Recovery(config.Logger),
	}
	if config.CORS != nil {
		stack = append(stack, CORS(config.CORS))
	}
	stack = append(stack, limiter.Middleware(), Timeout(config.RequestTimeout))

	return func(handler http.Handler) http.Handler {
		h := handler
		for i := len(stack) - 1; i >= 0; i-- {
			h = stack[i](h)
		}
		return h
	}
}
