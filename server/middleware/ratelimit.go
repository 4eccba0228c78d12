package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"

	apperrors "github.com/skillsenselab/expflow/errors"
	"github.com/skillsenselab/expflow/resilience"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate allowed per key.
	RequestsPerSecond float64
	// Burst is the short-term burst allowance per key.
	Burst int
	// KeyFunc extracts the rate limit key from a request. Defaults to client IP.
	KeyFunc func(*gin.Context) string
}

// RateLimit returns a Gin middleware enforcing a per-key token bucket.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond) * 2
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}

	var mu sync.Mutex
	buckets := make(map[string]*resilience.RateLimiter)

	limiterFor := func(key string) *resilience.RateLimiter {
		mu.Lock()
		defer mu.Unlock()
		rl, ok := buckets[key]
		if !ok {
			rl = resilience.NewRateLimiter(resilience.RateLimiterConfig{
				Name:  key,
				Rate:  cfg.RequestsPerSecond,
				Burst: cfg.Burst,
			})
			buckets[key] = rl
		}
		return rl
	}

	return func(c *gin.Context) {
		if !limiterFor(cfg.KeyFunc(c)).Allow() {
			appErr := apperrors.RateLimited()
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Next()
	}
}

// IPBasedKey uses the client IP as the rate limit key.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}
