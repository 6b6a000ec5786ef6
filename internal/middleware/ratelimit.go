package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/bookwyrm-admin/pkg/errors"
	"github.com/noah-isme/bookwyrm-admin/pkg/response"
)

// RateLimiter hands out one token bucket per caller.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter allows ratePerSecond requests per caller with the given burst.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(ratePerSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether key may proceed now.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	limiter, ok := r.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
		r.limiters[key] = limiter
	}
	r.mu.Unlock()
	return limiter.Allow()
}

// RateLimit throttles requests per authenticated user, or per client IP when anonymous.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := c.ClientIP()
		if claims := Claims(c); claims != nil && claims.UserID != "" {
			key = "user:" + claims.UserID
		}
		if !limiter.Allow(key) {
			c.Header("Retry-After", "1")
			response.AbortError(c, appErrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
