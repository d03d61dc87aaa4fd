package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/super-videotheque/backend/pkg/ratelimit"
	"github.com/super-videotheque/backend/pkg/response"
)

// Limiter is the counter behind RateLimit.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Result, error)
}

// RateLimit caps requests per client IP for a route group. Counter failures let the request through.
func RateLimit(limiter Limiter, name string, limit int, window time.Duration, message string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		res, err := limiter.Allow(c.Request.Context(), name+":"+c.ClientIP(), limit, window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err), zap.String("limiter", name))
			c.Next()
			return
		}
		c.Header("RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(int(math.Ceil(res.ResetIn.Seconds()))))
		if !res.Allowed {
			response.TooManyRequests(c, message)
			c.Abort()
			return
		}
		c.Next()
	}
}
