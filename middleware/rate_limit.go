package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/packlane/packlane-backend/config"
	"github.com/packlane/packlane-backend/logger"
	"github.com/packlane/packlane-backend/services"
)

// APIRateLimiter limits request rates per authenticated user, falling back
// to the client IP for unauthenticated requests.
func APIRateLimiter(limiter services.RateLimiter, cfg config.RateLimitConfig) gin.HandlerFunc {
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = 100
	}

	return func(c *gin.Context) {
		identifier := c.GetString(UserIDKey)
		if identifier == "" {
			identifier = "ip:" + c.ClientIP()
		}

		allowed, retryAfter, err := limiter.CheckLimit(
			c.Request.Context(),
			fmt.Sprintf("api:%s", identifier),
			limit,
			window,
		)
		if err != nil {
			// Fail open: a broken limiter must not take the API down.
			logger.GetLogger().Warnw("Rate limit check failed", "error", err)
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": int(retryAfter.Seconds()),
				"message":     "Too many requests. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
