package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/adithyan-km/PaySphere/models"
	"github.com/adithyan-km/PaySphere/services"
	"github.com/adithyan-km/PaySphere/utils"
	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware throttles an action per subject. The subject is the
// authenticated user when present, the client IP otherwise, so one caller
// exhausting its budget never throttles anyone else.
func RateLimitMiddleware(limiter *services.RateLimiter, action string, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if user, exists := c.Get("user"); exists {
			if u, ok := user.(models.User); ok {
				key = "user:" + strconv.FormatUint(uint64(u.ID), 10)
			}
		}

		result, err := limiter.Check(c.Request.Context(), key, action, limit, window)
		if err != nil {
			// A broken counter store must not take checkout down.
			utils.LogError("Rate limit check failed for %s/%s: %v", action, key, err)
			c.Next()
			return
		}
		if !result.Allowed {
			retryAfter := int64(result.RetryAfter.Seconds() + 0.999)
			if retryAfter < 1 {
				retryAfter = 1
			}
			utils.LogError("Rate limited %s for %s, retry after %ds", action, key, retryAfter)
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			utils.Error(c, 429, "Too many requests", gin.H{
				"reason":      services.ReasonRateLimited,
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
