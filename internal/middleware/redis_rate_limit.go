package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yocodex/backend/internal/cache"
	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/metrics"
	"go.uber.org/zap"
)

// RedisRateLimitMiddleware creates a distributed rate limiter using Redis
// This works across multiple instances and provides fair access control
func RedisRateLimitMiddleware(redisClient *cache.RedisClient, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			// Fallback: if Redis isn't configured, let request through
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		key := fmt.Sprintf("rate_limit:%s", clientIP)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		// Get current count
		val, err := redisClient.GetInt(ctx, key)
		if err != nil && !cache.IsNil(err) {
			// On Redis error, reject the request. Allowing requests
			// through when the rate limiter is broken opens the API to
			// abuse.
			logger.Log.Error("Rate limit check failed, rejecting request",
				logger.WithIP(clientIP),
				zap.Error(err),
			)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
			c.Abort()
			return
		}

		if val >= int64(maxRequests) {
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(clientIP),
				zap.Int("max_requests", maxRequests),
				zap.Int64("current_requests", val),
			)
			metrics.RecordRateLimitExceeded(c.FullPath(), c.Request.Method)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		// Increment counter
		newVal, err := redisClient.IncrBy(ctx, key, 1)
		if err != nil {
			logger.Log.Error("Rate limit increment failed, rejecting request",
				logger.WithIP(clientIP),
				zap.Error(err),
			)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
			c.Abort()
			return
		}

		// Set expiration on first request in this window
		if newVal == 1 {
			if err := redisClient.Expire(ctx, key, window); err != nil {
				logger.Log.Warn("Failed to set rate limit expiration",
					logger.WithIP(clientIP),
					zap.Error(err),
				)
			}
		}

		c.Next()
	}
}
