package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RateLimitConfig sets the quota of one limiter.
type RateLimitConfig struct {
	Window    time.Duration
	Limit     int
	KeyPrefix string
}

// Quota is the outcome of counting one request.
type Quota struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// RateLimiter counts requests per user in fixed redis windows. Without a
// client, or with a non-positive limit, every request passes.
type RateLimiter struct {
	counter redis.Cmdable
	config  RateLimitConfig
	log     logrus.FieldLogger
}

func NewRateLimiter(client *redis.Client, config RateLimitConfig, log logrus.FieldLogger) *RateLimiter {
	rl := &RateLimiter{config: config, log: log}
	if client != nil {
		rl.counter = client
	}
	return rl
}

// NewAIRateLimiter caps model-backed requests at limit per user per hour.
func NewAIRateLimiter(client *redis.Client, limit int, log logrus.FieldLogger) *RateLimiter {
	return NewRateLimiter(client, RateLimitConfig{
		Window:    time.Hour,
		Limit:     limit,
		KeyPrefix: "rate_limit:ai",
	}, log)
}

func (rl *RateLimiter) enabled() bool {
	return rl.counter != nil && rl.config.Limit > 0
}

// RateLimitMiddleware rejects requests over quota with 429. Redis errors let
// the request through and are flagged in X-RateLimit-Error.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.enabled() {
			c.Next()
			return
		}

		userID := UserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}

		quota, err := rl.Take(c.Request.Context(), userID)
		if err != nil {
			rl.log.WithField("user_id", userID).WithError(err).Warn("rate limit check failed")
			c.Header("X-RateLimit-Error", "rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(quota.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(quota.Reset.Unix(), 10))

		if !quota.Allowed {
			rl.log.WithField("user_id", userID).Info("AI quota exhausted")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"message":     fmt.Sprintf("You have used all %d AI requests for this %v", rl.config.Limit, rl.config.Window),
				"retry_after": int(time.Until(quota.Reset).Seconds()),
			})
			return
		}

		c.Next()
	}
}

// Take counts one request for userID in the current window.
func (rl *RateLimiter) Take(ctx context.Context, userID string) (Quota, error) {
	windowStart := time.Now().Truncate(rl.config.Window)
	key := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, userID, windowStart.Unix())

	var count *redis.IntCmd
	_, err := rl.counter.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, rl.config.Window)
		return nil
	})
	if err != nil {
		return Quota{}, err
	}

	used := int(count.Val())
	return Quota{
		Allowed:   used <= rl.config.Limit,
		Remaining: max(rl.config.Limit-used, 0),
		Reset:     windowStart.Add(rl.config.Window),
	}, nil
}
