package middleware

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// HitCounter counts requests under key within a fixed window.
type HitCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

type RedisHitCounter struct {
	rdb *redis.Client
}

func NewRedisHitCounter(rdb *redis.Client) *RedisHitCounter {
	return &RedisHitCounter{rdb: rdb}
}

// Hit increments the key and starts its expiry on the first request of a window.
func (r *RedisHitCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := r.rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// RateLimiter allows maxRequests per ip, method and route within window.
// A nil counter disables limiting; counter errors let the request through.
func RateLimiter(counter HitCounter, maxRequests int, window time.Duration) gin.HandlerFunc {
	if counter == nil || maxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := "rl:" + c.ClientIP() + ":" + c.Request.Method + ":" + c.FullPath()

		count, err := counter.Hit(c.Request.Context(), key, window)
		if err != nil {
			log.Println("[ratelimit] counter unavailable:", err)
			c.Next()
			return
		}

		remaining := maxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > maxRequests {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
