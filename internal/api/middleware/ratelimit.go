package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/readlearn/backend/internal/logger"
	"github.com/redis/go-redis/v9"
)

// WindowCounter counts hits per key inside a fixed window.
type WindowCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter shares counters between instances through INCR + PEXPIRE.
type RedisCounter struct {
	rdb *redis.Client
}

// NewRedisCounter wraps an existing client.
func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

// Incr increments key and sets its expiry on the first hit.
func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		c.rdb.PExpire(ctx, key, window+time.Second)
	}
	return count, nil
}

// MemoryCounter is the single-process fallback when no redis is configured.
type MemoryCounter struct {
	mu        sync.Mutex
	counts    map[string]int64
	expires   map[string]time.Time
	nextSweep time.Time
	now       func() time.Time
}

// NewMemoryCounter creates an empty counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		counts:  make(map[string]int64),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Incr increments key. Expired keys are swept at most once per window.
func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !now.Before(c.nextSweep) {
		c.sweep(now)
		c.nextSweep = now.Add(window)
	}
	if exp, ok := c.expires[key]; !ok || !now.Before(exp) {
		c.counts[key] = 0
		c.expires[key] = now.Add(window)
	}
	c.counts[key]++
	return c.counts[key], nil
}

func (c *MemoryCounter) sweep(now time.Time) {
	for k, exp := range c.expires {
		if !now.Before(exp) {
			delete(c.expires, k)
			delete(c.counts, k)
		}
	}
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int64
	// SkipPaths are never limited.
	SkipPaths []string
}

// RateLimit enforces a fixed-window limit per client IP.
// Counter errors let the request through.
func RateLimit(counter WindowCounter, config RateLimitConfig) gin.HandlerFunc {
	// window keys are computed in milliseconds
	if config.Window < time.Millisecond {
		config.Window = time.Minute
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = 30
	}
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = struct{}{}
	}
	retryAfter := int(math.Ceil(config.Window.Seconds()))
	windowMs := config.Window.Milliseconds()

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		windowStart := time.Now().UnixMilli() / windowMs
		key := fmt.Sprintf("readlearn:rate_limit:%s:%d", ip, windowStart)

		count, err := counter.Incr(ctx, key, config.Window)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Rate limit counter unavailable")
			c.Next()
			return
		}

		remaining := config.MaxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("RateLimit-Limit", strconv.FormatInt(config.MaxRequests, 10))
		c.Header("RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > config.MaxRequests {
			logger.CtxWarn(ctx, "Rate limit exceeded: client_ip=%s, path=%s", ip, c.Request.URL.Path)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Too Many Requests",
				"message":    fmt.Sprintf("Rate limit exceeded. Please wait %d seconds before making more requests.", retryAfter),
				"retryAfter": retryAfter,
			})
			return
		}

		c.Next()
	}
}
