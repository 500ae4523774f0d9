package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// IPRateLimiter is the in-process fallback: one token bucket per client IP.
// It does not survive restarts or span instances; prefer the Redis window
// when running more than one replica.
type IPRateLimiter struct {
	ips   map[string]*rate.Limiter
	mu    *sync.RWMutex
	rate  rate.Limit
	burst int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:   make(map[string]*rate.Limiter),
		mu:    &sync.RWMutex{},
		rate:  r,
		burst: b,
	}
}

func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.ips[ip]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.ips[ip] = limiter
	return limiter
}

func (rl *IPRateLimiter) Allow(ip string) bool {
	return rl.GetLimiter(ip).Allow()
}

// RateLimit limits requests per client IP. With a Redis client it uses a
// fixed-window counter shared across instances; without one it falls back to
// the in-process limiter. Redis errors fail open: a limiter outage must not
// take the endpoint down with it.
func RateLimit(rdb *redis.Client, perMinute int, logger *zap.Logger) gin.HandlerFunc {
	if perMinute <= 0 {
		perMinute = 100
	}

	var local *IPRateLimiter
	if rdb == nil {
		burst := perMinute / 2
		if burst < 1 {
			burst = 1
		}
		local = NewIPRateLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()

		var allowed bool
		if rdb != nil {
			allowed = allowRedis(c.Request.Context(), rdb, ip, perMinute, logger)
		} else {
			allowed = local.Allow(ip)
		}

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func allowRedis(ctx context.Context, rdb *redis.Client, ip string, perMinute int, logger *zap.Logger) bool {
	window := time.Now().Unix() / 60
	key := fmt.Sprintf("ratelimit:%s:%d", ip, window)

	pipe := rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("rate limit counter unavailable, allowing request", zap.Error(err))
		return true
	}
	return incr.Val() <= int64(perMinute)
}
