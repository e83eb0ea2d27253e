package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type rateLimiter struct {
	requests    map[string]*clientWindow
	mu          sync.Mutex
	limit       int
	window      time.Duration
	nextCleanup time.Time
}

type clientWindow struct {
	count     int
	resetTime time.Time
}

// RateLimiter returns a fixed-window per-IP limiter. Each returned handler
// owns its own counters so different route groups can use different limits.
// Expired windows are swept inline as requests arrive, so a limiter holds no
// background goroutine and can be discarded freely.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	rl := &rateLimiter{
		requests:    make(map[string]*clientWindow),
		limit:       limit,
		window:      window,
		nextCleanup: time.Now().Add(window),
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()

		rl.mu.Lock()
		now := time.Now()

		if now.After(rl.nextCleanup) {
			rl.cleanupLocked(now)
			rl.nextCleanup = now.Add(rl.window)
		}

		client, exists := rl.requests[ip]
		if !exists || now.After(client.resetTime) {
			rl.requests[ip] = &clientWindow{count: 1, resetTime: now.Add(rl.window)}
			rl.mu.Unlock()
			c.Next()
			return
		}

		if client.count >= rl.limit {
			retryAfter := client.resetTime.Sub(now).Seconds()
			rl.mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		client.count++
		rl.mu.Unlock()
		c.Next()
	}
}

// cleanupLocked drops expired windows. Caller holds mu.
func (rl *rateLimiter) cleanupLocked(now time.Time) {
	for ip, client := range rl.requests {
		if now.After(client.resetTime) {
			delete(rl.requests, ip)
		}
	}
}
