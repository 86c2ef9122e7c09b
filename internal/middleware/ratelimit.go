// Package middleware holds the rate limiting used in front of the status API.
package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/macadmins/sofa-status/internal/domain"
)

// TokenBucket implements a token bucket rate limiter.
type TokenBucket struct {
	capacity   int
	tokens     float64 // float for precise refill
	refillRate int     // tokens per second
	lastRefill time.Time
	mutex      sync.Mutex
}

// NewTokenBucket creates a new token bucket.
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow checks if a request should be allowed.
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()

	tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed*float64(tb.refillRate))
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}

	return false
}

// RateLimiter manages per-client token buckets. The status API is polled by
// dashboards, so /health gets its own tighter limit.
type RateLimiter struct {
	buckets map[string]*TokenBucket
	mutex   sync.RWMutex

	defaultCapacity   int
	defaultRefillRate int

	endpointLimits map[string]struct {
		capacity   int
		refillRate int
	}
}

// NewRateLimiter creates a new rate limiter with the given default limits.
func NewRateLimiter(rps, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets:           make(map[string]*TokenBucket),
		defaultCapacity:   burst,
		defaultRefillRate: rps,
		endpointLimits:    make(map[string]struct{ capacity, refillRate int }),
	}

	rl.endpointLimits["/health"] = struct{ capacity, refillRate int }{20, 2}

	return rl
}

// getBucket gets or creates a token bucket for a client+endpoint combination.
func (rl *RateLimiter) getBucket(clientID, endpoint string) *TokenBucket {
	key := clientID + ":" + endpoint

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if exists {
		return bucket
	}

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	// Double-check after acquiring write lock
	if bucket, exists := rl.buckets[key]; exists {
		return bucket
	}

	limits, exists := rl.endpointLimits[endpoint]
	if !exists {
		limits = struct{ capacity, refillRate int }{rl.defaultCapacity, rl.defaultRefillRate}
	}

	bucket = NewTokenBucket(limits.capacity, limits.refillRate)
	rl.buckets[key] = bucket

	return bucket
}

// Middleware returns a Fiber middleware for rate limiting.
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientID := "ip:" + c.IP()
		endpoint := c.Path()

		bucket := rl.getBucket(clientID, endpoint)

		if !bucket.Allow() {
			c.Set("Retry-After", "60")
			c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.defaultCapacity))
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("X-RateLimit-Reset", time.Now().Add(time.Minute).Format(time.RFC3339))

			return c.Status(429).JSON(map[string]any{
				"status":  "error",
				"code":    domain.ErrRateLimit,
				"message": "Rate limit exceeded",
			})
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.defaultCapacity))

		return c.Next()
	}
}

// CleanupOldBuckets removes buckets idle for over an hour.
func (rl *RateLimiter) CleanupOldBuckets() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		idle := now.Sub(bucket.lastRefill)
		bucket.mutex.Unlock()
		if idle > time.Hour {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine starts a background routine to clean up old buckets.
// Returns a stop function to cancel the routine.
func (rl *RateLimiter) StartCleanupRoutine() (stop func()) {
	ticker := time.NewTicker(10 * time.Minute)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				rl.CleanupOldBuckets()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
