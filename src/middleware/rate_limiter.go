package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// limiterEntry holds a rate limiter with last used timestamp
type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// keyRateLimiter manages per-key rate limiters with automatic cleanup
type keyRateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newKeyRateLimiter(limit rate.Limit, burst int) *keyRateLimiter {
	k := &keyRateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    limit,
		burst:    burst,
		idle:     10 * time.Minute,
		stopCh:   make(chan struct{}),
	}
	go k.cleanupLoop()
	return k
}

func (k *keyRateLimiter) getLimiter(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry, ok := k.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.limiters[key] = entry
	}
	entry.lastUsed = time.Now()
	return entry.limiter
}

// cleanupLoop removes stale entries every 5 minutes
func (k *keyRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			k.cleanup(time.Now())
		case <-k.stopCh:
			return
		}
	}
}

func (k *keyRateLimiter) cleanup(now time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()

	cutoff := now.Add(-k.idle)
	for key, entry := range k.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(k.limiters, key)
		}
	}
}

// Stop terminates the cleanup goroutine
func (k *keyRateLimiter) Stop() {
	k.stopOnce.Do(func() { close(k.stopCh) })
}

// KeyFunc picks the bucket a request is counted against
type KeyFunc func(c *gin.Context) string

// ByClientIP buckets requests by client address
func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// RateLimitConfig defines configuration for the rate limiting middleware
type RateLimitConfig struct {
	Name              string
	RequestsPerMinute int
	Burst             int
	Key               KeyFunc
}

// RateLimiter is a keyed rate limiting middleware with a background sweeper
type RateLimiter struct {
	cfg     RateLimitConfig
	limiter *keyRateLimiter
}

// NewRateLimiter creates a limiter. Missing values default to 60 per minute,
// a burst of 10 and per-IP keys.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.Key == nil {
		cfg.Key = ByClientIP
	}
	limit := rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	return &RateLimiter{cfg: cfg, limiter: newKeyRateLimiter(limit, cfg.Burst)}
}

// Handler returns the gin middleware
func (r *RateLimiter) Handler() gin.HandlerFunc {
	retryAfter := strconv.Itoa(int((time.Minute / time.Duration(r.cfg.RequestsPerMinute)).Seconds()) + 1)

	return func(c *gin.Context) {
		key := r.cfg.Key(c)
		if !r.limiter.getLimiter(key).Allow() {
			log.Warn().
				Str("limiter", r.cfg.Name).
				Str("key", key).
				Str("path", c.Request.URL.Path).
				Msg("rate limit exceeded")
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  "rate_limited",
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please try again later.",
			})
			return
		}
		c.Next()
	}
}

// Stop terminates the background sweeper
func (r *RateLimiter) Stop() {
	r.limiter.Stop()
}

// NewLoginRateLimiter throttles login attempts per client IP. It sits in front
// of the account lockout, so a single address cannot burn through many accounts.
func NewLoginRateLimiter(requestsPerMinute int) *RateLimiter {
	burst := requestsPerMinute / 2
	if burst < 1 {
		burst = 1
	}
	return NewRateLimiter(RateLimitConfig{
		Name:              "login",
		RequestsPerMinute: requestsPerMinute,
		Burst:             burst,
		Key:               ByClientIP,
	})
}
