package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"quotaflow-go/internal/monitoring"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	defaultRPS     = 10
	defaultBurst   = 20
	limiterIdleTTL = 15 * time.Minute
	sweepEvery     = 2 * time.Minute
)

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(*gin.Context) string

// ByClientIP charges every caller address separately.
func ByClientIP(c *gin.Context) string { return c.ClientIP() }

// ByHeader charges by a header such as an API key, falling back to the
// client address when it is absent.
func ByHeader(name string) KeyFunc {
	return func(c *gin.Context) string {
		if v := c.GetHeader(name); v != "" {
			return "h:" + v
		}
		return c.ClientIP()
	}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiterSet hands out one token bucket per key and forgets keys idle for ttl.
type limiterSet struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterSet(rps float64, burst int, ttl time.Duration) *limiterSet {
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &limiterSet{
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// take spends one token for key and returns how long the caller should wait
// when none is available. Zero means the request may proceed.
func (s *limiterSet) take(key string) time.Duration {
	now := s.now()

	s.mu.Lock()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.seen = now
	if now.Sub(s.lastSweep) >= sweepEvery {
		s.sweepLocked(now)
	}
	monitoring.RateLimitKeysGauge.Set(float64(len(s.buckets)))
	s.mu.Unlock()

	res := b.lim.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	if delay > 0 {
		res.CancelAt(now)
	}
	return delay
}

func (s *limiterSet) sweepLocked(now time.Time) {
	for k, b := range s.buckets {
		if now.Sub(b.seen) > s.ttl {
			delete(s.buckets, k)
		}
	}
	s.lastSweep = now
	monitoring.RateLimitSweepsTotal.Inc()
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// RateLimiter keeps one caller from draining every credential's quota.
// Callers are keyed by client IP unless a KeyFunc is given.
func RateLimiter(rps float64, burst int, key ...KeyFunc) gin.HandlerFunc {
	keyOf := KeyFunc(ByClientIP)
	if len(key) > 0 && key[0] != nil {
		keyOf = key[0]
	}
	return rateLimit(newLimiterSet(rps, burst, limiterIdleTTL), keyOf)
}

func rateLimit(set *limiterSet, keyOf KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		wait := set.take(keyOf(c))
		if wait == 0 {
			c.Next()
			return
		}
		monitoring.RateLimitRejectedTotal.Inc()
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": gin.H{"message": "Rate limit exceeded", "type": "rate_limit_error"},
		})
	}
}
