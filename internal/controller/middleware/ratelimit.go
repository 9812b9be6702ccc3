package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per client address.
// A bucket lives for the TTL and is rebuilt on the first request after it expires.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
	limiters sync.Map // client -> *cachedLimiter
}

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithTTL sets how long a client bucket is kept.
func WithTTL(ttl time.Duration) Option {
	return func(rl *RateLimiter) { rl.ttl = ttl }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(rl *RateLimiter) { rl.now = now }
}

// NewRateLimiter allows perSecond requests per client with the given burst.
// A perSecond of zero or less means unlimited.
func NewRateLimiter(perSecond float64, burst int, opts ...Option) *RateLimiter {
	rl := &RateLimiter{
		limit: rate.Limit(perSecond),
		burst: burst,
		ttl:   5 * time.Minute,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	if rl.burst < 1 {
		rl.burst = 1
	}
	return rl
}

// Middleware rejects requests over the client's budget with 429.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.limit > 0 && !rl.limiterFor(clientKey(r)).Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

func (rl *RateLimiter) limiterFor(client string) *rate.Limiter {
	now := rl.now()
	if v, ok := rl.limiters.Load(client); ok {
		cached := v.(*cachedLimiter)
		if now.Before(cached.expiresAt) {
			return cached.limiter
		}
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters.Store(client, &cachedLimiter{
		limiter:   limiter,
		expiresAt: now.Add(rl.ttl),
	})
	return limiter
}

// clientKey is the host part of RemoteAddr, already rewritten by RealIP when proxied.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
