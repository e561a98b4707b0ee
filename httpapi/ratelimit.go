package httpapi

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
	clients sync.Map // ip -> *clientLimiter

	mu        sync.Mutex
	lastSweep time.Time
}

type clientLimiter struct {
	limiter *rate.Limiter
	mu      sync.Mutex
	seen    time.Time
}

// NewIPRateLimiter allows rps requests per second per IP with the given
// burst. A non-positive rps disables limiting.
func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &IPRateLimiter{
		limit: limit,
		burst: burst,
		ttl:   10 * time.Minute,
		now:   time.Now,
	}
}

// Allow reports whether ip may make another request now.
func (l *IPRateLimiter) Allow(ip string) bool {
	now := l.now()
	l.sweep(now)

	v, _ := l.clients.LoadOrStore(ip, &clientLimiter{
		limiter: rate.NewLimiter(l.limit, l.burst),
	})
	cl := v.(*clientLimiter)

	cl.mu.Lock()
	cl.seen = now
	cl.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

// Handler rejects requests over budget with ErrRateLimited.
func (l *IPRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(c.IP()) {
			c.Set(fiber.HeaderRetryAfter, "1")
			return ErrRateLimited.Clone()
		}
		return c.Next()
	}
}

// sweep drops idle clients at most once per ttl.
func (l *IPRateLimiter) sweep(now time.Time) {
	l.mu.Lock()
	if now.Sub(l.lastSweep) < l.ttl {
		l.mu.Unlock()
		return
	}
	l.lastSweep = now
	l.mu.Unlock()

	l.clients.Range(func(key, value any) bool {
		cl := value.(*clientLimiter)
		cl.mu.Lock()
		idle := now.Sub(cl.seen) > l.ttl
		cl.mu.Unlock()
		if idle {
			l.clients.Delete(key)
		}
		return true
	})
}
