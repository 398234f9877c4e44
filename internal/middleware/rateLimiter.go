package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/akolanti/PdfRAG/internal/config"
)

// clientIdleTTL is how long a client's bucket is kept after its last request.
const clientIdleTTL = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter holds one token bucket per client ip.
type IPRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func NewIPRateLimiter(limits config.RateLimitConfig) *IPRateLimiter {
	return &IPRateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(limits.PerSecond),
		burst:   max(limits.Burst, 1),
		now:     time.Now,
	}
}

// Allow spends one token of ip's bucket.
func (i *IPRateLimiter) Allow(ip string) bool {
	return i.GetLimiter(ip).Allow()
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	if now.Sub(i.lastSweep) >= clientIdleTTL {
		i.sweepLocked(now)
	}
	c, exists := i.clients[ip]
	if !exists {
		c = &client{limiter: rate.NewLimiter(i.limit, i.burst)}
		i.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Clients reports how many buckets are tracked.
func (i *IPRateLimiter) Clients() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.clients)
}

func (i *IPRateLimiter) sweepLocked(now time.Time) {
	for ip, c := range i.clients {
		if now.Sub(c.lastSeen) >= clientIdleTTL {
			delete(i.clients, ip)
		}
	}
	i.lastSweep = now
}

//TODO: offload the per-IP buckets to redis once more than one replica serves traffic
