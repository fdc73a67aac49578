package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxTrackedClients = 10000

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a per-process token bucket per key, refilled at rpm/60 per
// second with a burst of rpm.
type MemoryLimiter struct {
	mu      sync.Mutex
	rpm     int
	clients map[string]*client
	now     func() time.Time
}

// NewMemoryLimiter creates an in-process limiter
func NewMemoryLimiter(rpm int) *MemoryLimiter {
	return &MemoryLimiter{rpm: rpm, clients: make(map[string]*client), now: time.Now}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		if len(l.clients) >= maxTrackedClients {
			l.evict(now)
		}
		c = &client{limiter: rate.NewLimiter(rate.Limit(float64(l.rpm)/60), l.rpm)}
		l.clients[key] = c
	}
	c.lastSeen = now

	r := c.limiter.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Allowed: false, Limit: l.rpm, RetryAfter: time.Minute}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{
			Allowed:    false,
			Limit:      l.rpm,
			RetryAfter: time.Duration(math.Ceil(delay.Seconds())) * time.Second,
		}, nil
	}
	return Decision{
		Allowed:   true,
		Limit:     l.rpm,
		Remaining: int(c.limiter.TokensAt(now)),
	}, nil
}

// evict drops clients idle for more than a minute; their buckets are full
// again anyway. When every client is recent the least recently seen one goes.
func (l *MemoryLimiter) evict(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, c := range l.clients {
		if now.Sub(c.lastSeen) > time.Minute {
			delete(l.clients, k)
			continue
		}
		if oldestKey == "" || c.lastSeen.Before(oldest) {
			oldestKey, oldest = k, c.lastSeen
		}
	}
	if len(l.clients) >= maxTrackedClients && oldestKey != "" {
		delete(l.clients, oldestKey)
	}
}
