// Package ratelimit provides a per-client token bucket limiter for the
// upload endpoint, keyed by client IP.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// sweepThreshold is the entry count that triggers an idle sweep.
	// Upload keys are client IPs on a home network, so the map stays
	// small and pruning happens inline instead of in a background
	// goroutine nothing would ever stop.
	sweepThreshold = 256

	// idleAfter is how long an entry may go unused before a sweep
	// drops it. Long enough that a refilling bucket is never forgotten
	// mid-throttle.
	idleAfter = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter hands each client its own token bucket.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
}

// New creates a keyed rate limiter allowing rps requests per second
// with the given burst per client.
func New(rps float64, burst int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether a request from the given client may proceed.
// Returns immediately without blocking.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	krl.mu.Lock()
	c, ok := krl.clients[key]
	if !ok {
		if len(krl.clients) >= sweepThreshold {
			krl.sweep()
		}
		c = &clientLimiter{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.clients[key] = c
	}
	c.lastSeen = time.Now()
	krl.mu.Unlock()

	return c.limiter.Allow()
}

// Len reports the number of tracked clients.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.clients)
}

// sweep drops entries idle longer than idleAfter. Caller holds the lock.
func (krl *KeyedRateLimiter) sweep() {
	cutoff := time.Now().Add(-idleAfter)
	for key, c := range krl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(krl.clients, key)
		}
	}
}
