// Package ratelimit provides a keyed token-bucket rate limiter used to
// protect the public invitation endpoints, keyed by client IP.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// entry pairs a limiter with its last use so idle clients can be evicted.
type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter manages per-key rate limiting. Each unique key gets its
// own independent token bucket. Keys idle longer than the eviction window
// are dropped, so the map stays bounded under churning client IPs.
type KeyedLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int

	done     chan struct{}
	stopOnce sync.Once
}

const (
	evictAfter    = 10 * time.Minute
	evictInterval = time.Minute
)

// New creates a keyed limiter allowing rps requests per second with the
// given burst per key.
func New(rps float64, burst int) *KeyedLimiter {
	kl := &KeyedLimiter{
		entries: make(map[string]*entry),
		limit:   rate.Limit(rps),
		burst:   burst,
		done:    make(chan struct{}),
	}
	go kl.evictLoop()
	return kl
}

// Allow reports whether a request for the given key may proceed now.
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	e, ok := kl.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(kl.limit, kl.burst)}
		kl.entries[key] = e
	}
	e.lastSeen = time.Now()
	kl.mu.Unlock()

	return e.limiter.Allow()
}

// Stop shuts down the eviction goroutine.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() {
		close(kl.done)
	})
}

func (kl *KeyedLimiter) evictLoop() {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-kl.done:
			return
		case <-ticker.C:
			kl.evict(time.Now())
		}
	}
}

func (kl *KeyedLimiter) evict(now time.Time) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	for key, e := range kl.entries {
		if now.Sub(e.lastSeen) > evictAfter {
			delete(kl.entries, key)
		}
	}
}
