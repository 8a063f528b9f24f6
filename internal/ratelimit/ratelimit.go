// Package ratelimit throttles outbound requests per content provider.
// Each provider key gets its own token bucket; a provider that answered
// 429 can be put into a cooldown during which Wait blocks.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limits configures the token bucket for one key.
type Limits struct {
	RPS   float64
	Burst int
}

type entry struct {
	limiter *rate.Limiter
	pinned  bool

	// lastSeen is the unix nano time of the last lookup.
	lastSeen atomic.Int64

	mu        sync.Mutex
	coolUntil time.Time
}

// KeyedRateLimiter manages per-key rate limiting.
// Keys without explicit Limits use the defaults passed to New.
type KeyedRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int

	idle      time.Duration
	lastSweep time.Time

	now func() time.Time
}

// New creates a keyed rate limiter.
// rps: default requests per second allowed.
// burst: default burst size (tokens available immediately).
func New(rps float64, burst int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// EvictIdle makes the limiter drop default keys not looked up for idle.
// Configured keys and keys in cooldown are kept. Sweeps run on key
// creation at most once per idle period.
func (krl *KeyedRateLimiter) EvictIdle(idle time.Duration) *KeyedRateLimiter {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	krl.idle = idle
	krl.lastSweep = krl.now()
	return krl
}

// Configure sets the limits for a key, replacing any existing limiter.
func (krl *KeyedRateLimiter) Configure(key string, l Limits) {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	e := &entry{limiter: rate.NewLimiter(rate.Limit(l.RPS), l.Burst), pinned: true}
	e.lastSeen.Store(krl.now().UnixNano())
	krl.limiters[key] = e
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.RLock()
	defer krl.mu.RUnlock()
	return len(krl.limiters)
}

// Allow reports whether a request for key may happen now.
// A key in cooldown is never allowed.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	e := krl.getEntry(key)
	if krl.remainingCooldown(e) > 0 {
		return false
	}
	return e.limiter.Allow()
}

// Wait blocks until a request for key is allowed or ctx is done.
// Any active cooldown is served first.
func (krl *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	e := krl.getEntry(key)

	if d := krl.remainingCooldown(e); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return e.limiter.Wait(ctx)
}

// Penalize puts key into cooldown for d. A longer existing cooldown is kept.
func (krl *KeyedRateLimiter) Penalize(key string, d time.Duration) {
	if d <= 0 {
		return
	}
	e := krl.getEntry(key)
	until := krl.now().Add(d)

	e.mu.Lock()
	if until.After(e.coolUntil) {
		e.coolUntil = until
	}
	e.mu.Unlock()
}

// CooldownRemaining returns how long key stays in cooldown.
func (krl *KeyedRateLimiter) CooldownRemaining(key string) time.Duration {
	return krl.remainingCooldown(krl.getEntry(key))
}

func (krl *KeyedRateLimiter) remainingCooldown(e *entry) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.coolUntil.IsZero() {
		return 0
	}
	d := e.coolUntil.Sub(krl.now())
	if d < 0 {
		return 0
	}
	return d
}

// getEntry returns the limiter for a key, creating one if needed.
func (krl *KeyedRateLimiter) getEntry(key string) *entry {
	// Fast path: read lock
	krl.mu.RLock()
	e, exists := krl.limiters[key]
	krl.mu.RUnlock()

	now := krl.now()
	if exists {
		e.lastSeen.Store(now.UnixNano())
		return e
	}

	// Slow path: write lock to create
	krl.mu.Lock()
	defer krl.mu.Unlock()

	// Double-check after acquiring write lock
	if e, exists = krl.limiters[key]; exists {
		e.lastSeen.Store(now.UnixNano())
		return e
	}

	if krl.idle > 0 && now.Sub(krl.lastSweep) >= krl.idle {
		krl.sweepLocked(now)
	}

	e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
	e.lastSeen.Store(now.UnixNano())
	krl.limiters[key] = e
	return e
}

// sweepLocked removes idle default keys. Callers hold krl.mu.
func (krl *KeyedRateLimiter) sweepLocked(now time.Time) {
	krl.lastSweep = now
	cutoff := now.Add(-krl.idle).UnixNano()
	for key, e := range krl.limiters {
		if e.pinned || e.lastSeen.Load() > cutoff {
			continue
		}
		if krl.remainingCooldown(e) > 0 {
			continue
		}
		delete(krl.limiters, key)
	}
}
