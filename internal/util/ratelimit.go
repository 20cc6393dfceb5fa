package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces operations evenly at a fixed per-minute rate. Callers
// are granted slots in arrival order; each Wait sleeps exactly until its slot
// rather than polling.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration // spacing between granted slots
	next     time.Time     // earliest time the next slot may start
}

// NewRateLimiter creates a RateLimiter that allows perMinute operations per
// minute. Rates below one are raised to one.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{
		interval: time.Minute / time.Duration(perMinute),
		next:     time.Now(),
	}
}

// Wait blocks until the caller's slot arrives or the context is cancelled.
// The first call proceeds immediately.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	at := rl.next
	if at.Before(now) {
		at = now
	}
	rl.next = at.Add(rl.interval)
	rl.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
