package resilience

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token-bucket rate limiter. The safety monitor uses one to
// throttle admin notifications so an alert storm degrades to a sample of
// alerts instead of hammering the notification channel.
type Limiter struct {
	mu         sync.Mutex
	name       string
	capacity   int
	tokens     int
	refillRate int // tokens per second
	lastRefill time.Time
}

// NewLimiter creates a limiter starting at full capacity
func NewLimiter(name string, capacity, refillRate int) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if refillRate <= 0 {
		refillRate = 1
	}
	return &Limiter{
		name:       name,
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow reports whether one operation may proceed now
func (l *Limiter) Allow() bool {
	return l.AllowN(1)
}

// AllowN reports whether n operations may proceed now
func (l *Limiter) AllowN(n int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= n {
		l.tokens -= n
		return true
	}
	return false
}

// Wait blocks until one operation may proceed or ctx is done
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.AllowN(1) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.waitHint()):
		}
	}
}

// refill must be called with the mutex held
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill)
	if elapsed < time.Second {
		return
	}

	added := int(elapsed.Seconds()) * l.refillRate
	if added > 0 {
		l.tokens += added
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
		l.lastRefill = now
	}
}

// waitHint estimates how long until the next token arrives
func (l *Limiter) waitHint() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens > 0 {
		return 0
	}
	// One token plus a timing-precision buffer
	return time.Duration(1000/l.refillRate+100) * time.Millisecond
}

// Tokens returns the number of tokens currently available
func (l *Limiter) Tokens() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}
