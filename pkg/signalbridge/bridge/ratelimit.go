package bridge

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket guarding a single sink. Tokens accrue
// fractionally at rate per second and are capped at the burst size; each
// allowed send consumes one token. A limiter with zero rate and zero burst
// declines every call.
//
// The limiter is safe for concurrent use: multiple dispatches may race on
// the same sink.
type RateLimiter struct {
	mu      sync.Mutex
	rate    float64
	burst   float64
	tokens  float64
	last    time.Time
	now     func() time.Time
	started bool
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithLimiterClock injects a clock, used by tests for deterministic refill.
func WithLimiterClock(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) {
		l.now = now
	}
}

// NewRateLimiter creates a token bucket with the given refill rate (tokens
// per second) and burst capacity. The bucket starts full.
func NewRateLimiter(rate float64, burst int, opts ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether one send may proceed now, consuming a token when it
// does. Declined attempts consume nothing and are never queued or retried.
func (l *RateLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.started {
		elapsed := now.Sub(l.last).Seconds()
		l.tokens = min(l.burst, l.tokens+elapsed*l.rate)
	}
	l.last = now
	l.started = true

	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}
