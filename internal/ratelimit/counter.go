// Package ratelimit counts requests per key in fixed windows.
package ratelimit

import (
	"context"
	"time"
)

// Counter increments the hit count for key in the current window. The first
// hit opens a window of the given length; the count resets when it closes.
// Implementations must be safe under concurrent Increment calls.
type Counter interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Policy is a request budget for one endpoint class.
type Policy struct {
	Name   string
	Max    int
	Window time.Duration
}

// Decision is the outcome of checking one request against a policy.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter applies policies on top of a Counter.
type Limiter struct {
	counter Counter
}

// NewLimiter wraps a counter.
func NewLimiter(counter Counter) *Limiter {
	return &Limiter{counter: counter}
}

// Allow records a hit for client under policy and reports whether it fits the budget.
func (l *Limiter) Allow(ctx context.Context, policy Policy, client string) (Decision, error) {
	count, resetAt, err := l.counter.Increment(ctx, policy.Name+":"+client, policy.Window)
	if err != nil {
		return Decision{}, err
	}
	remaining := policy.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(policy.Max),
		Limit:     policy.Max,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
