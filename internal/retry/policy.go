package retry

import (
	"context"
	"errors"
	"time"
)

// FixedPolicy retries up to MaxAttempts total with a constant delay.
// Permanent, when set, marks errors that are never worth another attempt.
type FixedPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Permanent   func(error) bool
}

// NewFixedPolicy builds a FixedPolicy that retries every error class.
func NewFixedPolicy(maxAttempts int, delay time.Duration) *FixedPolicy {
	return &FixedPolicy{MaxAttempts: maxAttempts, Delay: delay}
}

// ShouldRetry decides whether the error is retryable.
func (p *FixedPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.MaxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if p.Permanent != nil && p.Permanent(err) {
		return false
	}
	return true
}

// Backoff returns the wait duration before the next attempt.
func (p *FixedPolicy) Backoff(int) time.Duration {
	return p.Delay
}
