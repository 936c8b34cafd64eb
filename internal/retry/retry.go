// Package retry wraps a call in a bounded attempt loop with a pluggable policy.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy decides whether another attempt is allowed and how long to wait first.
// Attempts are numbered from 1.
type Policy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry sleep interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// Runner executes calls under a Policy.
type Runner struct {
	policy  Policy
	sleep   SleepFunc
	onRetry func(attempt int, err error, wait time.Duration)
}

// Option customises a Runner.
type Option func(*Runner)

// WithSleep swaps the sleep implementation, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(r *Runner) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// WithOnRetry registers a hook invoked before each backoff.
func WithOnRetry(fn func(attempt int, err error, wait time.Duration)) Option {
	return func(r *Runner) {
		r.onRetry = fn
	}
}

// New builds a Runner.
func New(policy Policy, opts ...Option) *Runner {
	r := &Runner{policy: policy, sleep: Sleep}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do calls fn until it succeeds, the policy gives up, or ctx ends. It returns
// the last error from fn together with the number of attempts made.
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	attempt := 0
	for {
		attempt++
		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil || r.policy == nil || !r.policy.ShouldRetry(err, attempt) {
			return attempt, err
		}
		wait := r.policy.Backoff(attempt)
		if r.onRetry != nil {
			r.onRetry(attempt, err, wait)
		}
		if serr := r.sleep(ctx, wait); serr != nil {
			return attempt, err
		}
	}
}
