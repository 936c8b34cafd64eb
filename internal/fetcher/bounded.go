package fetcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/embed-provider-sync/internal/logging"
	"github.com/JakeFAU/embed-provider-sync/internal/retry"
)

// Recorder receives per-attempt and per-URL outcomes.
type Recorder interface {
	ObserveAttempt(url string, err error, size int, d time.Duration)
	ObserveResult(url string, ok bool)
}

// Bounded fetches pages under a shared Gate and retries failed attempts.
// The gate slot is held for every attempt of a URL, backoff included.
type Bounded struct {
	inner    PageFetcher
	gate     *Gate
	runner   *retry.Runner
	recorder Recorder
	logger   *zap.Logger
}

// BoundedOption customises a Bounded fetcher.
type BoundedOption func(*boundedOptions)

type boundedOptions struct {
	sleep    retry.SleepFunc
	recorder Recorder
}

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(fn retry.SleepFunc) BoundedOption {
	return func(o *boundedOptions) { o.sleep = fn }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) BoundedOption {
	return func(o *boundedOptions) { o.recorder = r }
}

// NewBounded wires inner behind gate using policy for retries.
func NewBounded(inner PageFetcher, gate *Gate, policy retry.Policy, logger *zap.Logger, opts ...BoundedOption) *Bounded {
	logger = logging.OrNop(logger)
	var o boundedOptions
	for _, opt := range opts {
		opt(&o)
	}
	b := &Bounded{
		inner:    inner,
		gate:     gate,
		recorder: o.recorder,
		logger:   logger,
	}
	b.runner = retry.New(policy,
		retry.WithSleep(o.sleep),
		retry.WithOnRetry(func(attempt int, err error, wait time.Duration) {
			b.logger.Debug("fetch attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}),
	)
	return b
}

// Fetch returns the page body and true, or "" and false once every attempt
// failed. Failures never escape as errors; they are logged with the last cause.
func (b *Bounded) Fetch(ctx context.Context, url string) (string, bool) {
	if err := b.gate.Acquire(ctx); err != nil {
		b.logger.Warn("fetch abandoned before start", zap.String("url", url), zap.Error(err))
		b.observeResult(url, false)
		return "", false
	}
	defer b.gate.Release()

	var page Page
	attempts, err := b.runner.Do(ctx, func(ctx context.Context, _ int) error {
		start := time.Now()
		p, ferr := b.inner.Fetch(ctx, url)
		if b.recorder != nil {
			b.recorder.ObserveAttempt(url, ferr, len(p.Body), time.Since(start))
		}
		if ferr != nil {
			return ferr
		}
		page = p
		return nil
	})
	if err != nil {
		b.logger.Warn("failed to fetch url",
			zap.String("url", url),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		b.observeResult(url, false)
		return "", false
	}
	b.observeResult(url, true)
	return string(page.Body), true
}

func (b *Bounded) observeResult(url string, ok bool) {
	if b.recorder != nil {
		b.recorder.ObserveResult(url, ok)
	}
}
