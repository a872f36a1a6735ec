// Package retry wraps a single-attempt Getter with a flat retry budget.
package retry

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

// ErrRetriesExhausted is returned once every attempt failed with a transient error.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Attempt results reported to an AttemptObserver.
const (
	AttemptOK    = "ok"
	AttemptRetry = "retry"
	AttemptFail  = "fail"
)

// AttemptObserver is told about every single GET attempt.
type AttemptObserver interface {
	ObserveAttempt(url, result string)
}

// Config controls the retry budget.
type Config struct {
	// MaxAttempts is the total number of attempts per URL (default grabber.MaxRequestRetries).
	MaxAttempts int
	// Observer is optional.
	Observer AttemptObserver
}

// Fetcher implements grabber.Fetcher on top of a grabber.Getter. Transport
// failures are retried immediately with no backoff; HTTP status errors and
// invalid URLs end the loop on first sight.
type Fetcher struct {
	getter      grabber.Getter
	maxAttempts int
	observer    AttemptObserver
	logger      *zap.Logger
}

// New builds a Fetcher.
func New(getter grabber.Getter, cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = grabber.MaxRequestRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		getter:      getter,
		maxAttempts: cfg.MaxAttempts,
		observer:    cfg.Observer,
		logger:      logger,
	}
}

// MaxAttempts returns the configured attempt budget.
func (f *Fetcher) MaxAttempts() int {
	return f.maxAttempts
}

// Fetch returns the body of url. On exhaustion the payload is nil and the
// error wraps ErrRetriesExhausted along with the last transport error.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.getter == nil {
		return nil, errors.New("retry fetcher has no getter")
	}
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		body, err := f.getter.Get(ctx, url)
		if err == nil {
			f.observe(url, AttemptOK)
			return body, nil
		}
		if !Retryable(ctx, err) {
			f.observe(url, AttemptFail)
			return nil, err
		}
		f.observe(url, AttemptRetry)
		lastErr = err
		f.logger.Warn("Retrying download",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.maxAttempts),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("%w after %d attempts for %s: %w", ErrRetriesExhausted, f.maxAttempts, url, lastErr)
}

func (f *Fetcher) observe(url, result string) {
	if f.observer != nil {
		f.observer.ObserveAttempt(url, result)
	}
}

// Retryable reports whether err is a transient transport failure worth another
// attempt. Per-request timeouts are transient; cancellation of ctx is not.
func Retryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, grabber.ErrInvalidURL) {
		return false
	}
	var statusErr *grabber.StatusError
	return !errors.As(err, &statusErr)
}
