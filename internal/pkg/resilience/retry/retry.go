// Package retry wraps avast/retry-go behind a small interface so callers can
// bound transient failures (e.g. a chain head lookup) with exponential backoff
// without depending on the library directly.
//
//	r := retry.New(retry.WithAttempts(3))
//	err := r.Execute(ctx, func() error {
//	    return fetchHead()
//	})
package retry

import (
	"context"
	"time"

	"github.com/gabapcia/walletbot/internal/pkg/logger"

	retry "github.com/avast/retry-go/v4"
)

// Retry executes an operation with retry logic.
type Retry interface {
	// Execute runs operation until it succeeds, the attempts are exhausted or
	// ctx is done. The operation should be idempotent.
	Execute(ctx context.Context, operation func() error) error
}

type config struct {
	attempts    uint          // total attempts, including the first
	delay       time.Duration // base delay before the first retry
	maxDelay    time.Duration // cap for the exponential delay
	lastErrOnly bool          // return only the last error instead of all of them
	name        string        // operation name reported in retry logs
}

// Option configures a Retry created by New.
type Option func(*config)

type retrier struct {
	cfg config
}

var _ Retry = (*retrier)(nil)

// New returns a Retry with exponential backoff. Defaults:
//   - attempts:    3 (1 initial attempt + 2 retries)
//   - delay:       1 second
//   - maxDelay:    5 seconds
//   - lastErrOnly: true
func New(opts ...Option) Retry {
	cfg := config{
		attempts:    3,
		delay:       1 * time.Second,
		maxDelay:    5 * time.Second,
		lastErrOnly: true,
		name:        "operation",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &retrier{cfg: cfg}
}

// Execute implements Retry. Every failed attempt that will be retried is
// logged at warn level.
func (r *retrier) Execute(ctx context.Context, operation func() error) error {
	return retry.Do(operation,
		retry.Attempts(r.cfg.attempts),
		retry.Delay(r.cfg.delay),
		retry.MaxDelay(r.cfg.maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(r.cfg.lastErrOnly),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn(ctx, "operation failed, retrying",
				"retry.operation", r.cfg.name,
				"retry.attempt", n+1,
				"error", err,
			)
		}),
	)
}

// WithAttempts sets the total number of attempts, including the first one.
func WithAttempts(n uint) Option {
	return func(c *config) {
		c.attempts = n
	}
}

// WithDelay sets the base delay between attempts.
func WithDelay(d time.Duration) Option {
	return func(c *config) {
		c.delay = d
	}
}

// WithMaxDelay caps the exponential delay between attempts.
func WithMaxDelay(d time.Duration) Option {
	return func(c *config) {
		c.maxDelay = d
	}
}

// WithLastErrorOnly chooses between the last error (true) and all attempt errors joined (false).
func WithLastErrorOnly(b bool) Option {
	return func(c *config) {
		c.lastErrOnly = b
	}
}

// WithName sets the operation name used in retry log entries.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}
