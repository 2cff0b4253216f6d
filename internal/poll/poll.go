// Package poll waits for a remote resource to reach a terminal state.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrTimeout is returned when the resource is still pending after the
// maximum number of attempts.
var ErrTimeout = errors.New("poll: attempts exhausted")

var errPending = errors.New("poll: pending")

// Config bounds a wait. Interval is the fixed delay between checks and
// MaxAttempts caps the number of checks.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultConfig checks every 1.5s for up to three minutes.
var DefaultConfig = Config{Interval: 1500 * time.Millisecond, MaxAttempts: 120}

// CheckFn reports the current value and whether it is terminal. An error
// aborts the wait immediately.
type CheckFn[T any] func(ctx context.Context) (T, bool, error)

// Until calls check at a fixed interval until it reports done, fails, the
// attempt cap is reached or ctx is cancelled. It returns the last value seen.
func Until[T any](ctx context.Context, cfg Config, check CheckFn[T]) (T, int, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}

	var (
		last     T
		attempts int
	)
	op := func() error {
		attempts++
		v, done, err := check(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		last = v
		if !done {
			return errPending
		}
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.Interval), uint64(cfg.MaxAttempts-1)),
		ctx,
	)

	err := backoff.Retry(op, b)
	switch {
	case err == nil:
		return last, attempts, nil
	case errors.Is(err, errPending):
		return last, attempts, fmt.Errorf("%w after %d checks", ErrTimeout, attempts)
	default:
		return last, attempts, err
	}
}
