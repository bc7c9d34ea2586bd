package producer

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/roach88/runview/internal/model"
)

// Default retry policy.
const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 100 * time.Millisecond
)

// RetryPolicy bounds the retries of a Retrying producer.
type RetryPolicy struct {
	// MaxAttempts counts the first try. Values below 1 mean 1.
	MaxAttempts     int
	InitialInterval time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, InitialInterval: DefaultInitialInterval}
}

// Retrying wraps a producer with exponential backoff.
//
// A missing file is permanent and is not retried. Context cancellation
// stops the retries.
type Retrying struct {
	next   Producer
	policy RetryPolicy
	logger *slog.Logger
}

// WithRetry wraps next. A nil logger uses slog.Default().
func WithRetry(next Producer, policy RetryPolicy, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{next: next, policy: policy, logger: logger}
}

func (r *Retrying) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r.policy.InitialInterval > 0 {
		b.InitialInterval = r.policy.InitialInterval
	}
	b.MaxElapsedTime = 0

	retries := r.policy.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Produce calls the wrapped producer until it succeeds or the policy is
// exhausted, returning the last error.
func (r *Retrying) Produce(ctx context.Context) (*model.Payload, error) {
	var payload *model.Payload
	attempt := 0

	op := func() error {
		attempt++
		p, err := r.next.Produce(ctx)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return backoff.Permanent(err)
			}
			return err
		}
		payload = p
		return nil
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("producer failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, r.backOff(ctx), notify); err != nil {
		return nil, err
	}
	return payload, nil
}
