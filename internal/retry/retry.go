package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrBudgetExhausted wraps the last transient error once every allowed
// attempt has failed.
var ErrBudgetExhausted = errors.New("retry budget exhausted")

// jitterFactor is the randomization applied to each computed wait:
// the actual delay is within ±20% of the exponential value.
const jitterFactor = 0.2

// Policy describes how a failing operation is retried. Failures are
// transient by default; an operation marks a failure fatal by wrapping
// it with Permanent, which aborts immediately without waiting.
//
// The zero value is usable and applies the defaults documented on each
// field.
type Policy struct {
	// InitialInterval is the wait before the first retry. Subsequent
	// waits grow by Multiplier. Default: 500ms.
	InitialInterval time.Duration

	// Multiplier is the exponential growth factor. Default: 1.5.
	Multiplier float64

	// MaxAttempts is the total number of attempts, the first one
	// included. Default: 3.
	MaxAttempts int

	// AttemptTimeout bounds the duration of a single attempt. The
	// operation receives a context that expires after this long.
	// Default: 5m.
	AttemptTimeout time.Duration

	// Notify, if set, is called after every failed attempt that will
	// be retried, with the error and the wait before the next attempt.
	// This is the only observability hook in the policy.
	Notify func(err error, wait time.Duration)
}

// normalized returns a copy of p with defaults applied.
func (p Policy) normalized() Policy {
	if p.InitialInterval <= 0 {
		p.InitialInterval = 500 * time.Millisecond
	}
	if p.Multiplier <= 1 {
		p.Multiplier = 1.5
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = 5 * time.Minute
	}
	return p
}

// Permanent marks err as fatal: Do aborts immediately instead of
// retrying. Use this for failures that cannot succeed on retry, such
// as authentication errors, malformed URLs, and disk write failures.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// IsPermanent reports whether err carries a Permanent marker anywhere
// in its chain.
func IsPermanent(err error) bool {
	var permanent *backoff.PermanentError
	return errors.As(err, &permanent)
}

// MaxElapsed computes the total time budget the policy can spend:
// the sum of the (unjittered) backoff waits plus the per-attempt
// timeout for every attempt. It is a pure function of its inputs and
// is always strictly greater than maxAttempts*attemptTimeout, so a
// policy never retries indefinitely regardless of how generous the
// configuration is.
func MaxElapsed(initial time.Duration, multiplier float64, maxAttempts int, attemptTimeout time.Duration) time.Duration {
	var waits time.Duration
	interval := float64(initial)
	for i := 0; i < maxAttempts; i++ {
		waits += time.Duration(interval)
		interval *= multiplier
	}
	return waits + time.Duration(maxAttempts)*attemptTimeout
}

// MaxElapsed returns the derived total time budget for this policy.
func (p Policy) MaxElapsed() time.Duration {
	p = p.normalized()
	return MaxElapsed(p.InitialInterval, p.Multiplier, p.MaxAttempts, p.AttemptTimeout)
}

// Do runs operation under the policy. The operation is handed a
// context bounded by AttemptTimeout; it must return nil on success, a
// Permanent-wrapped error to abort, or any other error to be retried
// after an exponential backoff wait with ±20% jitter.
//
// Do returns nil on success, the unwrapped fatal error on a Permanent
// failure, ctx.Err() if the caller's context ends, and an
// ErrBudgetExhausted-wrapped error once MaxAttempts attempts (or the
// derived MaxElapsed budget) have been spent.
func (p Policy) Do(ctx context.Context, operation func(context.Context) error) error {
	p = p.normalized()

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.InitialInterval
	expo.Multiplier = p.Multiplier
	expo.RandomizationFactor = jitterFactor
	expo.MaxInterval = p.MaxElapsed()
	expo.MaxElapsedTime = p.MaxElapsed()

	attempts := 0
	fatal := false

	wrapped := func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
		defer cancel()

		err := operation(attemptCtx)
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			fatal = true
		}
		return err
	}

	// MaxAttempts counts the first attempt, WithMaxRetries counts only
	// the retries after it.
	policy := backoff.WithContext(
		backoff.WithMaxRetries(expo, uint64(p.MaxAttempts-1)), ctx)

	err := backoff.RetryNotify(wrapped, policy, p.Notify)
	if err == nil {
		return nil
	}
	if fatal || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrBudgetExhausted, attempts, err)
}
