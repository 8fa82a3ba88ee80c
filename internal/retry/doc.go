// Package retry wraps failing operations in a bounded exponential
// backoff policy.
//
// Failures come in two kinds. Transient failures (network timeouts,
// connection resets, 5xx responses) are retried after an exponentially
// growing wait with ±20% jitter. Fatal failures (bad credentials,
// malformed URLs, disk errors) abort immediately; operations mark them
// by wrapping with Permanent.
//
// The policy never retries forever: it stops after MaxAttempts
// attempts or after a derived maximum elapsed time, whichever comes
// first. The elapsed budget is computed from the policy parameters by
// MaxElapsed rather than configured separately, so it cannot be set
// inconsistently with the attempt count.
//
// # Usage
//
//	policy := retry.Policy{
//	    InitialInterval: time.Second,
//	    Multiplier:      2,
//	    MaxAttempts:     5,
//	    Notify: func(err error, wait time.Duration) {
//	        log.Printf("attempt failed (%v), retrying in %s", err, wait)
//	    },
//	}
//
//	err := policy.Do(ctx, func(ctx context.Context) error {
//	    if err := transfer(ctx); isDiskError(err) {
//	        return retry.Permanent(err)
//	    } else if err != nil {
//	        return err
//	    }
//	    return nil
//	})
package retry
