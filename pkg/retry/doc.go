// Package retry provides a small retry-with-backoff combinator for
// fallible operations, independent of which caller uses it.
//
//	attempts, err := retry.Do(ctx, retry.Policy{
//	    MaxAttempts: 4,
//	    Backoff:     retry.ExponentialBackoff{InitialInterval: 2 * time.Second},
//	    OnRetry: func(attempt int, err error) {
//	        log.Warn("retrying delivery", "attempt", attempt, "error", err)
//	    },
//	}, func(ctx context.Context) error {
//	    return sender.Send(ctx, msg)
//	})
//
// Wrap an error with retry.Permanent to abort without consuming the
// remaining attempts.
package retry
