// Package poll runs a check function on a fixed interval until it reports
// completion, the attempt budget runs out, or the context is cancelled.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrBudgetExhausted is returned when every attempt ran without the check
// reporting completion.
var ErrBudgetExhausted = errors.New("poll: attempt budget exhausted")

// Check inspects remote state once. It returns done=true to stop polling.
// A returned error stops polling immediately and is passed through verbatim.
type Check func(ctx context.Context) (done bool, err error)

// Run invokes check up to maxAttempts times, sleeping interval between
// attempts. The first attempt runs after one interval, matching a provider
// that is never terminal right after submission.
func Run(ctx context.Context, interval time.Duration, maxAttempts int, check Check) error {
	if maxAttempts <= 0 {
		return ErrBudgetExhausted
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		timer.Reset(interval)
	}
	return ErrBudgetExhausted
}
