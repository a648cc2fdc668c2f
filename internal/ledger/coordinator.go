package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/kestrelpay/kestrel/pkg/logger"
)

// coordinator re-runs a unit of work when the store reports a retryable
// isolation failure. The retried block starts at the idempotency probe, so a
// previous attempt that committed before surfacing the conflict is found on
// the next pass instead of being executed twice.
type coordinator struct {
	maxRetries     int
	initialBackoff time.Duration
	log            *logger.Logger

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

func newCoordinator(maxRetries int, initialBackoff time.Duration, log *logger.Logger) *coordinator {
	return &coordinator{
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		log:            log,
		sleep:          sleepCtx,
	}
}

// run executes fn up to maxRetries+1 times. Only ErrSerialization is
// retryable; everything else propagates immediately. Between attempts it
// backs off exponentially starting at initialBackoff and honors context
// cancellation. When the budget is spent the last error is wrapped in
// ErrConflict together with the attempt count.
func (c *coordinator) run(ctx context.Context, fn func(ctx context.Context) (*Entry, error)) (*Entry, int, error) {
	backoff := c.initialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, attempt, err
			}
			backoff *= 2
		}

		entry, err := fn(ctx)
		if err == nil {
			return entry, attempt, nil
		}
		if !errors.Is(err, ErrSerialization) {
			return nil, attempt, err
		}

		lastErr = err
		c.log.Debug("retrying after serialization failure",
			"attempt", attempt+1,
			"backoff", backoff.String(),
		)
	}

	return nil, c.maxRetries + 1, errors.Join(ErrConflict, lastErr)
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
