package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelpay/kestrel/pkg/logger"
)

func newTestCoordinator(maxRetries int) (*coordinator, *[]time.Duration) {
	c := newCoordinator(maxRetries, 10*time.Millisecond, logger.New("test", io.Discard))

	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

func TestCoordinator_SucceedsFirstAttempt(t *testing.T) {
	c, sleeps := newTestCoordinator(10)
	want := &Entry{Amount: 5}

	got, attempts, err := c.run(context.Background(), func(ctx context.Context) (*Entry, error) {
		return want, nil
	})

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 0, attempts)
	assert.Empty(t, *sleeps)
}

func TestCoordinator_RetriesSerializationFailures(t *testing.T) {
	c, sleeps := newTestCoordinator(10)
	want := &Entry{Amount: 5}

	calls := 0
	got, attempts, err := c.run(context.Background(), func(ctx context.Context) (*Entry, error) {
		calls++
		if calls <= 3 {
			return nil, fmt.Errorf("append: %w", ErrSerialization)
		}
		return want, nil
	})

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 4, calls)

	// Backoff doubles from the initial value on each retry
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
	}, *sleeps)
}

func TestCoordinator_ExhaustsBudget(t *testing.T) {
	c, sleeps := newTestCoordinator(10)

	calls := 0
	_, attempts, err := c.run(context.Background(), func(ctx context.Context) (*Entry, error) {
		calls++
		return nil, ErrSerialization
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrSerialization)
	assert.Equal(t, 11, calls, "1 initial attempt + 10 retries")
	assert.Equal(t, 11, attempts)
	assert.Len(t, *sleeps, 10)
}

func TestCoordinator_NonRetryableErrorPropagates(t *testing.T) {
	c, sleeps := newTestCoordinator(10)
	boom := errors.New("boom")

	calls := 0
	_, _, err := c.run(context.Background(), func(ctx context.Context) (*Entry, error) {
		calls++
		return nil, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *sleeps)
}

func TestCoordinator_ContextCancelledDuringBackoff(t *testing.T) {
	c := newCoordinator(10, time.Hour, logger.New("test", io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	calls := 0
	_, _, err := c.run(ctx, func(ctx context.Context) (*Entry, error) {
		calls++
		return nil, ErrSerialization
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation during backoff stops further attempts")
}

func TestSleepCtx(t *testing.T) {
	t.Run("sleeps the full duration", func(t *testing.T) {
		start := time.Now()
		err := sleepCtx(context.Background(), 20*time.Millisecond)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("returns on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := sleepCtx(ctx, time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
