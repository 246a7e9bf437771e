package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepLog struct {
	delays []time.Duration
}

func (s *sleepLog) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func conflictFor(n int, calls *int) func(context.Context) error {
	return func(context.Context) error {
		*calls++
		if *calls <= n {
			return fmt.Errorf("orders: create: %w", ErrConcurrentModification)
		}
		return nil
	}
}

func TestRetryOnConflictSucceedsWithinAttempts(t *testing.T) {
	log := &sleepLog{}
	calls := 0
	err := RetryOnConflict(context.Background(), RetryPolicy{Attempts: 3, BaseDelay: 10 * time.Millisecond, Sleep: log.sleep}, conflictFor(2, &calls))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, log.delays, 2)
	assert.GreaterOrEqual(t, log.delays[0], 10*time.Millisecond)
	assert.LessOrEqual(t, log.delays[0], 15*time.Millisecond)
	assert.GreaterOrEqual(t, log.delays[1], 20*time.Millisecond)
	assert.LessOrEqual(t, log.delays[1], 30*time.Millisecond)
}

func TestRetryOnConflictStopsAtAttempts(t *testing.T) {
	log := &sleepLog{}
	calls := 0
	err := RetryOnConflict(context.Background(), RetryPolicy{Attempts: 3, Sleep: log.sleep}, conflictFor(10, &calls))
	require.ErrorIs(t, err, ErrConcurrentModification)
	assert.Equal(t, 3, calls)
	assert.Len(t, log.delays, 2, "no sleep after the last attempt")
}

func TestRetryOnConflictRunsOnceWithoutPolicy(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), RetryPolicy{}, conflictFor(10, &calls))
	require.ErrorIs(t, err, ErrConcurrentModification)
	assert.Equal(t, 1, calls)
}

func TestRetryOnConflictDoesNotRetryOtherErrors(t *testing.T) {
	for _, want := range []error{ErrInsufficientStock, ErrNotFound, ErrValidation, errors.New("boom")} {
		calls := 0
		err := RetryOnConflict(context.Background(), RetryPolicy{Attempts: 5}, func(context.Context) error {
			calls++
			return want
		})
		assert.ErrorIs(t, err, want)
		assert.Equal(t, 1, calls)
	}
}

func TestRetryOnConflictHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- RetryOnConflict(ctx, RetryPolicy{Attempts: 5, BaseDelay: time.Hour}, func(context.Context) error {
			calls++
			return ErrConcurrentModification
		})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry kept sleeping after cancellation")
	}
}

func TestSleepCtxReturnsWhenAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, 0), context.Canceled)
	assert.ErrorIs(t, sleepCtx(ctx, time.Minute), context.Canceled)
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))
}
