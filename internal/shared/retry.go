package shared

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds retries of work that failed with ErrConcurrentModification.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	// Sleep is replaced in tests; nil waits on a timer honouring ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy is used when a service is built without one.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: 50 * time.Millisecond}

// RetryOnConflict runs fn until it succeeds, fails with an error other than
// ErrConcurrentModification, or the attempts are used up. The delay doubles per attempt with up
// to 50% jitter.
func RetryOnConflict(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil || !errors.Is(err, ErrConcurrentModification) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		if serr := sleep(ctx, backoff(policy.BaseDelay, attempt)); serr != nil {
			return serr
		}
	}
	return err
}

func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	exp := base * time.Duration(1<<attempt)
	jitter := time.Duration(rand.Int64N(int64(exp)/2 + 1))
	return exp + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
