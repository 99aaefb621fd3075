package pipeline

import (
	"context"
	"time"
)

// RetryPolicy bounds how often the extraction call is attempted.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	BaseBackoff time.Duration // wait before the second attempt; doubles after
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Second}
}

// Delay is the wait after failed attempt n (1-based): base * 2^(n-1).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseBackoff << (attempt - 1)
}

// Sleeper waits for d or until ctx is done, returning ctx.Err() in that case.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
