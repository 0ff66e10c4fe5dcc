package prow

import (
	"context"
	"time"

	"arcalog/src/provider"
)

// Retry calls fn until it succeeds, returns a non-transient error, or the
// attempts are exhausted. The delay doubles after each failure up to max.
func Retry(ctx context.Context, attempts int, initial, max time.Duration, fn func() error) error {
	if attempts <= 1 {
		return fn()
	}

	delay := initial
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			if delay < max {
				delay *= 2
				if delay > max {
					delay = max
				}
			}
		}

		err = fn()
		if err == nil || !provider.IsTransient(err) {
			return err
		}
	}
	return err
}
