package prow

import (
	"context"
	"errors"
	"testing"
	"time"

	"arcalog/src/provider"
)

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, 4*time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &provider.TransientNetworkError{URL: "u", Err: errors.New("connection reset")}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := &provider.RemoteFormatError{URL: "u", Err: errors.New("404")}
	err := Retry(context.Background(), 5, time.Millisecond, time.Millisecond, func() error {
		calls++
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Errorf("Retry returned %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 2, time.Millisecond, time.Millisecond, func() error {
		calls++
		return &provider.TransientNetworkError{URL: "u", Err: errors.New("timeout")}
	})

	if !provider.IsTransient(err) {
		t.Errorf("Retry returned %v, want transient error", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetry_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, time.Hour, func() error {
		calls++
		cancel()
		return &provider.TransientNetworkError{URL: "u", Err: errors.New("timeout")}
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry returned %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
