package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errConflict = errors.New("write conflict")

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastRetry(3), func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil || result != "ok" {
		t.Fatalf("expected ok, got %q %v", result, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_SucceedsAfterConflicts(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastRetry(5)
	cfg.OnRetry = func(attempt int, err error, _ time.Duration) { retried = append(retried, attempt) }

	err := RetryFunc(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errConflict
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 || len(retried) != 2 {
		t.Errorf("expected 3 calls and 2 retries, got %d and %v", calls, retried)
	}
}

func TestRetry_ReturnsLastErrorAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := RetryFunc(context.Background(), fastRetry(4), func() error {
		calls++
		return errConflict
	})
	if !errors.Is(err, errConflict) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestRetry_RetryIfStopsEarly(t *testing.T) {
	permanent := errors.New("permanent")
	cfg := fastRetry(5)
	cfg.RetryIf = func(err error) bool { return errors.Is(err, errConflict) }

	calls := 0
	err := RetryFunc(context.Background(), cfg, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Errorf("expected a single call returning permanent, got %d calls and %v", calls, err)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := RetryFunc(ctx, fastRetry(3), func() error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Errorf("expected cancellation before the first call, got %d calls and %v", calls, err)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	if DefaultRetryIf(context.Canceled) || DefaultRetryIf(context.DeadlineExceeded) {
		t.Error("context errors must not be retried")
	}
	if !DefaultRetryIf(errConflict) {
		t.Error("ordinary errors should be retried")
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond, BackoffFactor: 2}
	if got := Backoff(1, cfg); got != 10*time.Millisecond {
		t.Errorf("attempt 1: expected 10ms, got %v", got)
	}
	if got := Backoff(3, cfg); got != 40*time.Millisecond {
		t.Errorf("attempt 3: expected 40ms, got %v", got)
	}
	if got := Backoff(10, cfg); got != 50*time.Millisecond {
		t.Errorf("attempt 10: expected cap 50ms, got %v", got)
	}

	cfg.Jitter = 0.5
	for i := 0; i < 20; i++ {
		got := Backoff(2, cfg)
		if got < 10*time.Millisecond || got > 30*time.Millisecond {
			t.Fatalf("jittered backoff out of range: %v", got)
		}
	}
}
