package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetry_ReturnsLastErrorUnmodified(t *testing.T) {
	var errs []error
	calls := 0
	_, err := Retry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, quietLogger(),
		func(ctx context.Context, attempt int) (string, error) {
			calls++
			e := fmt.Errorf("attempt %d", attempt)
			errs = append(errs, e)
			return "", e
		})
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if err != errs[2] {
		t.Fatalf("got %v, want the third attempt's error", err)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, quietLogger(),
		func(ctx context.Context, attempt int) (int, error) {
			calls++
			if attempt < 2 {
				return 0, errors.New("flaky")
			}
			return 42, nil
		})
	if err != nil || got != 42 || calls != 3 {
		t.Fatalf("got %d, %v after %d calls", got, err, calls)
	}
}

func TestRetry_ExponentialBackoff(t *testing.T) {
	base := 20 * time.Millisecond
	var stamps []time.Time
	_, _ = Retry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: base}, quietLogger(),
		func(ctx context.Context, attempt int) (struct{}, error) {
			stamps = append(stamps, time.Now())
			return struct{}{}, errors.New("fail")
		})
	if len(stamps) != 3 {
		t.Fatalf("attempts = %d", len(stamps))
	}
	if d := stamps[1].Sub(stamps[0]); d < base {
		t.Errorf("first backoff %v < %v", d, base)
	}
	if d := stamps[2].Sub(stamps[1]); d < 2*base {
		t.Errorf("second backoff %v < %v", d, 2*base)
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	boom := errors.New("boom")
	_, err := Retry(ctx, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}, quietLogger(),
		func(ctx context.Context, attempt int) (int, error) {
			calls++
			cancel()
			return 0, boom
		})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
