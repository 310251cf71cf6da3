package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/store-extractor/internal/common"
)

// RetryPolicy bounds the retry combinator.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy is three attempts with 1s, 2s backoff between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Retry runs op up to p.MaxAttempts times. After failed attempt i (0-based)
// it waits BaseDelay*2^i before the next one. The last error is returned
// unmodified. A cancelled ctx ends the loop early with the last error.
func Retry[T any](ctx context.Context, p RetryPolicy, logger *slog.Logger, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		out, err := op(ctx, attempt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == p.MaxAttempts-1 {
			break
		}

		wait := p.BaseDelay << attempt
		logger.Warn("llm.retry.attempt_failed", append(common.LogAttrs(ctx),
			"attempt", attempt+1,
			"max_attempts", p.MaxAttempts,
			"kind", common.KindOf(err),
			"error", err,
			"backoff_ms", wait.Milliseconds(),
		)...)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, lastErr
		case <-t.C:
		}
	}
	logger.Error("llm.retry.exhausted", append(common.LogAttrs(ctx),
		"attempts", p.MaxAttempts,
		"kind", common.KindOf(lastErr),
		"error", lastErr,
	)...)
	return zero, lastErr
}
