package reliability

import (
	"context"
	"time"

	"github.com/procureflow/agent/internal/orcherr"
)

// withTimeout races fn against a per-invocation deadline. Exceeding the
// deadline yields orcherr.CodeTimeout wrapping context.DeadlineExceeded,
// which IsRetryable treats as retryable (spec.md §4.3).
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if d <= 0 {
		return fn(ctx)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(timeoutCtx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-timeoutCtx.Done():
		return zero, orcherr.Wrap(orcherr.CodeTimeout, "invocation exceeded deadline", timeoutCtx.Err())
	}
}
