package resil

import (
	"context"
	"time"

	"sitenav/internal/types"
)

// DefaultTimeout bounds every remote call unless the caller overrides it.
const DefaultTimeout = 30 * time.Second

// WithTimeout races fn against a timer. If the timer fires first the call
// returns a Network-categorized timeout error with a synthetic status of 0;
// the abandoned operation is left to settle on its own; no cancellation is
// propagated. The guard stops waiting, it does not stop the request.
func WithTimeout[T any](ctx context.Context, d time.Duration, msg string, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		d = DefaultTimeout
	}

	type settled struct {
		val T
		err error
	}
	// Buffered so the goroutine can settle after abandonment without leaking.
	ch := make(chan settled, 1)
	go func() {
		v, err := fn(context.WithoutCancel(ctx))
		ch <- settled{val: v, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case s := <-ch:
		return s.val, s.err
	case <-ctx.Done():
		return zero, types.NewCategorized(types.CategoryNetwork, 0, msg, ctx.Err())
	case <-timer.C:
		return zero, types.NewCategorized(types.CategoryNetwork, 0, msg, types.ErrTimeout)
	}
}
