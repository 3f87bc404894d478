// Package timing bounds streams in wall-clock time. The fan-in engine never
// enforces timeouts itself; these operators race each advance against a
// timer from the outside.
package timing

import (
	"context"
	"errors"
	"time"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// ErrTimeout is returned when an advance takes longer than its bound. It
// wraps context.DeadlineExceeded.
var ErrTimeout = errors.Join(errors.New("timing: advance timed out"), context.DeadlineExceeded)

// Timeout creates a Transformer that bounds every advance by d. When the
// bound is hit the call returns ErrTimeout and the stream stays usable: the
// job that was awaited is still delivered by a later call.
func Timeout[T any](d time.Duration) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		return core.Pull(func(ctx context.Context) (T, error) {
			tctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			v, err := in.Next(tctx)
			if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return v, ErrTimeout
			}
			return v, err
		}, in.Close)
	})
}

// Deadline creates a Transformer that bounds the whole consumption of the
// stream: every advance after t returns ErrTimeout.
func Deadline[T any](t time.Time) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		return core.Pull(func(ctx context.Context) (T, error) {
			dctx, cancel := context.WithDeadline(ctx, t)
			defer cancel()

			v, err := in.Next(dctx)
			if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return v, ErrTimeout
			}
			return v, err
		}, in.Close)
	})
}
