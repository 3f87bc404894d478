package filter

import (
	"context"
	"sync/atomic"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// Take creates a Transformer that passes through only the first n values to
// arrive. The stream completes with the n-th value; later jobs are neither
// waited for nor delivered. If n <= 0, an empty stream is returned that never
// advances its input and closes it when closed.
func Take[T any](n int) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		if n <= 0 {
			return core.Exhausted[T](in)
		}

		var taken atomic.Int64
		stage := core.StopWhen(func(T) bool {
			return taken.Add(1) >= int64(n)
		}).Sequenced()
		if out, ok := core.Fuse(in, stage); ok {
			return out
		}
		return take(in, n)
	})
}

func take[T any](in core.Stream[T], n int) core.Stream[T] {
	var taken int
	return core.Pull(func(ctx context.Context) (T, error) {
		if taken >= n {
			var zero T
			return zero, core.ErrEndOfStream
		}
		v, err := in.Next(ctx)
		if err != nil {
			return v, err
		}
		taken++
		return v, nil
	}, in.Close)
}

// TakeWhile creates a Transformer that passes through values while the
// predicate holds. The first arriving value that fails the predicate ends
// the stream and is not delivered.
func TakeWhile[T any](predicate func(T) bool) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		if out, ok := core.Fuse(in, core.StopUnless(predicate)); ok {
			return out
		}
		return takeWhile(in, predicate)
	})
}

func takeWhile[T any](in core.Stream[T], predicate func(T) bool) core.Stream[T] {
	var done bool
	return core.Pull(func(ctx context.Context) (T, error) {
		var zero T
		if done {
			return zero, core.ErrEndOfStream
		}
		v, err := in.Next(ctx)
		if err != nil {
			return v, err
		}
		keep, err := core.Try(func() bool { return predicate(v) })
		if err != nil {
			return zero, err
		}
		if !keep {
			done = true
			return zero, core.ErrEndOfStream
		}
		return v, nil
	}, in.Close)
}

// Skip creates a Transformer that drops the first n values to arrive and
// passes through the rest. Arrival is completion order: Skip(2) drops the
// two jobs that finish first, whatever their position in the job list.
// If n <= 0, all values are passed through.
func Skip[T any](n int) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		if n <= 0 {
			return in
		}

		var seen atomic.Int64
		stage := core.Filter(func(T) bool {
			return seen.Add(1) > int64(n)
		}).Sequenced()
		if out, ok := core.Fuse(in, stage); ok {
			return out
		}
		return skip(in, n)
	})
}

func skip[T any](in core.Stream[T], n int) core.Stream[T] {
	var skipped int
	return core.Pull(func(ctx context.Context) (T, error) {
		for {
			v, err := in.Next(ctx)
			if err != nil {
				return v, err
			}
			if skipped >= n {
				return v, nil
			}
			skipped++
			if err := ctx.Err(); err != nil {
				var zero T
				return zero, err
			}
		}
	}, in.Close)
}

// SkipWhile creates a Transformer that drops values while the predicate
// holds. The first arriving value that fails the predicate is delivered and
// the predicate is never evaluated again, even for later values that would
// match it.
func SkipWhile[T any](predicate func(T) bool) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		var skipping atomic.Bool
		skipping.Store(true)
		stage := core.Filter(func(v T) bool {
			if !skipping.Load() {
				return true
			}
			if predicate(v) {
				return false
			}
			skipping.Store(false)
			return true
		}).Sequenced()
		if out, ok := core.Fuse(in, stage); ok {
			return out
		}
		return skipWhile(in, predicate)
	})
}

func skipWhile[T any](in core.Stream[T], predicate func(T) bool) core.Stream[T] {
	skipping := true
	return core.Pull(func(ctx context.Context) (T, error) {
		var zero T
		for {
			v, err := in.Next(ctx)
			if err != nil || !skipping {
				return v, err
			}
			match, err := core.Try(func() bool { return predicate(v) })
			if err != nil {
				return zero, err
			}
			if !match {
				skipping = false
				return v, nil
			}
			if err := ctx.Err(); err != nil {
				return zero, err
			}
		}
	}, in.Close)
}
