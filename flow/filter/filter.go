// Package filter provides operators that decide which results reach the
// consumer and when a stream ends: Where, Take, TakeWhile, Skip, SkipWhile.
//
// Every operator has two implementations. When the input is a fan-in stream
// that can still be claimed, the operator is fused into the per-job
// continuations: decisions are made as each job completes, before the result
// is queued. Otherwise the operator wraps the input's cursor. Both forms
// yield the same values and stop at the same point. Failed results are never
// filtered, counted or used to decide a cutoff; they pass straight through.
package filter

import (
	"context"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// Where creates a Transformer that only passes through values matching the
// predicate.
func Where[T any](predicate func(T) bool) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		if out, ok := core.Fuse(in, core.Filter(predicate)); ok {
			return out
		}
		return where(in, predicate)
	})
}

// Exclude creates a Transformer that drops values matching the predicate.
// This is the inverse of Where.
func Exclude[T any](predicate func(T) bool) core.Transformer[T, T] {
	return Where(func(v T) bool { return !predicate(v) })
}

func where[T any](in core.Stream[T], predicate func(T) bool) core.Stream[T] {
	return core.Pull(func(ctx context.Context) (T, error) {
		var zero T
		for {
			v, err := in.Next(ctx)
			if err != nil {
				return v, err
			}
			keep, err := core.Try(func() bool { return predicate(v) })
			if err != nil {
				return zero, err
			}
			if keep {
				return v, nil
			}
			if err := ctx.Err(); err != nil {
				return zero, err
			}
		}
	}, in.Close)
}

// FirstOrDefault returns the first value matching the predicate, or the zero
// value of T if no job produces one. It does not advance past the match.
func FirstOrDefault[T any](ctx context.Context, in core.Stream[T], predicate func(T) bool) (T, error) {
	return core.FirstOrDefault(ctx, Where(predicate).Apply(in))
}
