// Package aggregate provides terminal operations that fold a stream into a
// single value. Each of them advances the stream to exhaustion, closes it,
// and stops at the first failure.
package aggregate

import (
	"context"
	"errors"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// Numeric is a constraint for types that support addition.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Fold threads an accumulator through every value, starting from seed, in
// the order the values arrive.
func Fold[T, R any](ctx context.Context, in core.Stream[T], seed R, folder func(acc R, item T) R) (R, error) {
	return FoldMap(ctx, in, seed, folder, func(acc R) R { return acc })
}

// FoldMap is Fold followed by a projection of the final accumulator.
func FoldMap[T, R, P any](ctx context.Context, in core.Stream[T], seed R, folder func(acc R, item T) R, project func(R) P) (P, error) {
	defer in.Close()

	var zero P
	acc := seed
	for {
		v, err := in.Next(ctx)
		if errors.Is(err, core.ErrEndOfStream) {
			return core.Try(func() P { return project(acc) })
		}
		if err != nil {
			return zero, err
		}
		next, err := core.Try(func() R { return folder(acc, v) })
		if err != nil {
			return zero, err
		}
		acc = next
	}
}

// Reduce folds the stream using its first value as the seed. It returns
// core.ErrEmpty if the stream yields nothing.
func Reduce[T any](ctx context.Context, in core.Stream[T], reducer func(acc, item T) T) (T, error) {
	type state struct {
		acc    T
		hasAcc bool
	}
	s, err := Fold(ctx, in, state{}, func(s state, item T) state {
		if !s.hasAcc {
			return state{acc: item, hasAcc: true}
		}
		return state{acc: reducer(s.acc, item), hasAcc: true}
	})
	if err != nil {
		return s.acc, err
	}
	if !s.hasAcc {
		return s.acc, core.ErrEmpty
	}
	return s.acc, nil
}

// Count returns the number of values the stream yields.
func Count[T any](ctx context.Context, in core.Stream[T]) (int, error) {
	return Fold(ctx, in, 0, func(n int, _ T) int { return n + 1 })
}

// Sum adds up every value.
func Sum[T Numeric](ctx context.Context, in core.Stream[T]) (T, error) {
	var zero T
	return Fold(ctx, in, zero, func(acc, item T) T { return acc + item })
}
