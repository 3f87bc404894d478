package transform

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// Indexed pairs a value with its 0-based arrival index.
type Indexed[T any] struct {
	Index int
	Value T
}

// WithIndex creates a Transformer that wraps each value with the position
// it arrived at. Failures do not take an index.
func WithIndex[T any]() core.Transformer[T, Indexed[T]] {
	return core.Operator[T, Indexed[T]](func(in core.Stream[T]) core.Stream[Indexed[T]] {
		var next atomic.Int64
		stage := core.Transform(func(v T) Indexed[T] {
			return Indexed[T]{Index: int(next.Add(1) - 1), Value: v}
		}).Sequenced()
		if out, ok := core.Fuse(in, stage); ok {
			return out
		}

		var index int
		return selectEach(in, func(v T) (Indexed[T], error) {
			indexed := Indexed[T]{Index: index, Value: v}
			index++
			return indexed, nil
		})
	})
}

// Distinct creates a Transformer that only delivers values that have not
// arrived before. Seen values are kept for the lifetime of the stream.
func Distinct[T comparable]() core.Transformer[T, T] {
	return DistinctBy(func(v T) T { return v })
}

// DistinctBy creates a Transformer that only delivers values whose key
// (derived by keyFn) has not been seen before.
func DistinctBy[T any, K comparable](keyFn func(T) K) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		// Guarded by the arrival lock on the fused path; the generic path
		// only runs on the consumer.
		seen := make(map[K]struct{})
		firstSeen := func(v T) bool {
			key := keyFn(v)
			if _, exists := seen[key]; exists {
				return false
			}
			seen[key] = struct{}{}
			return true
		}

		if out, ok := core.Fuse(in, core.Filter(firstSeen).Sequenced()); ok {
			return out
		}
		return core.Pull(func(ctx context.Context) (T, error) {
			var zero T
			for {
				v, err := in.Next(ctx)
				if err != nil {
					return v, err
				}
				keep, err := core.Try(func() bool { return firstSeen(v) })
				if err != nil {
					return zero, err
				}
				if keep {
					return v, nil
				}
			}
		}, in.Close)
	})
}

// DefaultIfEmpty creates a Transformer that delivers defaultValue if the
// stream ends without delivering anything else. A failure counts as
// delivery.
func DefaultIfEmpty[T any](defaultValue T) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		var delivered, defaulted bool
		return core.Pull(func(ctx context.Context) (T, error) {
			v, err := in.Next(ctx)
			if errors.Is(err, core.ErrEndOfStream) && !delivered && !defaulted {
				defaulted = true
				return defaultValue, nil
			}
			if err == nil || (!errors.Is(err, core.ErrEndOfStream) && ctx.Err() == nil) {
				delivered = true
			}
			return v, err
		}, in.Close)
	})
}

// Pairwise creates a Transformer that delivers consecutive arrivals as
// pairs: the first value only seeds the first pair.
func Pairwise[T any]() core.Transformer[T, [2]T] {
	return core.Operator[T, [2]T](func(in core.Stream[T]) core.Stream[[2]T] {
		var prev T
		var hasPrev bool
		return core.Pull(func(ctx context.Context) ([2]T, error) {
			for {
				v, err := in.Next(ctx)
				if err != nil {
					return [2]T{}, err
				}
				if hasPrev {
					pair := [2]T{prev, v}
					prev = v
					return pair, nil
				}
				prev, hasPrev = v, true
			}
		}, in.Close)
	})
}

// StartWith creates a Transformer that delivers the given values before the
// stream's own.
func StartWith[T any](values ...T) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		var i int
		return core.Pull(func(ctx context.Context) (T, error) {
			if i < len(values) {
				i++
				return values[i-1], nil
			}
			return in.Next(ctx)
		}, in.Close)
	})
}

// EndWith creates a Transformer that delivers the given values once the
// stream is exhausted.
func EndWith[T any](values ...T) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		var i int
		var drained bool
		return core.Pull(func(ctx context.Context) (T, error) {
			if !drained {
				v, err := in.Next(ctx)
				if !errors.Is(err, core.ErrEndOfStream) {
					return v, err
				}
				drained = true
			}
			if i < len(values) {
				i++
				return values[i-1], nil
			}
			var zero T
			return zero, core.ErrEndOfStream
		}, in.Close)
	})
}
