package filter

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// EveryNth creates a Transformer that delivers the n-th, 2n-th, ... value to
// arrive. n <= 0 is treated as 1.
func EveryNth[T any](n int) core.Transformer[T, T] {
	if n <= 0 {
		n = 1
	}
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		var count atomic.Int64
		stage := core.Filter(func(T) bool {
			return count.Add(1)%int64(n) == 0
		}).Sequenced()
		if out, ok := core.Fuse(in, stage); ok {
			return out
		}

		var c int
		return where(in, func(T) bool {
			c++
			return c%n == 0
		})
	})
}

// TakeEvery is an alias for EveryNth with a more descriptive name.
func TakeEvery[T any](n int) core.Transformer[T, T] {
	return EveryNth[T](n)
}

// DistinctUntilChanged creates a Transformer that drops a value equal to the
// one that arrived just before it.
func DistinctUntilChanged[T comparable]() core.Transformer[T, T] {
	return DistinctUntilChangedBy(func(v T) T { return v })
}

// DistinctUntilChangedBy creates a Transformer that drops a value whose key
// equals the key of the value that arrived just before it.
func DistinctUntilChangedBy[T any, K comparable](keyFn func(T) K) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		changed := changeDetector[T](keyFn)
		if out, ok := core.Fuse(in, core.Filter(changed).Sequenced()); ok {
			return out
		}
		return where(in, changed)
	})
}

// changeDetector reports whether a value's key differs from the previous
// one. The key is computed before any state is updated. Callers serialize
// calls: the fused stage holds the arrival lock, the generic path runs on
// the consumer.
func changeDetector[T any, K comparable](keyFn func(T) K) func(T) bool {
	var last K
	var seen bool
	return func(v T) bool {
		key := keyFn(v)
		if seen && key == last {
			return false
		}
		seen, last = true, key
		return true
	}
}

// Last returns the last value to arrive, or core.ErrEmpty.
func Last[T any](ctx context.Context, in core.Stream[T]) (T, error) {
	defer in.Close()

	var last T
	var found bool
	for {
		v, err := in.Next(ctx)
		if errors.Is(err, core.ErrEndOfStream) {
			if !found {
				return last, core.ErrEmpty
			}
			return last, nil
		}
		if err != nil {
			return last, err
		}
		last, found = v, true
	}
}
