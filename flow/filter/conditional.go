package filter

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// TakeWhileWithIndex creates a Transformer that passes values through while
// the predicate, which also receives the value's arrival index, holds. The
// first value that fails it ends the stream and is not delivered.
func TakeWhileWithIndex[T any](predicate func(T, int) bool) core.Transformer[T, T] {
	if predicate == nil {
		panic("TakeWhileWithIndex: predicate cannot be nil")
	}
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		var index atomic.Int64
		stage := core.StopUnless(func(v T) bool {
			if !predicate(v, int(index.Load())) {
				return false
			}
			index.Add(1)
			return true
		}).Sequenced()
		if out, ok := core.Fuse(in, stage); ok {
			return out
		}

		var i int
		return takeWhile(in, func(v T) bool {
			if !predicate(v, i) {
				return false
			}
			i++
			return true
		})
	})
}

// SkipWhileWithIndex creates a Transformer that drops values while the
// predicate, which also receives the value's arrival index, holds. Once it
// fails, every later value is delivered.
func SkipWhileWithIndex[T any](predicate func(T, int) bool) core.Transformer[T, T] {
	if predicate == nil {
		panic("SkipWhileWithIndex: predicate cannot be nil")
	}
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		var index atomic.Int64
		var skipping atomic.Bool
		skipping.Store(true)
		stage := core.Filter(func(v T) bool {
			if !skipping.Load() {
				return true
			}
			if predicate(v, int(index.Load())) {
				index.Add(1)
				return false
			}
			skipping.Store(false)
			return true
		}).Sequenced()
		if out, ok := core.Fuse(in, stage); ok {
			return out
		}

		var i int
		return skipWhile(in, func(v T) bool {
			if !predicate(v, i) {
				return false
			}
			i++
			return true
		})
	})
}

// ElementAt creates a Transformer that delivers only the value that arrives
// at the given position and then ends the stream. If fewer values arrive,
// nothing is delivered.
func ElementAt[T any](index int) core.Transformer[T, T] {
	if index < 0 {
		panic("ElementAt: index cannot be negative")
	}
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		var seen atomic.Int64
		stage := core.NewStage(func(rec core.Record[T]) core.Record[T] {
			if !rec.Emit || rec.Err != nil {
				return rec
			}
			i := seen.Add(1) - 1
			rec.Emit = i == int64(index)
			rec.Stop = rec.Stop || i >= int64(index)
			return rec
		}).Sequenced()
		if out, ok := core.Fuse(in, stage); ok {
			return out
		}
		return take(skip(in, index), 1)
	})
}

// ElementAtOrDefault returns the value that arrives at the given position,
// or defaultValue if the stream ends first.
func ElementAtOrDefault[T any](ctx context.Context, in core.Stream[T], index int, defaultValue T) (T, error) {
	out := ElementAt[T](index).Apply(in)
	defer out.Close()

	v, err := out.Next(ctx)
	if errors.Is(err, core.ErrEndOfStream) {
		return defaultValue, nil
	}
	return v, err
}
