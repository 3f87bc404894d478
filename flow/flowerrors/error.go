// Package flowerrors provides operators that act on failed job results.
// Like the filter operators they are fused into fan-in continuations when
// possible; in that case their callbacks run on the goroutines that complete
// the jobs and may run concurrently with each other.
package flowerrors

import (
	"context"
	"errors"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// OnError creates a Transformer that calls handler for every failure. The
// failure still reaches the consumer.
func OnError[T any](handler func(error)) core.Transformer[T, T] {
	return rewrite(func(err error) (T, bool, error) {
		handler(err)
		var zero T
		return zero, true, err
	})
}

// CatchError creates a Transformer that hands failures matching predicate to
// handler. A value returned by handler replaces the failure; an error
// returned by handler replaces the original one. Non-matching failures pass
// through unchanged.
func CatchError[T any](predicate func(error) bool, handler func(error) (T, error)) core.Transformer[T, T] {
	return rewrite(func(err error) (T, bool, error) {
		if !predicate(err) {
			var zero T
			return zero, true, err
		}
		v, err := handler(err)
		return v, true, err
	})
}

// FilterErrors creates a Transformer that silently drops failures matching
// predicate. A dropped failure still counts as a completed job.
func FilterErrors[T any](predicate func(error) bool) core.Transformer[T, T] {
	return rewrite(func(err error) (T, bool, error) {
		var zero T
		return zero, !predicate(err), err
	})
}

// IgnoreErrors creates a Transformer that drops every failure.
func IgnoreErrors[T any]() core.Transformer[T, T] {
	return FilterErrors[T](func(error) bool { return true })
}

// MapErrors creates a Transformer that replaces each failure with mapper's result.
func MapErrors[T any](mapper func(error) error) core.Transformer[T, T] {
	return rewrite(func(err error) (T, bool, error) {
		var zero T
		return zero, true, mapper(err)
	})
}

// rewrite builds a failure operator from fn, which receives a failure and
// returns the replacement value, whether to deliver it, and the replacement
// error.
func rewrite[T any](fn func(error) (T, bool, error)) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		stage := core.NewStage(func(rec core.Record[T]) core.Record[T] {
			if rec.Err == nil {
				return rec
			}
			v, emit, err := fn(rec.Err)
			if !emit {
				return core.Record[T]{Stop: rec.Stop}
			}
			return core.Record[T]{Emit: true, Stop: rec.Stop, Value: v, Err: err}
		})
		if out, ok := core.Fuse(in, stage); ok {
			return out
		}
		return generic(in, fn)
	})
}

func generic[T any](in core.Stream[T], fn func(error) (T, bool, error)) core.Stream[T] {
	return core.Pull(func(ctx context.Context) (T, error) {
		var zero T
		for {
			v, err := in.Next(ctx)
			if err == nil || isControl(ctx, err) {
				return v, err
			}

			var emit bool
			_, perr := core.Try(func() struct{} {
				v, emit, err = fn(err)
				return struct{}{}
			})
			if perr != nil {
				return zero, perr
			}
			if emit {
				return v, err
			}
		}
	}, in.Close)
}

// isControl reports errors that end or interrupt iteration rather than
// describe a failed job.
func isControl(ctx context.Context, err error) bool {
	return errors.Is(err, core.ErrEndOfStream) || (ctx.Err() != nil && errors.Is(err, ctx.Err()))
}
