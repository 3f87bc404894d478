// Package transform provides operators that change the values of a stream.
package transform

import (
	"context"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// Select creates a Transformer that maps every value with fn. On a fan-in
// stream fn runs on the goroutine that completes each job, as soon as it
// completes, so an expensive mapping does not wait behind an unrelated job.
// Order-dependent operators (Take, Skip, TakeWhile, SkipWhile, Fallback)
// run every stage after them one arrival at a time, so place an expensive
// Select before them. Jobs that finished before the stream started are
// mapped in turn when it starts.
func Select[IN, OUT any](fn func(IN) OUT) core.Transformer[IN, OUT] {
	return core.Operator[IN, OUT](func(in core.Stream[IN]) core.Stream[OUT] {
		if out, ok := core.Fuse(in, core.Transform(fn)); ok {
			return out
		}
		return selectEach(in, func(v IN) (OUT, error) {
			return core.Try(func() OUT { return fn(v) })
		})
	})
}

// TrySelect is Select for mappers that can fail. A mapper error is returned
// by the Next call that would have delivered the value.
func TrySelect[IN, OUT any](fn func(IN) (OUT, error)) core.Transformer[IN, OUT] {
	return core.Operator[IN, OUT](func(in core.Stream[IN]) core.Stream[OUT] {
		if out, ok := core.Fuse(in, core.TryTransform(fn)); ok {
			return out
		}
		return selectEach(in, func(v IN) (OUT, error) {
			var err error
			out, perr := core.Try(func() OUT {
				var out OUT
				out, err = fn(v)
				return out
			})
			if perr != nil {
				return out, perr
			}
			return out, err
		})
	})
}

func selectEach[IN, OUT any](in core.Stream[IN], fn func(IN) (OUT, error)) core.Stream[OUT] {
	return core.Pull(func(ctx context.Context) (OUT, error) {
		v, err := in.Next(ctx)
		if err != nil {
			var zero OUT
			return zero, err
		}
		return fn(v)
	}, in.Close)
}
