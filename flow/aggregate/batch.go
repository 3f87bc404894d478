package aggregate

import (
	"context"
	"errors"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// AggregateConfig provides configuration for aggregate transformers.
type AggregateConfig struct {
	// BatchSize specifies the default batch size for batching operations.
	// A value of 0 or negative will use the function-level default.
	BatchSize int
}

// WithBatchSize returns a functional option that sets the batch size.
func WithBatchSize(size int) func(*AggregateConfig) {
	return func(c *AggregateConfig) {
		c.BatchSize = size
	}
}

// effectiveBatchSize returns the batch size to use, considering
// context config and the explicitly provided value.
// If size > 0, it takes precedence. Otherwise, config from context is used.
func effectiveBatchSize(ctx context.Context, size int) int {
	if size > 0 {
		return size
	}
	if cfg, ok := core.GetConfig[*AggregateConfig](ctx); ok && cfg.BatchSize > 0 {
		return cfg.BatchSize
	}
	return 0
}

// Batch creates a Transformer that collects arrivals into batches of the
// specified size. The final partial batch is delivered when the stream is
// exhausted. A failure flushes the pending batch first and is then delivered
// on its own.
//
// The size is resolved on the first Next: if size <= 0 and the context
// carries no *AggregateConfig with a valid size, Next panics.
func Batch[T any](size int) core.Transformer[T, []T] {
	return core.Operator[T, []T](func(in core.Stream[T]) core.Stream[[]T] {
		var (
			batchSize int
			batch     []T
			pending   error
			done      bool
		)
		flush := func() []T {
			out := batch
			batch = make([]T, 0, batchSize)
			return out
		}
		return core.Pull(func(ctx context.Context) ([]T, error) {
			if batchSize == 0 {
				batchSize = effectiveBatchSize(ctx, size)
				if batchSize <= 0 {
					panic("Batch size must be > 0")
				}
				batch = make([]T, 0, batchSize)
			}
			if pending != nil {
				err := pending
				pending = nil
				return nil, err
			}
			if done {
				return nil, core.ErrEndOfStream
			}
			for {
				v, err := in.Next(ctx)
				switch {
				case errors.Is(err, core.ErrEndOfStream):
					done = true
					if len(batch) > 0 {
						return flush(), nil
					}
					return nil, err
				case err != nil && ctx.Err() != nil:
					return nil, err
				case err != nil:
					if len(batch) > 0 {
						pending = err
						return flush(), nil
					}
					return nil, err
				}
				batch = append(batch, v)
				if len(batch) >= batchSize {
					return flush(), nil
				}
			}
		}, in.Close)
	})
}

// Chunk is an alias for Batch.
func Chunk[T any](size int) core.Transformer[T, []T] {
	return Batch[T](size)
}

// Window creates a Transformer that delivers sliding windows of size
// arrivals, advancing step arrivals between windows. A trailing window
// shorter than size is not delivered. Failures pass through without
// touching the window.
func Window[T any](size, step int) core.Transformer[T, []T] {
	if size <= 0 || step <= 0 {
		panic("Window size and step must be > 0")
	}
	return core.Operator[T, []T](func(in core.Stream[T]) core.Stream[[]T] {
		window := make([]T, 0, size)
		var skip int
		return core.Pull(func(ctx context.Context) ([]T, error) {
			for {
				v, err := in.Next(ctx)
				if err != nil {
					return nil, err
				}
				if skip > 0 {
					skip--
					continue
				}
				window = append(window, v)
				if len(window) < size {
					continue
				}
				out := make([]T, size)
				copy(out, window)
				if step >= size {
					window = window[:0]
					skip = step - size
				} else {
					window = append(window[:0], window[step:]...)
				}
				return out, nil
			}
		}, in.Close)
	})
}

// Partition splits the stream by predicate: values for which it holds go to
// the first slice, the rest to the second. Both keep arrival order.
func Partition[T any](ctx context.Context, in core.Stream[T], predicate func(T) bool) (matched, rest []T, err error) {
	parts, err := Fold(ctx, in, [2][]T{}, func(acc [2][]T, item T) [2][]T {
		if predicate(item) {
			acc[0] = append(acc[0], item)
		} else {
			acc[1] = append(acc[1], item)
		}
		return acc
	})
	return parts[0], parts[1], err
}

// GroupBy groups values by the key keyFn derives for them. Each group keeps
// arrival order.
func GroupBy[T any, K comparable](ctx context.Context, in core.Stream[T], keyFn func(T) K) (map[K][]T, error) {
	return Fold(ctx, in, make(map[K][]T), func(groups map[K][]T, item T) map[K][]T {
		key := keyFn(item)
		groups[key] = append(groups[key], item)
		return groups
	})
}
