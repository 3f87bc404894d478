package flow

import (
	"context"
	"iter"

	"github.com/lguimbarda/min-fanin/flow/core"
	"github.com/lguimbarda/min-fanin/flow/job"
)

// WhenDone fans the given jobs into a stream that yields their outcomes in
// the order they complete. Callbacks are registered right away; jobs that
// finish before the stream is first advanced keep their completion order.
func WhenDone[T any](jobs ...Job[T]) *FanIn[T] {
	return core.WhenDone(jobs...)
}

// FromJobs is WhenDone over a slice.
func FromJobs[T any](jobs []Job[T]) *FanIn[T] {
	return core.FromJobs(jobs)
}

// FromFutures fans in job futures.
func FromFutures[T any](futures ...*job.Future[T]) *FanIn[T] {
	return core.FromJobs(job.Jobs(futures...))
}

// Go starts each function on its own goroutine and fans in their results.
// A panic in a function is reported as that job's core.ErrPanic failure.
func Go[T any](ctx context.Context, fns ...func(context.Context) (T, error)) *FanIn[T] {
	jobs := make([]Job[T], len(fns))
	for i, fn := range fns {
		jobs[i] = job.Go(ctx, fn)
	}
	return core.FromJobs(jobs)
}

// GoEach starts fn once per item, at most limit at a time (no limit when
// limit <= 0), and fans in the results. GoEach blocks while the limit is
// reached, so with a limit it returns once the last item has been started.
func GoEach[A, T any](ctx context.Context, items []A, limit int, fn func(context.Context, A) (T, error)) *FanIn[T] {
	g := job.NewGroup[T](ctx, job.WithLimit(limit))
	for _, item := range items {
		g.Go(func(ctx context.Context) (T, error) {
			return fn(ctx, item)
		})
	}
	return g.Stream()
}

// FromSlice creates a Stream that yields each element of the slice in order.
func FromSlice[T any](items []T) Stream[T] {
	return core.FromSlice(items)
}

// FromChannel creates a Stream that yields values received from the channel.
// The stream completes when the channel is closed.
// The caller is responsible for closing the channel.
func FromChannel[T any](ch <-chan T) Stream[T] {
	return core.FromChannel(ch)
}

// FromIter creates a Stream from an iterator sequence.
// The stream completes when the iterator is exhausted.
func FromIter[T any](seq iter.Seq[T]) Stream[T] {
	return core.FromIter(seq)
}

// Empty creates a Stream that yields no values.
func Empty[T any]() Stream[T] {
	return core.Empty[T]()
}

// Once creates a Stream that yields a single value.
func Once[T any](value T) Stream[T] {
	return core.FromSlice([]T{value})
}

// Range creates a Stream that yields integers from start (inclusive) to end (exclusive).
// If start >= end, the stream is empty.
func Range(start, end int) Stream[int] {
	return core.FromIter(func(yield func(int) bool) {
		for i := start; i < end; i++ {
			if !yield(i) {
				return
			}
		}
	})
}

// Repeat creates a Stream that yields the same value n times.
// If n is negative, the stream repeats until the consumer stops.
func Repeat[T any](value T, n int) Stream[T] {
	var count int
	return core.Pull(func(ctx context.Context) (T, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if n >= 0 && count >= n {
			return zero, ErrEndOfStream
		}
		count++
		return value, nil
	}, nil)
}

// Generate creates a Stream that lazily produces values with fn.
// fn returns the next value and true to continue, or false to finish.
// An error from fn is yielded as a failure and the stream continues.
func Generate[T any](fn func() (T, bool, error)) Stream[T] {
	return core.Pull(func(ctx context.Context) (T, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, ok, err := fn()
		if err != nil {
			return zero, err
		}
		if !ok {
			return zero, ErrEndOfStream
		}
		return v, nil
	}, nil)
}

// FromError creates a Stream that yields a single failure.
func FromError[T any](err error) Stream[T] {
	var done bool
	return core.Pull(func(context.Context) (T, error) {
		var zero T
		if done {
			return zero, ErrEndOfStream
		}
		done = true
		return zero, err
	}, nil)
}
