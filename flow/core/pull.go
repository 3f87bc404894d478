package core

import (
	"context"
	"iter"
	"sync"
)

// Pull adapts a next function into a Stream. It is the building block of
// every generic operator: the returned stream is never Fusable. close may
// be nil.
func Pull[T any](next func(context.Context) (T, error), close func() error) Stream[T] {
	return &pull[T]{next: next, close: close}
}

type pull[T any] struct {
	next      func(context.Context) (T, error)
	close     func() error
	closeOnce sync.Once
	closeErr  error
}

func (p *pull[T]) Next(ctx context.Context) (T, error) {
	return p.next(ctx)
}

func (p *pull[T]) Close() error {
	p.closeOnce.Do(func() {
		if p.close != nil {
			p.closeErr = p.close()
		}
	})
	return p.closeErr
}

// Opaque hides any fusion capability of s, forcing operators applied to the
// result onto the generic path.
func Opaque[T any](s Stream[T]) Stream[T] {
	return Pull(s.Next, s.Close)
}

// Exhausted returns a stream that reports ErrEndOfStream without ever
// advancing upstream. Closing it closes upstream.
func Exhausted[T, U any](upstream Stream[U]) Stream[T] {
	return Pull(func(context.Context) (T, error) {
		var zero T
		return zero, ErrEndOfStream
	}, upstream.Close)
}

// Empty returns a stream with no values.
func Empty[T any]() Stream[T] {
	return Pull(func(context.Context) (T, error) {
		var zero T
		return zero, ErrEndOfStream
	}, nil)
}

// FromSlice creates a stream over the items of a slice, in slice order.
func FromSlice[T any](items []T) Stream[T] {
	var idx int
	return Pull(func(ctx context.Context) (T, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if idx >= len(items) {
			return zero, ErrEndOfStream
		}
		v := items[idx]
		idx++
		return v, nil
	}, nil)
}

// FromChannel creates a stream that receives from ch until it is closed.
func FromChannel[T any](ch <-chan T) Stream[T] {
	return Pull(func(ctx context.Context) (T, error) {
		var zero T
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case v, ok := <-ch:
			if !ok {
				return zero, ErrEndOfStream
			}
			return v, nil
		}
	}, nil)
}

// FromIter creates a stream from an iterator. Closing the stream stops the
// iterator.
func FromIter[T any](seq iter.Seq[T]) Stream[T] {
	next, stop := iter.Pull(seq)
	return Pull(func(ctx context.Context) (T, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, ok := next()
		if !ok {
			return zero, ErrEndOfStream
		}
		return v, nil
	}, func() error {
		stop()
		return nil
	})
}
