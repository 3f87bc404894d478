package core

import (
	"context"
	"errors"
)

// Terminal functions consume a stream and produce a single result. Each of
// them closes the stream before returning and stops at the first failure.

// Slice advances the stream to exhaustion and collects every value in the
// order the stream yields them.
func Slice[T any](ctx context.Context, in Stream[T]) ([]T, error) {
	defer in.Close()

	var result []T
	for {
		v, err := in.Next(ctx)
		if errors.Is(err, ErrEndOfStream) {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
}

// First returns the first value of the stream, or ErrEmpty.
func First[T any](ctx context.Context, in Stream[T]) (T, error) {
	defer in.Close()

	v, err := in.Next(ctx)
	if errors.Is(err, ErrEndOfStream) {
		return v, ErrEmpty
	}
	return v, err
}

// FirstOrDefault advances the stream once and returns the value, or the
// zero value of T when the stream is already exhausted. It never advances
// past the first value.
func FirstOrDefault[T any](ctx context.Context, in Stream[T]) (T, error) {
	defer in.Close()

	v, err := in.Next(ctx)
	if errors.Is(err, ErrEndOfStream) {
		var zero T
		return zero, nil
	}
	return v, err
}

// Run advances the stream to exhaustion for its side effects.
func Run[T any](ctx context.Context, in Stream[T]) error {
	defer in.Close()

	for {
		_, err := in.Next(ctx)
		if errors.Is(err, ErrEndOfStream) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Sink is a terminal packaged as a value, so it can be passed around and
// applied later. Fold-style functions in the aggregate package convert to a
// Sink with a closure.
type Sink[T, R any] func(ctx context.Context, in Stream[T]) (R, error)

// From runs the sink on in.
func (s Sink[T, R]) From(ctx context.Context, in Stream[T]) (R, error) {
	return s(ctx, in)
}

// Defer binds the sink to in without advancing it. in is not started, so
// none of its stages run, until the returned function is called.
func (s Sink[T, R]) Defer(in Stream[T]) func(context.Context) (R, error) {
	return func(ctx context.Context) (R, error) {
		return s(ctx, in)
	}
}

// Apply makes a Sink usable as a Transformer: the returned stream runs the
// sink on its first Next and yields its result, or its failure, once.
func (s Sink[T, R]) Apply(in Stream[T]) Stream[R] {
	var done bool
	return Pull(func(ctx context.Context) (R, error) {
		if done {
			var zero R
			return zero, ErrEndOfStream
		}
		done = true
		return s(ctx, in)
	}, in.Close)
}

// ToSlice returns Slice as a Sink.
func ToSlice[T any]() Sink[T, []T] {
	return Slice[T]
}

// ToFirst returns First as a Sink.
func ToFirst[T any]() Sink[T, T] {
	return First[T]
}

// ToRun returns Run as a Sink whose result is always the empty struct.
func ToRun[T any]() Sink[T, struct{}] {
	return func(ctx context.Context, in Stream[T]) (struct{}, error) {
		return struct{}{}, Run(ctx, in)
	}
}
