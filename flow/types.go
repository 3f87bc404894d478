// Package flow fans asynchronous jobs into a single completion-ordered
// stream and composes lazy operators over it.
//
// This package is the primary user-facing API. Most users should only
// need to import this package and the operator packages (filter,
// transform, aggregate). The flow/core subpackage contains the engine and
// stage machinery, which are rarely needed directly.
package flow

import (
	"context"
	"iter"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// Type aliases for core stream abstractions.
// These allow users to work with the framework without importing core directly.
type (
	// Stream is a forward-only cursor over values.
	Stream[T any] = core.Stream[T]

	// Transformer transforms a Stream of type IN into a Stream of type OUT.
	Transformer[IN, OUT any] = core.Transformer[IN, OUT]

	// Operator is a function implementation of Transformer.
	Operator[IN, OUT any] = core.Operator[IN, OUT]

	// Result pairs a value with the failure that replaced it, if any.
	Result[T any] = core.Result[T]

	// Job is an asynchronous computation that reports its outcome once.
	Job[T any] = core.Job[T]

	// FanIn is the completion-ordered stream over a set of jobs.
	FanIn[T any] = core.FanIn[T]

	// Hooks observe a fan-in stream's lifecycle.
	Hooks[T any] = core.Hooks[T]

	// Sink is a terminal that can be bound to a stream and run later.
	Sink[T, R any] = core.Sink[T, R]
)

var (
	// ErrEndOfStream is returned by Next once a stream is exhausted.
	ErrEndOfStream = core.ErrEndOfStream

	// ErrEmpty is returned by First when the stream yields nothing.
	ErrEmpty = core.ErrEmpty
)

// Result constructors - wrappers around core functions.

// Ok creates a successful Result containing the given value.
func Ok[T any](value T) Result[T] {
	return core.Ok(value)
}

// Err creates a failed Result.
func Err[T any](err error) Result[T] {
	return core.Err[T](err)
}

// Terminal operations.

// Slice collects all stream values into a slice. It stops at the first failure.
func Slice[T any](ctx context.Context, in Stream[T]) ([]T, error) {
	return core.Slice(ctx, in)
}

// First returns the first value from the stream, or ErrEmpty.
func First[T any](ctx context.Context, in Stream[T]) (T, error) {
	return core.First(ctx, in)
}

// FirstOrDefault returns the first value from the stream, or the zero value
// if there is none.
func FirstOrDefault[T any](ctx context.Context, in Stream[T]) (T, error) {
	return core.FirstOrDefault(ctx, in)
}

// Run executes the stream for side effects only.
func Run[T any](ctx context.Context, in Stream[T]) error {
	return core.Run(ctx, in)
}

// Collect gathers all Results (including failures) into a slice.
func Collect[T any](ctx context.Context, stream Stream[T]) []Result[T] {
	return core.Collect(ctx, stream)
}

// Sink constructors.

// ToSlice returns a Sink that collects values like Slice.
func ToSlice[T any]() Sink[T, []T] {
	return core.ToSlice[T]()
}

// ToFirst returns a Sink that yields the first value like First.
func ToFirst[T any]() Sink[T, T] {
	return core.ToFirst[T]()
}

// ToRun returns a Sink that drains the stream like Run.
func ToRun[T any]() Sink[T, struct{}] {
	return core.ToRun[T]()
}

// All returns an iterator over the stream's values and failures.
func All[T any](ctx context.Context, stream Stream[T]) iter.Seq2[T, error] {
	return core.All(ctx, stream)
}

// WithHooks attaches lifecycle hooks for streams of type T to the context.
func WithHooks[T any](ctx context.Context, hooks Hooks[T]) context.Context {
	return core.WithHooks(ctx, hooks)
}
