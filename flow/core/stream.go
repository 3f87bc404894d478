// package core defines the core abstractions for completion-ordered stream
// processing: jobs, tagged records, the fan-in engine that merges job
// completions into a single cursor, and the stage machinery that lets
// operators rewrite per-job continuations instead of wrapping the cursor.
//
// NOTE: this package should have no dependencies outside the standard
// library, including other flow packages.
package core

import (
	"context"
	"errors"
	"iter"
)

// Stream is a forward-only cursor over values. Each call to Next blocks until
// a value is ready, the stream is exhausted (ErrEndOfStream) or the context
// is done. A stream has exactly one logical consumer; Next must not be called
// concurrently.
// Stream answers the question: "What will the consumer see next?".
type Stream[T any] interface {
	Next(context.Context) (T, error)
	Close() error
}

// Transformer turns a Stream of type IN into a Stream of type OUT.
// Transformers can be composed to build pipelines.
// They answer the question: "What operations are being applied to the stream's data?".
type Transformer[IN, OUT any] interface {
	Apply(Stream[IN]) Stream[OUT]
}

// Operator is a function implementation of Transformer.
type Operator[IN, OUT any] func(Stream[IN]) Stream[OUT]

func (o Operator[IN, OUT]) Apply(in Stream[IN]) Stream[OUT] {
	return o(in)
}

// All returns an iterator over the stream's values and failures. Iteration
// ends when the stream is exhausted, the consumer stops, or the context is
// done (the context error is yielded last). The stream is closed afterwards.
func All[T any](ctx context.Context, s Stream[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer s.Close()
		for {
			v, err := s.Next(ctx)
			if errors.Is(err, ErrEndOfStream) {
				return
			}
			if !yield(v, err) {
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// Collect gathers every Result, failures included, until the stream is
// exhausted or the context is done.
func Collect[T any](ctx context.Context, s Stream[T]) []Result[T] {
	var results []Result[T]
	for v, err := range All(ctx, s) {
		results = append(results, NewResult(v, err))
	}
	return results
}
