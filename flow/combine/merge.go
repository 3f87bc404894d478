// Package combine joins several streams into one.
package combine

import (
	"context"
	"errors"
	"sync"

	"github.com/lguimbarda/min-fanin/flow/core"
	"golang.org/x/sync/errgroup"
)

// Merge combines streams into a single stream that yields values and
// failures in the order they arrive from any source. Each source is pulled
// by its own goroutine, started on the first Next; the merged stream ends
// once every source is exhausted. Closing it stops the goroutines and closes
// every source.
//
// Sources are pulled with the context of the first Next, stripped of its
// cancellation, so hooks attached to it still reach fan-in sources.
func Merge[T any](streams ...core.Stream[T]) core.Stream[T] {
	m := &merged[T]{streams: streams, out: make(chan core.Result[T])}
	return core.Pull(m.next, m.close)
}

type merged[T any] struct {
	streams []core.Stream[T]
	out     chan core.Result[T]

	startOnce sync.Once
	cancel    context.CancelFunc
	eg        *errgroup.Group
}

func (m *merged[T]) start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	m.eg = &errgroup.Group{}
	for _, s := range m.streams {
		m.eg.Go(func() error {
			return pump(ctx, s, m.out)
		})
	}
	go func() {
		m.eg.Wait()
		close(m.out)
	}()
}

func pump[T any](ctx context.Context, s core.Stream[T], out chan<- core.Result[T]) error {
	for {
		v, err := s.Next(ctx)
		if errors.Is(err, core.ErrEndOfStream) || ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case out <- core.NewResult(v, err):
		}
	}
}

func (m *merged[T]) next(ctx context.Context) (T, error) {
	m.startOnce.Do(func() { m.start(ctx) })
	if m.eg == nil {
		var zero T
		return zero, core.ErrEndOfStream
	}
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r, ok := <-m.out:
		if !ok {
			var zero T
			return zero, core.ErrEndOfStream
		}
		return r.Unwrap()
	}
}

func (m *merged[T]) close() error {
	m.startOnce.Do(func() {})
	if m.cancel != nil {
		m.cancel()
		m.eg.Wait()
	}
	var errs []error
	for _, s := range m.streams {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Concat yields every value of each stream in turn. A stream is closed as
// soon as it is exhausted.
func Concat[T any](streams ...core.Stream[T]) core.Stream[T] {
	pos := 0
	return core.Pull(func(ctx context.Context) (T, error) {
		for pos < len(streams) {
			v, err := streams[pos].Next(ctx)
			if errors.Is(err, core.ErrEndOfStream) {
				streams[pos].Close()
				pos++
				continue
			}
			return v, err
		}
		var zero T
		return zero, core.ErrEndOfStream
	}, func() error {
		var errs []error
		for _, s := range streams[min(pos, len(streams)):] {
			errs = append(errs, s.Close())
		}
		return errors.Join(errs...)
	})
}

// Pair holds one value from each side of a Zip.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Zip pairs the n-th arrival of a with the n-th arrival of b. It ends when
// either stream is exhausted.
func Zip[A, B any](a core.Stream[A], b core.Stream[B]) core.Stream[Pair[A, B]] {
	return ZipWith(a, b, func(x A, y B) Pair[A, B] {
		return Pair[A, B]{First: x, Second: y}
	})
}

// ZipWith is Zip with a custom combiner. A failure on either side is
// returned in place of the pair and consumes only the side that failed.
func ZipWith[A, B, C any](a core.Stream[A], b core.Stream[B], combine func(A, B) C) core.Stream[C] {
	var (
		pending A
		hasA    bool
	)
	return core.Pull(func(ctx context.Context) (C, error) {
		var zero C
		if !hasA {
			v, err := a.Next(ctx)
			if err != nil {
				return zero, err
			}
			pending, hasA = v, true
		}
		w, err := b.Next(ctx)
		if err != nil {
			return zero, err
		}
		hasA = false
		return core.Try(func() C { return combine(pending, w) })
	}, func() error {
		return errors.Join(a.Close(), b.Close())
	})
}
