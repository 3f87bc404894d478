package timing

import (
	"context"
	"time"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// Timestamped wraps a value with the time it arrived.
type Timestamped[T any] struct {
	Value     T
	Timestamp time.Time
}

// Stamped creates a Transformer that wraps each value with its arrival time.
// On a fan-in stream that is the moment the job completed, not the moment
// the consumer dequeued it.
func Stamped[T any]() core.Transformer[T, Timestamped[T]] {
	return core.Operator[T, Timestamped[T]](func(in core.Stream[T]) core.Stream[Timestamped[T]] {
		stamp := func(v T) Timestamped[T] {
			return Timestamped[T]{Value: v, Timestamp: time.Now()}
		}
		if out, ok := core.Fuse(in, core.Transform(stamp)); ok {
			return out
		}
		return core.Pull(func(ctx context.Context) (Timestamped[T], error) {
			v, err := in.Next(ctx)
			if err != nil {
				return Timestamped[T]{}, err
			}
			return stamp(v), nil
		}, in.Close)
	})
}

// TimeInterval pairs a value with the time since the previous arrival.
type TimeInterval[T any] struct {
	Value    T
	Interval time.Duration
}

// Elapsed creates a Transformer that wraps each value with the time since
// the previous value arrived. The first interval is measured from when the
// operator was applied.
func Elapsed[T any]() core.Transformer[T, TimeInterval[T]] {
	return core.Operator[T, TimeInterval[T]](func(in core.Stream[T]) core.Stream[TimeInterval[T]] {
		last := time.Now()
		measure := func(v T) TimeInterval[T] {
			now := time.Now()
			interval := now.Sub(last)
			last = now
			return TimeInterval[T]{Value: v, Interval: interval}
		}
		if out, ok := core.Fuse(in, core.Transform(measure).Sequenced()); ok {
			return out
		}
		return core.Pull(func(ctx context.Context) (TimeInterval[T], error) {
			v, err := in.Next(ctx)
			if err != nil {
				return TimeInterval[T]{}, err
			}
			return measure(v), nil
		}, in.Close)
	})
}
