// Package job provides a small asynchronous job runtime whose handles
// satisfy core.Job: futures resolved by a goroutine, a timer, a channel or
// by hand, and an errgroup-backed Group that bounds how many run at once.
package job

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// ErrNoValue is the failure of a FromChan job whose channel closed empty.
var ErrNoValue = errors.New("job: channel closed without a value")

// completions stamps futures in the order they resolve.
var completions atomic.Uint64

// Future is a job whose outcome is set exactly once. Callbacks registered
// before completion run on the goroutine that resolves the future;
// callbacks registered afterwards run on a new goroutine. A resolved future
// reports its outcome and completion stamp through Settled, so a fan-in
// built over futures that have already finished keeps their finishing order.
type Future[T any] struct {
	mu        sync.Mutex
	resolved  bool
	seq       uint64
	value     T
	err       error
	callbacks []func(T, error)
	done      chan struct{}
}

// NewFuture returns an unresolved future and the function that resolves it.
// Only the first call to resolve has any effect.
func NewFuture[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.resolve
}

func (f *Future[T]) resolve(v T, err error) {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return
	}
	f.resolved = true
	f.seq = completions.Add(1)
	f.value, f.err = v, err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(v, err)
	}
}

// OnComplete implements core.Job.
func (f *Future[T]) OnComplete(callback func(T, error)) {
	f.mu.Lock()
	if !f.resolved {
		f.callbacks = append(f.callbacks, callback)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	go callback(v, err)
}

// Settled implements core.Settled.
func (f *Future[T]) Settled() (core.Outcome[T], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.resolved {
		return core.Outcome[T]{}, false
	}
	return core.Outcome[T]{Seq: f.seq, Value: f.value, Err: f.err}, true
}

// Done returns a channel closed when the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-f.done:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Go runs fn on a new goroutine and resolves the future with its outcome.
// A panic in fn resolves the future with a core.ErrPanic.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f, resolve := NewFuture[T]()
	go func() {
		resolve(call(ctx, fn))
	}()
	return f
}

func call[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = core.NewPanicError(r)
		}
	}()
	return fn(ctx)
}

// Value returns an already resolved future.
func Value[T any](v T) *Future[T] {
	f, resolve := NewFuture[T]()
	resolve(v, nil)
	return f
}

// Failed returns a future already resolved with err.
func Failed[T any](err error) *Future[T] {
	f, resolve := NewFuture[T]()
	var zero T
	resolve(zero, err)
	return f
}

// After returns a future that resolves with v once d has elapsed. It uses a
// runtime timer rather than a parked goroutine, so thousands of them are cheap.
func After[T any](d time.Duration, v T) *Future[T] {
	return AfterFunc(d, func() (T, error) { return v, nil })
}

// AfterFunc returns a future resolved with fn's outcome after d.
func AfterFunc[T any](d time.Duration, fn func() (T, error)) *Future[T] {
	f, resolve := NewFuture[T]()
	time.AfterFunc(d, func() {
		resolve(call(context.Background(), func(context.Context) (T, error) { return fn() }))
	})
	return f
}

// FromChan returns a future resolved with the first value received from ch,
// or with ErrNoValue if ch is closed first, or with ctx's error.
func FromChan[T any](ctx context.Context, ch <-chan T) *Future[T] {
	return Go(ctx, func(ctx context.Context) (T, error) {
		var zero T
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case v, ok := <-ch:
			if !ok {
				return zero, ErrNoValue
			}
			return v, nil
		}
	})
}

// Jobs converts futures to the core.Job slice a fan-in stream takes.
func Jobs[T any](futures ...*Future[T]) []core.Job[T] {
	jobs := make([]core.Job[T], len(futures))
	for i, f := range futures {
		jobs[i] = f
	}
	return jobs
}
