// Package observe attaches typed observation hooks to fan-in streams:
// counters, error collection, logging and OpenTelemetry metrics.
//
// Hooks are carried by the context and captured when a stream starts, so the
// context passed to the first Next (or Start) is the one that counts:
//
//	ctx = observe.WithValueHook(ctx, func(v int) { fmt.Println("arrived:", v) })
//	values, err := flow.Slice(ctx, stream)
package observe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// WithValueHook attaches a value observation hook for type T to the context.
// The callback fires for each value a stream delivers.
func WithValueHook[T any](ctx context.Context, callback func(T)) context.Context {
	return core.WithHooks(ctx, core.Hooks[T]{
		OnValue: callback,
	})
}

// WithErrorHook attaches an error observation hook for type T to the context.
// The callback fires for each failed job a stream delivers.
func WithErrorHook[T any](ctx context.Context, callback func(error)) context.Context {
	return core.WithHooks(ctx, core.Hooks[T]{
		OnError: callback,
	})
}

// WithStartHook attaches a stream start hook for type T to the context.
func WithStartHook[T any](ctx context.Context, callback func()) context.Context {
	return core.WithHooks(ctx, core.Hooks[T]{
		OnStart: callback,
	})
}

// WithCompleteHook attaches a stream completion hook for type T to the context.
func WithCompleteHook[T any](ctx context.Context, callback func()) context.Context {
	return core.WithHooks(ctx, core.Hooks[T]{
		OnComplete: callback,
	})
}

// Counter provides thread-safe counting of values and errors.
type Counter struct {
	values atomic.Int64
	errors atomic.Int64
}

// Values returns the count of values delivered.
func (c *Counter) Values() int64 { return c.values.Load() }

// Errors returns the count of failures delivered.
func (c *Counter) Errors() int64 { return c.errors.Load() }

// Total returns the total count of values and errors.
func (c *Counter) Total() int64 { return c.values.Load() + c.errors.Load() }

// WithCounter attaches counting hooks for type T and returns the counter for querying.
func WithCounter[T any](ctx context.Context) (context.Context, *Counter) {
	counter := &Counter{}
	ctx = core.WithHooks(ctx, core.Hooks[T]{
		OnValue: func(T) { counter.values.Add(1) },
		OnError: func(error) { counter.errors.Add(1) },
	})
	return ctx, counter
}

// ErrorCollector collects all failures a stream delivers.
type ErrorCollector struct {
	mu     sync.Mutex
	errors []error
}

// Errors returns a copy of all collected errors.
func (c *ErrorCollector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.errors...)
}

// Count returns the number of collected errors.
func (c *ErrorCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

// WithErrorCollector attaches an error collecting hook for type T and returns the collector.
func WithErrorCollector[T any](ctx context.Context) (context.Context, *ErrorCollector) {
	collector := &ErrorCollector{}
	ctx = core.WithHooks(ctx, core.Hooks[T]{
		OnError: func(err error) {
			collector.mu.Lock()
			collector.errors = append(collector.errors, err)
			collector.mu.Unlock()
		},
	})
	return ctx, collector
}

// Logger is a function type for logging messages.
type Logger func(format string, args ...any)

// SlogLogger adapts a slog.Logger to Logger, logging at debug level.
func SlogLogger(l *slog.Logger) Logger {
	return func(format string, args ...any) {
		if !l.Enabled(context.Background(), slog.LevelDebug) {
			return
		}
		l.Debug(fmt.Sprintf(format, args...))
	}
}

// WithLogging attaches logging hooks for type T to the context.
func WithLogging[T any](ctx context.Context, logger Logger) context.Context {
	return core.WithHooks(ctx, core.Hooks[T]{
		OnStart: func() {
			logger("stream started")
		},
		OnValue: func(v T) {
			logger("value: %v", v)
		},
		OnError: func(err error) {
			logger("error: %v", err)
		},
		OnComplete: func() {
			logger("stream completed")
		},
	})
}
