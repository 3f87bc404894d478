package flowerrors

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// The functions in this file observe failures through stream hooks. They
// never change what the consumer sees; use the operators in error.go and
// resilience.go for that.

// ErrorCounter counts failures that match a predicate.
type ErrorCounter struct {
	predicate func(error) bool
	count     atomic.Int64
}

// Count returns the number of failures counted.
func (c *ErrorCounter) Count() int64 {
	return c.count.Load()
}

// WithErrorCounter attaches a failure counting hook for streams of T and
// returns the counter. A nil predicate counts every failure.
func WithErrorCounter[T any](ctx context.Context, predicate func(error) bool) (context.Context, *ErrorCounter) {
	if predicate == nil {
		predicate = func(error) bool { return true }
	}
	counter := &ErrorCounter{predicate: predicate}
	ctx = core.WithHooks(ctx, core.Hooks[T]{
		OnError: func(err error) {
			if counter.predicate(err) {
				counter.count.Add(1)
			}
		},
	})
	return ctx, counter
}

// ErrorCollector keeps the failures a stream delivers, in delivery order.
type ErrorCollector struct {
	mu        sync.Mutex
	errors    []error
	predicate func(error) bool
	maxErrors int // 0 = unlimited
}

// ErrorCollectorOption configures an ErrorCollector.
type ErrorCollectorOption func(*ErrorCollector)

// WithPredicate filters which failures to keep.
func WithPredicate(predicate func(error) bool) ErrorCollectorOption {
	return func(c *ErrorCollector) {
		c.predicate = predicate
	}
}

// WithMaxErrors limits the number of failures kept.
func WithMaxErrors(max int) ErrorCollectorOption {
	return func(c *ErrorCollector) {
		c.maxErrors = max
	}
}

// Errors returns a copy of the kept failures.
func (c *ErrorCollector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]error, len(c.errors))
	copy(result, c.errors)
	return result
}

// Count returns the number of kept failures.
func (c *ErrorCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

// WithErrorCollector attaches a failure collecting hook for streams of T.
func WithErrorCollector[T any](ctx context.Context, opts ...ErrorCollectorOption) (context.Context, *ErrorCollector) {
	collector := &ErrorCollector{
		predicate: func(error) bool { return true },
	}
	for _, opt := range opts {
		opt(collector)
	}

	ctx = core.WithHooks(ctx, core.Hooks[T]{
		OnError: func(err error) {
			if !collector.predicate(err) {
				return
			}
			collector.mu.Lock()
			defer collector.mu.Unlock()
			if collector.maxErrors > 0 && len(collector.errors) >= collector.maxErrors {
				return
			}
			collector.errors = append(collector.errors, err)
		},
	})
	return ctx, collector
}

// FailureMonitor trips once threshold failures have been delivered in a row.
// Unlike CircuitBreaker it only watches the consumer side of a stream; the
// callback typically closes the stream.
type FailureMonitor struct {
	threshold int
	failures  atomic.Int64
	tripped   atomic.Bool
	onTrip    func()
}

// Tripped reports whether the threshold has been reached.
func (m *FailureMonitor) Tripped() bool {
	return m.tripped.Load()
}

// FailureCount returns the current run of consecutive failures.
func (m *FailureMonitor) FailureCount() int64 {
	return m.failures.Load()
}

// Reset clears the monitor.
func (m *FailureMonitor) Reset() {
	m.failures.Store(0)
	m.tripped.Store(false)
}

// WithFailureMonitor attaches a FailureMonitor for streams of T. onTrip runs
// once, on the consumer's goroutine, when the threshold is reached.
func WithFailureMonitor[T any](ctx context.Context, threshold int, onTrip func()) (context.Context, *FailureMonitor) {
	m := &FailureMonitor{threshold: threshold, onTrip: onTrip}
	ctx = core.WithHooks(ctx, core.Hooks[T]{
		OnError: func(error) {
			if m.tripped.Load() {
				return
			}
			if int(m.failures.Add(1)) >= m.threshold {
				m.tripped.Store(true)
				if m.onTrip != nil {
					m.onTrip()
				}
			}
		},
		OnValue: func(T) {
			m.failures.Store(0)
		},
	})
	return ctx, m
}
