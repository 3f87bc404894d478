package flowerrors

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// ErrCircuitOpen is returned when a circuit breaker is in the open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Fallback creates a Transformer that replaces a failure with
// fallbackFn(last, err), where last is the most recent value that arrived
// before it. Failures that arrive before any value pass through.
func Fallback[T any](fallbackFn func(last T, err error) T) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		var (
			last     T
			hasValue bool
		)
		stage := core.NewStage(func(rec core.Record[T]) core.Record[T] {
			switch {
			case rec.Err == nil && rec.Emit:
				last, hasValue = rec.Value, true
			case rec.Err != nil && hasValue:
				return core.Record[T]{Emit: true, Stop: rec.Stop, Value: fallbackFn(last, rec.Err)}
			}
			return rec
		}).Sequenced()
		if out, ok := core.Fuse(in, stage); ok {
			return out
		}

		return core.Pull(func(ctx context.Context) (T, error) {
			v, err := in.Next(ctx)
			if err == nil {
				last, hasValue = v, true
				return v, nil
			}
			if !hasValue || isControl(ctx, err) {
				return v, err
			}
			return core.Try(func() T { return fallbackFn(last, err) })
		}, in.Close)
	})
}

// FallbackValue creates a Transformer that replaces every failure with
// defaultValue.
func FallbackValue[T any](defaultValue T) core.Transformer[T, T] {
	return Recover(func(error) (T, error) {
		return defaultValue, nil
	})
}

// Recover creates a Transformer that hands every failure to recoverFn. A nil
// error from recoverFn turns the failure into a value.
func Recover[T any](recoverFn func(error) (T, error)) core.Transformer[T, T] {
	return rewrite(func(err error) (T, bool, error) {
		v, err := recoverFn(err)
		return v, true, err
	})
}

// RecoverPanic creates a Transformer that only recovers failures caused by a
// panic in a job or callback. Other failures pass through.
func RecoverPanic[T any](recoverFn func(panicValue any) (T, error)) core.Transformer[T, T] {
	return Recover(func(err error) (T, error) {
		var panicErr core.ErrPanic
		if errors.As(err, &panicErr) {
			return recoverFn(panicErr.Value)
		}
		var zero T
		return zero, err
	})
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreaker guards the functions that start jobs. Once
// failureThreshold jobs in a row have failed, jobs started through it fail
// immediately with ErrCircuitOpen until resetTimeout has passed; then
// halfOpenSuccesses successful jobs close the circuit again.
type CircuitBreaker struct {
	failureThreshold  int
	resetTimeout      time.Duration
	halfOpenSuccesses int

	mu          sync.Mutex
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time
}

// NewCircuitBreaker creates a circuit breaker. Non-positive arguments fall
// back to 5 failures, 30 seconds and 1 success.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration, halfOpenSuccesses int) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	if halfOpenSuccesses <= 0 {
		halfOpenSuccesses = 1
	}
	return &CircuitBreaker{
		failureThreshold:  failureThreshold,
		resetTimeout:      resetTimeout,
		halfOpenSuccesses: halfOpenSuccesses,
	}
}

// Guard wraps a job function so that it runs through cb. The result can be
// handed to flow.Go, job.Go or a job.Group.
func Guard[T any](cb *CircuitBreaker, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		if !cb.allow() {
			var zero T
			return zero, ErrCircuitOpen
		}
		v, err := fn(ctx)
		cb.record(err)
		return v, err
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && time.Since(cb.lastFailure) >= cb.resetTimeout {
		cb.state = CircuitHalfOpen
		cb.successes = 0
	}
	return cb.state != CircuitOpen
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.state == CircuitHalfOpen || cb.failures >= cb.failureThreshold {
			cb.state = CircuitOpen
		}
		return
	}

	if cb.state == CircuitHalfOpen {
		cb.successes++
		if cb.successes >= cb.halfOpenSuccesses {
			cb.state = CircuitClosed
			cb.failures = 0
		}
		return
	}
	cb.failures = 0
}
