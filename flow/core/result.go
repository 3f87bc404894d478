package core

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

var (
	// ErrEndOfStream reports that a stream is exhausted. It is returned by
	// Next and is never surfaced by terminal operations.
	ErrEndOfStream = errors.New("end of stream")

	// ErrEmpty is returned by First when the stream yields nothing.
	ErrEmpty = errors.New("stream is empty")

	// ErrClaimed is returned by Next on a fan-in stream whose jobs were
	// handed to a fused operator.
	ErrClaimed = errors.New("stream was claimed by a fused operator")
)

// ErrPanic wraps a recovered panic value as an error.
// This is used when a user-provided callback panics while a record is being
// processed. It includes a cleaned-up stack trace that excludes internal
// min-fanin frames.
type ErrPanic struct {
	Value any
	Stack string // Cleaned stack trace
}

func (e ErrPanic) Error() string {
	if e.Stack != "" {
		return fmt.Sprintf("panic: %v\n%s", e.Value, e.Stack)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// NewPanicError creates an ErrPanic from a recovered value with a cleaned stack trace.
func NewPanicError(recovered any) ErrPanic {
	return ErrPanic{
		Value: recovered,
		Stack: cleanStack(captureStack(4)), // skip: runtime.Callers, captureStack, NewPanicError, defer func
	}
}

// Try calls fn and converts a panic into an ErrPanic.
func Try[T any](fn func() T) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(r)
		}
	}()
	return fn(), nil
}

func captureStack(skip int) string {
	const maxFrames = 32
	var pcs [maxFrames]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder

	for {
		frame, more := frames.Next()
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}

	return sb.String()
}

// cleanStack drops github.com/lguimbarda/min-fanin/flow/ frames and the
// file:line that follows each of them.
func cleanStack(stack string) string {
	var kept []string
	var skipNext bool

	for _, line := range strings.Split(stack, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(line, "\t") {
			skipNext = strings.Contains(line, "github.com/lguimbarda/min-fanin/flow/")
			if skipNext {
				continue
			}
		} else if skipNext {
			continue
		}
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

// Result pairs a value with the failure that may have replaced it.
// It is what Collect returns for each advance of a stream.
type Result[T any] struct {
	value T
	err   error
}

// NewResult creates a Result from a value and an optional error.
func NewResult[T any](value T, err error) Result[T] {
	return Result[T]{value: value, err: err}
}

// Ok creates a successful Result containing the given value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err creates a failed Result.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// IsValue returns true if this Result holds a value.
func (r Result[T]) IsValue() bool {
	return r.err == nil
}

// IsError returns true if this Result holds a failure.
func (r Result[T]) IsError() bool {
	return r.err != nil
}

// Value returns the contained value; the zero value for failures.
func (r Result[T]) Value() T {
	return r.value
}

// Error returns the failure, or nil.
func (r Result[T]) Error() error {
	return r.err
}

// Unwrap returns the value and error together.
func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.err
}
