package core

import (
	"context"
)

// Hooks holds typed observation callbacks for a fan-in stream.
// All fields are optional - nil means no observation for that event.
// Hooks are captured from the context when the stream starts. OnValue and
// OnError run on the consumer's goroutine as records are delivered;
// OnComplete runs once, either when the consumer sees exhaustion or when a
// closed stream releases its resources, possibly on a job's goroutine.
type Hooks[T any] struct {
	OnStart    func()      // The stream is about to start consuming arrivals
	OnValue    func(T)     // A value is returned by Next
	OnError    func(error) // A failure is returned by Next
	OnComplete func()      // Stream exhausted or released
}

// hooksKey is unexported to prevent collisions with user context keys.
type hooksKey[T any] struct{}

// hooksContainer holds multiple hook sets for FIFO invocation.
type hooksContainer[T any] struct {
	hookSets []*Hooks[T]
}

// WithHooks attaches typed hooks to the context.
// Multiple calls to WithHooks compose in FIFO order - hooks from earlier
// calls are invoked before hooks from later calls.
//
// Example:
//
//	ctx := core.WithHooks(ctx, core.Hooks[int]{
//	    OnValue: func(v int) { log.Printf("arrived: %d", v) },
//	})
func WithHooks[T any](ctx context.Context, hooks Hooks[T]) context.Context {
	if ctx == nil {
		panic("nil context")
	}

	existing := getHooksContainer[T](ctx)
	if existing == nil {
		return context.WithValue(ctx, hooksKey[T]{}, &hooksContainer[T]{
			hookSets: []*Hooks[T]{&hooks},
		})
	}

	next := &hooksContainer[T]{
		hookSets: make([]*Hooks[T], len(existing.hookSets)+1),
	}
	copy(next.hookSets, existing.hookSets)
	next.hookSets[len(existing.hookSets)] = &hooks

	return context.WithValue(ctx, hooksKey[T]{}, next)
}

func getHooksContainer[T any](ctx context.Context) *hooksContainer[T] {
	if ctx == nil {
		return nil
	}
	if c, ok := ctx.Value(hooksKey[T]{}).(*hooksContainer[T]); ok {
		return c
	}
	return nil
}

// hookInvoker caches the hooks found in a context when a stream starts.
// The zero value invokes nothing.
type hookInvoker[T any] struct {
	hookSets []*Hooks[T]
}

func newHookInvoker[T any](ctx context.Context) *hookInvoker[T] {
	container := getHooksContainer[T](ctx)
	if container == nil {
		return &hookInvoker[T]{}
	}
	return &hookInvoker[T]{hookSets: container.hookSets}
}

func (h *hookInvoker[T]) invokeStart() {
	for _, hooks := range h.hookSets {
		if hooks.OnStart != nil {
			hooks.OnStart()
		}
	}
}

func (h *hookInvoker[T]) invokeValue(value T) {
	for _, hooks := range h.hookSets {
		if hooks.OnValue != nil {
			hooks.OnValue(value)
		}
	}
}

func (h *hookInvoker[T]) invokeError(err error) {
	for _, hooks := range h.hookSets {
		if hooks.OnError != nil {
			hooks.OnError(err)
		}
	}
}

func (h *hookInvoker[T]) invokeComplete() {
	for _, hooks := range h.hookSets {
		if hooks.OnComplete != nil {
			hooks.OnComplete()
		}
	}
}

// NewSafeHooks wraps every hook with panic recovery. If panicHandler is nil,
// panics are silently recovered.
func NewSafeHooks[T any](hooks Hooks[T], panicHandler func(any)) Hooks[T] {
	if panicHandler == nil {
		panicHandler = func(any) {}
	}
	guard := func() {
		if r := recover(); r != nil {
			panicHandler(r)
		}
	}

	var safe Hooks[T]
	if fn := hooks.OnStart; fn != nil {
		safe.OnStart = func() {
			defer guard()
			fn()
		}
	}
	if fn := hooks.OnValue; fn != nil {
		safe.OnValue = func(v T) {
			defer guard()
			fn(v)
		}
	}
	if fn := hooks.OnError; fn != nil {
		safe.OnError = func(err error) {
			defer guard()
			fn(err)
		}
	}
	if fn := hooks.OnComplete; fn != nil {
		safe.OnComplete = func() {
			defer guard()
			fn()
		}
	}
	return safe
}

// WithSafeHooks wraps hooks with panic recovery before attaching them to the context.
func WithSafeHooks[T any](ctx context.Context, hooks Hooks[T], panicHandler func(any)) context.Context {
	return WithHooks(ctx, NewSafeHooks(hooks, panicHandler))
}
