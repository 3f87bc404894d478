package core

import (
	"context"
	"sync"
	"sync/atomic"
)

const (
	stateIdle int32 = iota
	stateRunning
	stateClaimed
	stateAbandoned
)

// FanIn merges the completions of a fixed set of jobs into a single cursor
// that yields results in the order the jobs finish.
//
// One callback is registered per job at construction. Arrivals are logged in
// order until the stream is started, either explicitly with Start or by the
// first call to Next; starting replays the log and then forwards live
// arrivals. Each arrival is turned into a Record, run through the stream's
// stages and sent to a ready channel sized to the job count, so a callback
// never blocks.
// Because the job set is fixed, delivered == total is enough to know that
// nothing more will arrive.
//
// A FanIn that has not started can be claimed by a fused operator, which
// takes over its jobs and composes a new stage onto their continuations.
type FanIn[T any] struct {
	plan  Plan[T]
	state atomic.Int32

	// seq is the arrival lock. Sequenced stages hold it from their decision
	// until the record is in the ready channel.
	seq   sync.Mutex
	ready chan Record[T]

	delivered   atomic.Int64
	halted      atomic.Bool
	closed      atomic.Bool
	outstanding atomic.Int64

	closing      chan struct{}
	closeOnce    sync.Once
	released     chan struct{}
	releaseOnce  sync.Once
	completeOnce sync.Once

	hooks atomic.Pointer[hookInvoker[T]]
}

// WhenDone creates a FanIn over the given jobs.
func WhenDone[T any](jobs ...Job[T]) *FanIn[T] {
	return FromJobs(jobs)
}

// FromJobs creates a FanIn over a slice of jobs and registers their
// callbacks. The slice is not retained.
func FromJobs[T any](jobs []Job[T]) *FanIn[T] {
	return newFanIn(planFor(jobs))
}

func newFanIn[T any](plan Plan[T]) *FanIn[T] {
	s := &FanIn[T]{
		plan:     plan,
		ready:    make(chan Record[T], plan.total),
		closing:  make(chan struct{}),
		released: make(chan struct{}),
	}
	s.hooks.Store(&hookInvoker[T]{})
	s.outstanding.Store(int64(plan.total))
	return s
}

// Start attaches the stream to its jobs' arrivals if that has not happened
// yet: stages run over everything that has already arrived, in arrival
// order. Hooks attached to ctx are captured here. Calling Start is optional;
// Next starts the stream on first use.
func (s *FanIn[T]) Start(ctx context.Context) {
	if !s.state.CompareAndSwap(stateIdle, stateRunning) {
		return
	}
	hooks := newHookInvoker[T](ctx)
	s.hooks.Store(hooks)
	hooks.invokeStart()
	s.plan.attach(&s.seq, s.arrive)
}

// Claim hands the stream's jobs to a fused operator. It succeeds only once
// and only before the stream has started or been closed.
func (s *FanIn[T]) Claim() (Plan[T], bool) {
	if !s.state.CompareAndSwap(stateIdle, stateClaimed) {
		return Plan[T]{}, false
	}
	return s.plan, true
}

// Next blocks until some not-yet-delivered job result is ready and returns
// it. Records filtered out by stages are absorbed without returning; a job
// failure is returned as the error of the call that dequeues it, and the
// stream remains usable afterwards.
func (s *FanIn[T]) Next(ctx context.Context) (T, error) {
	var zero T

	s.Start(ctx)
	if s.state.Load() == stateClaimed {
		return zero, ErrClaimed
	}

	for {
		if s.closed.Load() || s.halted.Load() || s.delivered.Load() == int64(s.plan.total) {
			s.complete()
			return zero, ErrEndOfStream
		}

		var rec Record[T]
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-s.closing:
			continue
		case rec = <-s.ready:
		}

		s.delivered.Add(1)
		if rec.Stop {
			s.halted.Store(true)
		}
		if rec.Err != nil {
			s.hooks.Load().invokeError(rec.Err)
			return zero, rec.Err
		}
		if !rec.Emit {
			continue
		}
		s.hooks.Load().invokeValue(rec.Value)
		return rec.Value, nil
	}
}

// Close marks the stream exhausted and wakes a blocked Next. Queued records
// are dropped once every registered callback has fired; Released reports
// when that has happened. Close never blocks and is safe to call repeatedly.
func (s *FanIn[T]) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.closeOnce.Do(func() { close(s.closing) })

	switch {
	case s.state.CompareAndSwap(stateIdle, stateAbandoned):
		s.release()
	case s.state.Load() == stateClaimed:
		s.release()
	case s.outstanding.Load() == 0:
		s.release()
	}
	return nil
}

// Released returns a channel that is closed once the stream has been closed
// and no callback can still reach its ready channel. A stream closed before
// it started is released at once; later arrivals only reach its log.
func (s *FanIn[T]) Released() <-chan struct{} {
	return s.released
}

// Stats is a snapshot of a FanIn's counters.
type Stats struct {
	Total     int
	Delivered int
	Halted    bool
	Closed    bool
}

// Stats returns diagnostic counters. It is safe to call concurrently with Next.
func (s *FanIn[T]) Stats() Stats {
	return Stats{
		Total:     s.plan.total,
		Delivered: int(s.delivered.Load()),
		Halted:    s.halted.Load(),
		Closed:    s.closed.Load(),
	}
}

// arrive is the end of every job continuation.
func (s *FanIn[T]) arrive(a *arrival, rec Record[T]) {
	s.ready <- rec
	a.leave()
	if s.outstanding.Add(-1) == 0 && s.closed.Load() {
		s.release()
	}
}

func (s *FanIn[T]) release() {
	s.releaseOnce.Do(func() {
	drain:
		for {
			select {
			case <-s.ready:
			default:
				break drain
			}
		}
		s.complete()
		close(s.released)
	})
}

func (s *FanIn[T]) complete() {
	s.completeOnce.Do(s.hooks.Load().invokeComplete)
}
