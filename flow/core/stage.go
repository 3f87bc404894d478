package core

import (
	"sync"
)

// Plan is the job set of a fan-in stream together with the continuation
// every job completion runs through. It is obtained by claiming a Fusable
// stream and extended with Compose.
type Plan[T any] struct {
	total  int
	attach func(seq *sync.Mutex, out sink[T])
}

// Total returns the number of jobs in the plan.
func (p Plan[T]) Total() int {
	return p.total
}

type sink[T any] func(*arrival, Record[T])

// arrival tracks whether one job's continuation holds the arrival lock.
// It is owned by a single callback invocation.
type arrival struct {
	seq    *sync.Mutex
	locked bool
}

func (a *arrival) enter() {
	if !a.locked {
		a.seq.Lock()
		a.locked = true
	}
}

func (a *arrival) leave() {
	if a.locked {
		a.locked = false
		a.seq.Unlock()
	}
}

// planFor registers the jobs' callbacks right away. Stages composed onto the
// plan later run when the plan is attached, over the arrivals in the order
// they were logged.
func planFor[T any](jobs []Job[T]) Plan[T] {
	j := &journal[T]{}
	j.register(jobs)
	return Plan[T]{total: len(jobs), attach: j.attach}
}

// Fusable is implemented by streams whose per-job continuations can be
// rewritten in place. Claim hands over the stream's plan; it fails if the
// stream has already started, been closed or been claimed, in which case
// the operator falls back to wrapping the cursor.
type Fusable[T any] interface {
	Stream[T]
	Claim() (Plan[T], bool)
}

// Stage rewrites one Record on its way from a job to the ready queue.
// Stages run on the goroutine that completes the job.
type Stage[IN, OUT any] struct {
	fn        func(Record[IN]) Record[OUT]
	sequenced bool
}

// NewStage creates a stage from a record rewrite function. The function sees
// failed and non-emitted records too.
func NewStage[IN, OUT any](fn func(Record[IN]) Record[OUT]) Stage[IN, OUT] {
	return Stage[IN, OUT]{fn: fn}
}

// Sequenced marks the stage as depending on arrival order (shared counters,
// latches). Sequenced stages and everything after them run under the
// stream's arrival lock, so their decisions happen in the same order the
// records reach the consumer.
func (st Stage[IN, OUT]) Sequenced() Stage[IN, OUT] {
	st.sequenced = true
	return st
}

// run applies the stage, turning a panic into a failed record.
func (st Stage[IN, OUT]) run(rec Record[IN]) (out Record[OUT]) {
	defer func() {
		if r := recover(); r != nil {
			out = Record[OUT]{Emit: true, Stop: rec.Stop, Err: NewPanicError(r)}
		}
	}()
	return st.fn(rec)
}

// Compose extends a plan with a stage.
func Compose[IN, OUT any](p Plan[IN], st Stage[IN, OUT]) Plan[OUT] {
	return Plan[OUT]{
		total: p.total,
		attach: func(seq *sync.Mutex, out sink[OUT]) {
			p.attach(seq, func(a *arrival, rec Record[IN]) {
				if st.sequenced {
					a.enter()
				}
				out(a, st.run(rec))
			})
		},
	}
}

// Fuse claims s and returns a new fan-in stream whose job continuations are
// s's continuations followed by st. It reports false when s does not
// support fusion or can no longer be claimed.
func Fuse[IN, OUT any](s Stream[IN], st Stage[IN, OUT]) (Stream[OUT], bool) {
	f, ok := s.(Fusable[IN])
	if !ok {
		return nil, false
	}
	plan, ok := f.Claim()
	if !ok {
		return nil, false
	}
	return newFanIn(Compose(plan, st)), true
}

// Filter keeps emitted values matching pred. Non-emitted and failed records
// pass through without calling pred.
func Filter[T any](pred func(T) bool) Stage[T, T] {
	return NewStage(func(rec Record[T]) Record[T] {
		if !rec.Emit || rec.Err != nil {
			return rec
		}
		rec.Emit = pred(rec.Value)
		return rec
	})
}

// Transform maps emitted values with f. Non-emitted records carry the zero
// value of OUT; Stop and Err pass through.
func Transform[IN, OUT any](f func(IN) OUT) Stage[IN, OUT] {
	return NewStage(func(rec Record[IN]) Record[OUT] {
		out := Record[OUT]{Emit: rec.Emit, Stop: rec.Stop, Err: rec.Err}
		if rec.Emit && rec.Err == nil {
			out.Value = f(rec.Value)
		}
		return out
	})
}

// TryTransform is Transform for mappers that can fail; a mapper error
// becomes the record's failure.
func TryTransform[IN, OUT any](f func(IN) (OUT, error)) Stage[IN, OUT] {
	return NewStage(func(rec Record[IN]) Record[OUT] {
		out := Record[OUT]{Emit: rec.Emit, Stop: rec.Stop, Err: rec.Err}
		if rec.Emit && rec.Err == nil {
			out.Value, out.Err = f(rec.Value)
		}
		return out
	})
}

// StopWhen sets Stop on an emitted record when stopAfter reports true. The
// record itself is still emitted, so it is the last one the consumer sees.
func StopWhen[T any](stopAfter func(T) bool) Stage[T, T] {
	return NewStage(func(rec Record[T]) Record[T] {
		if !rec.Emit || rec.Err != nil {
			return rec
		}
		if stopAfter(rec.Value) {
			rec.Stop = true
		}
		return rec
	})
}

// StopUnless halts the stream at the first emitted record that does not
// satisfy pred and suppresses that record. It is StopWhen(!pred) followed by
// Filter(pred) with pred evaluated once.
func StopUnless[T any](pred func(T) bool) Stage[T, T] {
	return NewStage(func(rec Record[T]) Record[T] {
		if !rec.Emit || rec.Err != nil {
			return rec
		}
		if !pred(rec.Value) {
			rec.Stop = true
			rec.Emit = false
		}
		return rec
	})
}
