package core

import (
	"cmp"
	"slices"
	"sync"
)

// Outcome is a finished job's result with its completion stamp. Stamps
// handed out by one job runtime increase in the order its jobs finish.
type Outcome[T any] struct {
	Seq   uint64
	Value T
	Err   error
}

// Settled is implemented by jobs that can report an outcome they already
// have. A fan-in stream queues settled jobs in stamp order at construction
// instead of registering callbacks whose running order the scheduler picks.
type Settled[T any] interface {
	Job[T]
	Settled() (Outcome[T], bool)
}

// journal registers one callback per job when a plan is created and keeps
// the arrivals, in arrival order, until the plan is attached to a stream.
// From then on arrivals are forwarded as they happen.
type journal[T any] struct {
	mu      sync.Mutex
	log     []Record[T]
	forward func(Record[T])
}

func (j *journal[T]) register(jobs []Job[T]) {
	var settled []Outcome[T]
	var pending []Job[T]
	for _, job := range jobs {
		if s, ok := job.(Settled[T]); ok {
			if o, done := s.Settled(); done {
				settled = append(settled, o)
				continue
			}
		}
		pending = append(pending, job)
	}

	slices.SortStableFunc(settled, func(a, b Outcome[T]) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	for _, o := range settled {
		j.log = append(j.log, Record[T]{Emit: true, Value: o.Value, Err: o.Err})
	}

	for _, job := range pending {
		job.OnComplete(once(j.arrive))
	}
}

func (j *journal[T]) arrive(v T, err error) {
	rec := Record[T]{Emit: true, Value: v, Err: err}

	j.mu.Lock()
	if j.forward == nil {
		j.log = append(j.log, rec)
		j.mu.Unlock()
		return
	}
	forward := j.forward
	j.mu.Unlock()
	forward(rec)
}

// attach replays the logged arrivals through out and switches the journal
// to forwarding. Arrivals racing with the replay wait for it to finish.
func (j *journal[T]) attach(seq *sync.Mutex, out sink[T]) {
	forward := func(rec Record[T]) {
		out(&arrival{seq: seq}, rec)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, rec := range j.log {
		forward(rec)
	}
	j.log = nil
	j.forward = forward
}
