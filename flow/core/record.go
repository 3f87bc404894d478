package core

import (
	"sync/atomic"
)

// Record is the tagged unit a job's completion turns into on its way to the
// ready queue. Exactly one Record is produced per job.
//
//   - Emit: whether the consumer sees the record. Records with Emit false are
//     absorbed by the cursor but still count as delivered.
//   - Stop: the stream is exhausted after this record, whatever is pending.
//   - Value: the job's (possibly transformed) result; meaningless unless Emit.
//   - Err: the job's failure or a recovered callback panic. Failed records
//     bypass value stages and are always surfaced.
type Record[T any] struct {
	Emit  bool
	Stop  bool
	Value T
	Err   error
}

// Job is one externally running asynchronous computation. The core registers
// at most one callback per job; the job must invoke it exactly once, off the
// registering goroutine, when it finishes (promptly if it already has).
type Job[T any] interface {
	OnComplete(func(T, error))
}

// JobFunc adapts a registration function to the Job interface.
type JobFunc[T any] func(func(T, error))

func (f JobFunc[T]) OnComplete(callback func(T, error)) {
	f(callback)
}

// once guards a job callback against being invoked more than once.
func once[T any](callback func(T, error)) func(T, error) {
	var fired atomic.Bool
	return func(v T, err error) {
		if fired.Swap(true) {
			return
		}
		callback(v, err)
	}
}
