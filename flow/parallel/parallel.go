// Package parallel runs a function over every value of a stream as its own
// job and fans the results back in.
package parallel

import (
	"context"
	"errors"

	"github.com/lguimbarda/min-fanin/flow/core"
	"github.com/lguimbarda/min-fanin/flow/job"
)

// Map reads the whole input on the first Next, starts fn for every value on
// at most limit goroutines at a time (limit <= 0 means no limit) and streams
// the results in the order they complete. An upstream failure becomes a job
// that has already failed. Closing the stream cancels the context passed to
// fn; values that were not started yet complete with the cancellation error.
//
// fn receives the context of the first Next with its cancellation removed,
// so hooks and configuration attached to it remain visible.
func Map[IN, OUT any](limit int, fn func(context.Context, IN) (OUT, error)) core.Transformer[IN, OUT] {
	return core.Operator[IN, OUT](func(in core.Stream[IN]) core.Stream[OUT] {
		r := &runner[IN, OUT]{in: in, limit: limit, fn: fn}
		var out *core.FanIn[OUT]
		return core.Pull(func(ctx context.Context) (OUT, error) {
			if out == nil {
				futures, err := r.start(ctx)
				if err != nil {
					var zero OUT
					return zero, err
				}
				out = core.FromJobs(job.Jobs(futures...))
			}
			return out.Next(ctx)
		}, func() error {
			if out != nil {
				out.Close()
			}
			return r.close()
		})
	})
}

// Ordered is Map with the results delivered in input order. A slow value
// holds back every value after it, but the work itself still overlaps.
func Ordered[IN, OUT any](limit int, fn func(context.Context, IN) (OUT, error)) core.Transformer[IN, OUT] {
	return core.Operator[IN, OUT](func(in core.Stream[IN]) core.Stream[OUT] {
		r := &runner[IN, OUT]{in: in, limit: limit, fn: fn}
		var (
			futures []*job.Future[OUT]
			started bool
			pos     int
		)
		return core.Pull(func(ctx context.Context) (OUT, error) {
			var zero OUT
			if !started {
				f, err := r.start(ctx)
				if err != nil {
					return zero, err
				}
				futures, started = f, true
			}
			if pos == len(futures) {
				return zero, core.ErrEndOfStream
			}
			f := futures[pos]
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-f.Done():
			}
			pos++
			return f.Wait(context.Background())
		}, r.close)
	})
}

type runner[IN, OUT any] struct {
	in       core.Stream[IN]
	limit    int
	fn       func(context.Context, IN) (OUT, error)
	items    []core.Result[IN]
	cancel   context.CancelFunc
	inClosed bool
}

// start drains the input and spawns one job per item. A cancelled ctx
// interrupts draining; the items read so far are kept for the next call.
func (r *runner[IN, OUT]) start(ctx context.Context) ([]*job.Future[OUT], error) {
	for {
		v, err := r.in.Next(ctx)
		if errors.Is(err, core.ErrEndOfStream) {
			break
		}
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.items = append(r.items, core.NewResult(v, err))
	}
	r.closeInput()

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel

	futures := make([]*job.Future[OUT], len(r.items))
	resolvers := make([]func(OUT, error), len(r.items))
	for i := range futures {
		futures[i], resolvers[i] = job.NewFuture[OUT]()
	}

	items := r.items
	r.items = nil
	go func() {
		g := job.NewGroup[OUT](jobCtx, job.WithLimit(r.limit))
		for i, item := range items {
			v, err := item.Unwrap()
			if err == nil {
				err = jobCtx.Err()
			}
			if err != nil {
				var zero OUT
				resolvers[i](zero, err)
				continue
			}
			// Resolving inside the job stamps the future as it finishes; the
			// callback only matters when fn panics.
			g.Go(func(ctx context.Context) (OUT, error) {
				out, err := r.fn(ctx, v)
				resolvers[i](out, err)
				return out, err
			}).OnComplete(resolvers[i])
		}
	}()
	return futures, nil
}

func (r *runner[IN, OUT]) closeInput() error {
	if r.inClosed {
		return nil
	}
	r.inClosed = true
	return r.in.Close()
}

func (r *runner[IN, OUT]) close() error {
	if r.cancel != nil {
		r.cancel()
	}
	return r.closeInput()
}
