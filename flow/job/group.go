package job

import (
	"context"

	"github.com/lguimbarda/min-fanin/flow/core"
	"golang.org/x/sync/errgroup"
)

type groupConfig struct {
	limit    int
	failFast bool
}

// GroupOption configures a Group.
type GroupOption func(*groupConfig)

// WithLimit bounds how many of the group's functions run at once. Go blocks
// while the limit is reached. A limit of zero or less means no limit.
func WithLimit(n int) GroupOption {
	return func(c *groupConfig) {
		c.limit = n
	}
}

// WithFailFast cancels the context passed to the group's functions as soon
// as one of them fails.
func WithFailFast() GroupOption {
	return func(c *groupConfig) {
		c.failFast = true
	}
}

// Group spawns jobs on an errgroup and remembers them so they can be fanned
// in together. A Group is not safe for concurrent calls to Go.
type Group[T any] struct {
	eg   *errgroup.Group
	ctx  context.Context
	jobs []core.Job[T]
}

// NewGroup creates a Group whose functions receive ctx, or a context derived
// from it when WithFailFast is set.
func NewGroup[T any](ctx context.Context, opts ...GroupOption) *Group[T] {
	var cfg groupConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	g := &Group[T]{eg: &errgroup.Group{}, ctx: ctx}
	if cfg.failFast {
		g.eg, g.ctx = errgroup.WithContext(ctx)
	}
	if cfg.limit > 0 {
		g.eg.SetLimit(cfg.limit)
	}
	return g
}

// Go schedules fn and returns its future.
func (g *Group[T]) Go(fn func(context.Context) (T, error)) *Future[T] {
	f, resolve := NewFuture[T]()
	g.eg.Go(func() error {
		v, err := call(g.ctx, fn)
		resolve(v, err)
		return err
	})
	g.jobs = append(g.jobs, f)
	return f
}

// Jobs returns every job scheduled so far, in submission order.
func (g *Group[T]) Jobs() []core.Job[T] {
	return append([]core.Job[T](nil), g.jobs...)
}

// Stream fans in every job scheduled so far.
func (g *Group[T]) Stream() *core.FanIn[T] {
	return core.FromJobs(g.jobs)
}

// Wait blocks until every scheduled function has returned and reports the
// first failure.
func (g *Group[T]) Wait() error {
	return g.eg.Wait()
}
