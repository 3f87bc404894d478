package filter_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/lguimbarda/min-fanin/flow"
	"github.com/lguimbarda/min-fanin/flow/core"
	"github.com/lguimbarda/min-fanin/flow/job"
)

const unit = 15 * time.Millisecond

// arrivals returns one job per value, completing in the order given.
func arrivals[T any](values ...T) []flow.Job[T] {
	jobs := make([]flow.Job[T], len(values))
	for i, v := range values {
		jobs[i] = job.After(time.Duration(i+1)*unit, v)
	}
	return jobs
}

// fixture is five jobs submitted as [3 1 2 5 4] that arrive as 1..5.
func fixture() []flow.Job[int] {
	var jobs []flow.Job[int]
	for _, v := range []int{3, 1, 2, 5, 4} {
		jobs = append(jobs, job.After(time.Duration(v)*unit, v))
	}
	return jobs
}

// never is a job that does not complete.
func never[T any]() flow.Job[T] {
	return core.JobFunc[T](func(func(T, error)) {})
}

// paths builds the same job set as a fusable fan-in and as an opaque one
// that forces operators onto their generic implementation.
var paths = []struct {
	name  string
	build func(jobs []flow.Job[int]) flow.Stream[int]
}{
	{"fused", func(jobs []flow.Job[int]) flow.Stream[int] { return flow.FromJobs(jobs) }},
	{"generic", func(jobs []flow.Job[int]) flow.Stream[int] { return core.Opaque[int](flow.FromJobs(jobs)) }},
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func assertValues(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
