package transform_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/lguimbarda/min-fanin/flow"
	"github.com/lguimbarda/min-fanin/flow/core"
	"github.com/lguimbarda/min-fanin/flow/job"
	"github.com/lguimbarda/min-fanin/flow/transform"
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

func TestPairwise(t *testing.T) {
	tests := []struct {
		name     string
		input    []int
		expected [][2]int
	}{
		{
			name:     "empty stream",
			input:    []int{},
			expected: nil,
		},
		{
			name:     "single element",
			input:    []int{1},
			expected: nil,
		},
		{
			name:     "two elements",
			input:    []int{1, 2},
			expected: [][2]int{{1, 2}},
		},
		{
			name:     "multiple elements",
			input:    []int{1, 2, 3, 4, 5},
			expected: [][2]int{{1, 2}, {2, 3}, {3, 4}, {4, 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := transform.Pairwise[int]().Apply(flow.FromJobs(arrivals(tt.input...)))

			got, err := flow.Slice(testContext(t), result)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("got %d pairs, expected %d", len(got), len(tt.expected))
			}
			for i, pair := range got {
				if pair != tt.expected[i] {
					t.Errorf("pair %d: got %v, expected %v", i, pair, tt.expected[i])
				}
			}
		})
	}
}

func TestStartWithEndWith(t *testing.T) {
	ctx := testContext(t)

	s := flow.Pipe(flow.FromJobs(arrivals(2, 3)), transform.StartWith(0, 1), transform.EndWith(4))
	got, err := flow.Slice(ctx, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
		t.Errorf("got %v, expected [0 1 2 3 4]", got)
	}
}

func TestDefaultIfEmpty(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		jobs []flow.Job[int]
		want []flow.Result[int]
	}{
		{
			name: "empty uses default",
			jobs: nil,
			want: []flow.Result[int]{flow.Ok(-1)},
		},
		{
			name: "values pass through",
			jobs: arrivals(1, 2),
			want: []flow.Result[int]{flow.Ok(1), flow.Ok(2)},
		},
		{
			name: "failure counts as delivery",
			jobs: []flow.Job[int]{job.Failed[int](boom)},
			want: []flow.Result[int]{flow.Err[int](boom)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flow.Collect(testContext(t), transform.DefaultIfEmpty(-1).Apply(flow.FromJobs(tt.jobs)))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i].Value() != tt.want[i].Value() || !errors.Is(got[i].Error(), tt.want[i].Error()) {
					t.Errorf("result %d: got %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDistinct(t *testing.T) {
	for _, p := range paths {
		t.Run(p.name, func(t *testing.T) {
			s := transform.Distinct[int]().Apply(p.build(arrivals(1, 2, 1, 3, 2, 4)))
			got, err := flow.Slice(testContext(t), s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, []int{1, 2, 3, 4}) {
				t.Errorf("got %v, expected [1 2 3 4]", got)
			}
		})
	}
}

func TestDistinctBy(t *testing.T) {
	for _, p := range paths {
		t.Run(p.name, func(t *testing.T) {
			s := transform.DistinctBy(func(v int) int { return v % 3 }).Apply(p.build(arrivals(1, 4, 2, 6, 5)))
			got, err := flow.Slice(testContext(t), s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, []int{1, 2, 6}) {
				t.Errorf("got %v, expected [1 2 6]", got)
			}
		})
	}
}

func TestWithIndex(t *testing.T) {
	for _, p := range paths {
		t.Run(p.name, func(t *testing.T) {
			s := transform.WithIndex[int]().Apply(p.build(arrivals(30, 10, 20)))
			got, err := flow.Slice(testContext(t), s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := []transform.Indexed[int]{{0, 30}, {1, 10}, {2, 20}}
			if !slices.Equal(got, want) {
				t.Errorf("got %v, expected %v", got, want)
			}
		})
	}
}
