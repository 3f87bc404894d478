package flow_test

import (
	"context"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/lguimbarda/min-fanin/flow"
	"github.com/lguimbarda/min-fanin/flow/filter"
	"github.com/lguimbarda/min-fanin/flow/transform"
)

func TestThrough(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	double := transform.Select(func(x int) int { return x * 2 })
	format := transform.Select(strconv.Itoa)

	// First double, then render.
	combined := flow.Through(double, format)

	result, err := flow.Slice(ctx, combined.Apply(flow.FromSlice([]int{1, 2, 3})))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"2", "4", "6"}
	if !slices.Equal(result, expected) {
		t.Errorf("expected %v, got %v", expected, result)
	}
}

func TestChain(t *testing.T) {
	tests := []struct {
		name         string
		transformers []flow.Transformer[int, int]
		input        []int
		expected     []int
	}{
		{
			name:         "empty chain (identity)",
			transformers: []flow.Transformer[int, int]{},
			input:        []int{1, 2, 3},
			expected:     []int{1, 2, 3},
		},
		{
			name: "single transformer",
			transformers: []flow.Transformer[int, int]{
				transform.Select(func(x int) int { return x * 2 }),
			},
			input:    []int{1, 2, 3},
			expected: []int{2, 4, 6},
		},
		{
			name: "filter then map then take",
			transformers: []flow.Transformer[int, int]{
				filter.Where(func(x int) bool { return x%2 == 1 }),
				transform.Select(func(x int) int { return x * 10 }),
				filter.Take[int](2),
			},
			input:    []int{1, 2, 3, 4, 5, 7},
			expected: []int{10, 30},
		},
		{
			name: "skip then take",
			transformers: []flow.Transformer[int, int]{
				filter.Skip[int](2),
				filter.Take[int](2),
			},
			input:    []int{1, 2, 3, 4, 5},
			expected: []int{3, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			chained := flow.Chain(tt.transformers...)
			result, err := flow.Slice(ctx, chained.Apply(flow.FromSlice(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestPipe_StaysFused(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	source := flow.WhenDone(delayed(time.Millisecond, 60, 20, 40, 100, 80)...)
	piped := flow.Pipe[int](source,
		filter.Where(func(x int) bool { return x != 40 }),
		filter.Take[int](3),
	)

	if _, ok := piped.(*flow.FanIn[int]); !ok {
		t.Fatalf("expected a fused fan-in stream, got %T", piped)
	}
	if _, err := source.Next(ctx); err == nil {
		t.Fatalf("expected the claimed source to refuse Next")
	}

	result, err := flow.Slice(ctx, piped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []int{20, 60, 80}
	if !slices.Equal(result, expected) {
		t.Errorf("expected %v, got %v", expected, result)
	}
}

func TestApply(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	stream := flow.Apply(flow.FromSlice([]int{1, 2, 3}), transform.Select(func(x int) int { return x + 1 }))
	result, err := flow.Slice(ctx, stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(result, []int{2, 3, 4}) {
		t.Errorf("expected [2 3 4], got %v", result)
	}
}
