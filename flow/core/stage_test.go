package core

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"
)

func mustFuse[IN, OUT any](t *testing.T, s Stream[IN], st Stage[IN, OUT]) Stream[OUT] {
	t.Helper()
	out, ok := Fuse(s, st)
	if !ok {
		t.Fatalf("Fuse() on %T failed", s)
	}
	return out
}

func TestFuse_Stages(t *testing.T) {
	const unit = 10 * time.Millisecond

	tests := []struct {
		name  string
		build func(Stream[int]) Stream[int]
		want  []int
	}{
		{
			name:  "filter",
			build: func(s Stream[int]) Stream[int] { return mustFuse(t, s, Filter(func(v int) bool { return v%2 == 1 })) },
			want:  []int{1, 3, 5},
		},
		{
			name:  "transform",
			build: func(s Stream[int]) Stream[int] { return mustFuse(t, s, Transform(func(v int) int { return v * 10 })) },
			want:  []int{10, 20, 30, 40, 50},
		},
		{
			name: "stop when",
			build: func(s Stream[int]) Stream[int] {
				return mustFuse(t, s, StopWhen(func(v int) bool { return v == 3 }))
			},
			want: []int{1, 2, 3},
		},
		{
			name: "stop unless",
			build: func(s Stream[int]) Stream[int] {
				return mustFuse(t, s, StopUnless(func(v int) bool { return v < 3 }))
			},
			want: []int{1, 2},
		},
		{
			name: "filter then stop when",
			build: func(s Stream[int]) Stream[int] {
				s = mustFuse(t, s, Filter(func(v int) bool { return v != 2 }))
				return mustFuse(t, s, StopWhen(func(v int) bool { return v >= 4 }))
			},
			want: []int{1, 3, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			got, err := Slice(ctx, tt.build(WhenDone(fixture(unit)...)))
			if err != nil {
				t.Fatalf("Slice() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestFuse_ChangesType(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s := mustFuse(t, Stream[int](WhenDone(ready(2, nil))), TryTransform(func(v int) (string, error) {
		if v != 2 {
			return "", errors.New("unexpected")
		}
		return "two", nil
	}))
	v, err := First(ctx, s)
	if err != nil || v != "two" {
		t.Fatalf("First() = %q, %v, want two, nil", v, err)
	}
}

func TestFuse_FailuresBypassStages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	boom := errors.New("boom")
	var calls atomic.Int32
	s := mustFuse(t, Stream[int](WhenDone(ready(0, boom))), Filter(func(int) bool {
		calls.Add(1)
		return false
	}))

	if _, err := s.Next(ctx); !errors.Is(err, boom) {
		t.Fatalf("Next() error = %v, want boom", err)
	}
	if calls.Load() != 0 {
		t.Errorf("predicate called %d times for a failed job", calls.Load())
	}
}

func TestFuse_PanicBecomesFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s := mustFuse(t, Stream[int](WhenDone(timed(0, 1), timed(20*time.Millisecond, 2))), Transform(func(v int) int {
		if v == 1 {
			panic("bad value")
		}
		return v
	}))

	_, err := s.Next(ctx)
	var perr ErrPanic
	if !errors.As(err, &perr) || perr.Value != "bad value" {
		t.Fatalf("Next() error = %v, want ErrPanic(bad value)", err)
	}
	v, err := s.Next(ctx)
	if err != nil || v != 2 {
		t.Fatalf("Next() = %d, %v, want 2, nil", v, err)
	}
}

func TestFuse_NotFusable(t *testing.T) {
	if _, ok := Fuse(Opaque[int](WhenDone[int]()), Filter(func(int) bool { return true })); ok {
		t.Error("Fuse() on an opaque stream succeeded")
	}
	if _, ok := Fuse(FromSlice([]int{1}), Filter(func(int) bool { return true })); ok {
		t.Error("Fuse() on a slice stream succeeded")
	}

	s := WhenDone[int]()
	s.Start(context.Background())
	if _, ok := Fuse(Stream[int](s), Filter(func(int) bool { return true })); ok {
		t.Error("Fuse() on a started stream succeeded")
	}
}

// A sequenced counter decides in queue order, so exactly n records make it
// to the consumer even when every job completes at once.
func TestFuse_SequencedStopIsExact(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const total, n = 2000, 7
	for round := 0; round < 20; round++ {
		jobs := make([]Job[int], total)
		for i := range jobs {
			jobs[i] = ready(i, nil)
		}

		var taken atomic.Int64
		s := mustFuse(t, Stream[int](FromJobs(jobs)), StopWhen(func(int) bool {
			return taken.Add(1) >= n
		}).Sequenced())

		got, err := Slice(ctx, s)
		if err != nil {
			t.Fatalf("Slice() error = %v", err)
		}
		if len(got) != n {
			t.Fatalf("round %d: got %d values, want %d", round, len(got), n)
		}
		sort.Ints(got)
		for i := 1; i < len(got); i++ {
			if got[i] == got[i-1] {
				t.Fatalf("round %d: duplicate value %d", round, got[i])
			}
		}
	}
}
