// Package benchmarks compares min-fanin against popular Go stream
// processing libraries.
package benchmarks

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/lguimbarda/min-fanin/flow"
	"github.com/lguimbarda/min-fanin/flow/job"
)

// Test data sizes
const (
	SmallSize  = 100
	MediumSize = 1_000
	LargeSize  = 10_000
)

// generateInts creates a slice of integers for benchmarking.
func generateInts(n int) []int {
	data := make([]int, n)
	for i := range data {
		data[i] = i
	}
	return data
}

// readyJobs returns n jobs that have already completed. A fan-in queues
// them by completion stamp without registering callbacks, so this measures
// the fan-in machinery rather than the work.
func readyJobs(n int) []flow.Job[int] {
	jobs := make([]flow.Job[int], n)
	for i := range jobs {
		jobs[i] = job.Value(i)
	}
	return jobs
}

// jitter returns a random pause shorter than d.
func jitter(d time.Duration) time.Duration {
	return time.Duration(rand.Int64N(int64(d)))
}

func square(x int) int {
	return x * x
}

func isEven(x int) bool {
	return x%2 == 0
}

func add(a, b int) int {
	return a + b
}

// Background context for benchmarks
var ctx = context.Background()
