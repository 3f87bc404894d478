package observe

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/lguimbarda/min-fanin/flow/core"
)

// StreamMetrics holds statistics about one consumption of a stream.
type StreamMetrics struct {
	// Counts
	Delivered  int64
	ValueCount int64
	ErrorCount int64

	// Timing
	StartTime     time.Time
	EndTime       time.Time
	FirstItemTime time.Time
	LastItemTime  time.Time

	// Throughput
	ItemsPerSecond float64

	// Gaps between consecutive deliveries
	MinGap time.Duration
	MaxGap time.Duration
	AvgGap time.Duration
}

// WithStreamMetrics attaches hooks for type T that gather StreamMetrics and
// hand them to onComplete when the stream is exhausted or released.
func WithStreamMetrics[T any](ctx context.Context, onComplete func(StreamMetrics)) context.Context {
	var (
		mu       sync.Mutex
		m        StreamMetrics
		totalGap time.Duration
	)
	deliver := func(isErr bool) {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if m.Delivered == 0 {
			m.FirstItemTime = now
		} else {
			gap := now.Sub(m.LastItemTime)
			if m.Delivered == 1 || gap < m.MinGap {
				m.MinGap = gap
			}
			if gap > m.MaxGap {
				m.MaxGap = gap
			}
			totalGap += gap
		}
		m.LastItemTime = now
		m.Delivered++
		if isErr {
			m.ErrorCount++
		} else {
			m.ValueCount++
		}
	}

	return core.WithHooks(ctx, core.Hooks[T]{
		OnStart: func() {
			mu.Lock()
			m.StartTime = time.Now()
			mu.Unlock()
		},
		OnValue: func(T) { deliver(false) },
		OnError: func(error) { deliver(true) },
		OnComplete: func() {
			mu.Lock()
			m.EndTime = time.Now()
			if d := m.EndTime.Sub(m.StartTime).Seconds(); d > 0 {
				m.ItemsPerSecond = float64(m.Delivered) / d
			}
			if m.Delivered > 1 {
				m.AvgGap = totalGap / time.Duration(m.Delivered-1)
			}
			final := m
			mu.Unlock()

			if onComplete != nil {
				onComplete(final)
			}
		},
	})
}

// Spy creates a Transformer that hands every record to inspector, including
// records an earlier operator has suppressed. On a fan-in stream inspector
// runs when the job completes, on the job's goroutine, and must be safe for
// concurrent use; otherwise it runs as the record is pulled and only sees
// what upstream delivers.
func Spy[T any](inspector func(core.Record[T])) core.Transformer[T, T] {
	return core.Operator[T, T](func(in core.Stream[T]) core.Stream[T] {
		stage := core.NewStage(func(rec core.Record[T]) core.Record[T] {
			inspector(rec)
			return rec
		})
		if out, ok := core.Fuse(in, stage); ok {
			return out
		}
		return core.Pull(func(ctx context.Context) (T, error) {
			v, err := in.Next(ctx)
			switch {
			case err == nil:
				inspector(core.Record[T]{Emit: true, Value: v})
			case !isControl(ctx, err):
				inspector(core.Record[T]{Emit: true, Err: err})
			}
			return v, err
		}, in.Close)
	})
}

func isControl(ctx context.Context, err error) bool {
	return errors.Is(err, core.ErrEndOfStream) || ctx.Err() != nil
}

// RateMeter tracks deliveries per second over a sliding window.
type RateMeter struct {
	mu         sync.Mutex
	window     time.Duration
	counts     []int64
	times      []time.Time
	totalCount int64
}

// NewRateMeter creates a new rate meter with the specified window size.
func NewRateMeter(window time.Duration) *RateMeter {
	return &RateMeter{
		window: window,
	}
}

// Add records count deliveries.
func (r *RateMeter) Add(count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.counts = append(r.counts, count)
	r.times = append(r.times, now)
	r.totalCount += count

	cutoff := now.Add(-r.window)
	for len(r.times) > 0 && r.times[0].Before(cutoff) {
		r.totalCount -= r.counts[0]
		r.counts = r.counts[1:]
		r.times = r.times[1:]
	}
}

// Rate returns the current rate per second.
func (r *RateMeter) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.times) == 0 {
		return 0
	}
	duration := time.Since(r.times[0]).Seconds()
	if duration <= 0 {
		return 0
	}
	return float64(r.totalCount) / duration
}

// TotalCount returns the total count within the window.
func (r *RateMeter) TotalCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalCount
}

// WithRateMeter attaches a hook for type T that adds every delivered value
// to meter.
func WithRateMeter[T any](ctx context.Context, meter *RateMeter) context.Context {
	return core.WithHooks(ctx, core.Hooks[T]{
		OnValue: func(T) { meter.Add(1) },
	})
}

// Histogram tracks the distribution of values.
type Histogram[T comparable] struct {
	mu     sync.RWMutex
	counts map[T]int64
	total  int64
}

// NewHistogram creates a new histogram.
func NewHistogram[T comparable]() *Histogram[T] {
	return &Histogram[T]{
		counts: make(map[T]int64),
	}
}

// Add records a value.
func (h *Histogram[T]) Add(value T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[value]++
	h.total++
}

// Count returns the count for a specific value.
func (h *Histogram[T]) Count(value T) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.counts[value]
}

// Total returns the total count.
func (h *Histogram[T]) Total() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Counts returns a copy of all counts.
func (h *Histogram[T]) Counts() map[T]int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return maps.Clone(h.counts)
}

// WithHistogram attaches a hook for type T that adds every delivered value
// to histogram.
func WithHistogram[T comparable](ctx context.Context, histogram *Histogram[T]) context.Context {
	return core.WithHooks(ctx, core.Hooks[T]{
		OnValue: histogram.Add,
	})
}
