package observe

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lguimbarda/min-fanin/flow/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterConfig carries the meter WithMetrics records to.
type meterConfig struct {
	meter metric.Meter
}

// WithMeter sets the OpenTelemetry meter used by WithMetrics for streams
// started with the returned context.
func WithMeter(ctx context.Context, meter metric.Meter) context.Context {
	return core.WithConfig(ctx, meterConfig{meter: meter})
}

// WithMetrics attaches hooks for type T that record stream activity on the
// meter set by WithMeter (a no-op meter if none was set):
//
//   - fanin.values: values delivered
//   - fanin.failures: failed jobs delivered
//   - fanin.arrival_ms: time from stream start to each delivery
//   - fanin.completed: streams that reached exhaustion or were released
//
// Every measurement carries a "stream" attribute with the given name.
func WithMetrics[T any](ctx context.Context, name string) (context.Context, error) {
	meter := noop.NewMeterProvider().Meter("min-fanin")
	if cfg, ok := core.GetConfig[meterConfig](ctx); ok && cfg.meter != nil {
		meter = cfg.meter
	}

	values, err := meter.Int64Counter("fanin.values", metric.WithDescription("values delivered to the consumer"))
	if err != nil {
		return ctx, fmt.Errorf("create values counter: %w", err)
	}
	failures, err := meter.Int64Counter("fanin.failures", metric.WithDescription("failed jobs delivered to the consumer"))
	if err != nil {
		return ctx, fmt.Errorf("create failures counter: %w", err)
	}
	arrival, err := meter.Int64Histogram("fanin.arrival_ms",
		metric.WithDescription("time from stream start to delivery"),
		metric.WithUnit("ms"))
	if err != nil {
		return ctx, fmt.Errorf("create arrival histogram: %w", err)
	}
	completed, err := meter.Int64Counter("fanin.completed", metric.WithDescription("streams exhausted or released"))
	if err != nil {
		return ctx, fmt.Errorf("create completed counter: %w", err)
	}

	attrs := metric.WithAttributes(attribute.String("stream", name))
	var started atomic.Int64
	since := func() int64 {
		return time.Since(time.Unix(0, started.Load())).Milliseconds()
	}

	// Instruments outlive the caller's context; do not let its cancellation
	// leak into exporters.
	mctx := context.WithoutCancel(ctx)
	return core.WithHooks(ctx, core.Hooks[T]{
		OnStart: func() {
			started.Store(time.Now().UnixNano())
		},
		OnValue: func(T) {
			values.Add(mctx, 1, attrs)
			arrival.Record(mctx, since(), attrs)
		},
		OnError: func(error) {
			failures.Add(mctx, 1, attrs)
			arrival.Record(mctx, since(), attrs)
		},
		OnComplete: func() {
			completed.Add(mctx, 1, attrs)
		},
	}), nil
}
