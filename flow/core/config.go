package core

import (
	"context"
)

// configKey is a typed context key for config injection.
// Each config type gets its own unique key.
type configKey[C any] struct{}

// WithConfig attaches a configuration value to the context, keyed by its
// type. Later calls with the same type override earlier ones. Packages built
// on core use it to carry settings that have to reach a stream when it
// starts rather than when it is built.
//
// Example:
//
//	ctx := core.WithConfig(ctx, meter) // read back by observe.WithMetrics
func WithConfig[C any](ctx context.Context, cfg C) context.Context {
	return context.WithValue(ctx, configKey[C]{}, cfg)
}

// GetConfig retrieves a configuration of type C from the context.
func GetConfig[C any](ctx context.Context) (C, bool) {
	if cfg, ok := ctx.Value(configKey[C]{}).(C); ok {
		return cfg, true
	}
	return *new(C), false
}
