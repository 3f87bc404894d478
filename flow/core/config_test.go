package core

import (
	"context"
	"testing"
)

type limitConfig struct {
	Limit int
}

type labelConfig struct {
	Name string
}

func TestWithConfig(t *testing.T) {
	t.Run("stores config in context", func(t *testing.T) {
		ctx := context.Background()
		cfg := &limitConfig{Limit: 42}

		got, ok := GetConfig[*limitConfig](WithConfig(ctx, cfg))
		if !ok {
			t.Fatal("GetConfig() returned false, want true")
		}
		if got != cfg {
			t.Errorf("GetConfig() = %v, want %v", got, cfg)
		}
	})

	t.Run("overwrites same type", func(t *testing.T) {
		ctx := WithConfig(context.Background(), limitConfig{Limit: 1})
		ctx = WithConfig(ctx, limitConfig{Limit: 2})

		got, ok := GetConfig[limitConfig](ctx)
		if !ok || got.Limit != 2 {
			t.Errorf("GetConfig() = %v, %v, want {2}, true", got, ok)
		}
	})

	t.Run("different types are independent", func(t *testing.T) {
		ctx := WithConfig(context.Background(), limitConfig{Limit: 42})
		ctx = WithConfig(ctx, labelConfig{Name: "shards"})

		limit, ok1 := GetConfig[limitConfig](ctx)
		label, ok2 := GetConfig[labelConfig](ctx)
		if !ok1 || limit.Limit != 42 {
			t.Errorf("limitConfig not found or wrong value")
		}
		if !ok2 || label.Name != "shards" {
			t.Errorf("labelConfig not found or wrong value")
		}
	})

	t.Run("value and pointer types are distinct keys", func(t *testing.T) {
		ctx := WithConfig(context.Background(), limitConfig{Limit: 3})
		if _, ok := GetConfig[*limitConfig](ctx); ok {
			t.Error("GetConfig[*limitConfig]() found a value config")
		}
	})
}

func TestGetConfig_Missing(t *testing.T) {
	got, ok := GetConfig[limitConfig](context.Background())
	if ok {
		t.Error("GetConfig() returned true for missing config")
	}
	if got != (limitConfig{}) {
		t.Errorf("GetConfig() = %v, want zero value", got)
	}
}
