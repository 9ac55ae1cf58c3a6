// Package correlation carries the pipeline run id and the category being
// processed through a context so log records and events can be joined.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

type key int

const (
	RunIDKey key = iota
	CategoryKey
)

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// Ensure returns ctx unchanged when it already has a run id, otherwise a
// child context carrying a new one.
func Ensure(ctx context.Context) (context.Context, string) {
	if id, ok := ctx.Value(RunIDKey).(string); ok && id != "" {
		return ctx, id
	}
	id := NewRunID()
	return WithRunID(ctx, id), id
}

func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunIDKey, id)
}

func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return "unknown"
}

func WithCategory(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, CategoryKey, name)
}

func GetCategory(ctx context.Context) string {
	if name, ok := ctx.Value(CategoryKey).(string); ok {
		return name
	}
	return ""
}
