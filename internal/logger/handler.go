package logger

import (
	"context"
	"log/slog"

	"github.com/AliB771/One4All/internal/correlation"
)

type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(correlation.RunIDKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("run_id", id))
	}
	if name := correlation.GetCategory(ctx); name != "" {
		r.AddAttrs(slog.String("category", name))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}
