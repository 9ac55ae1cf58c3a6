package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"github.com/AliB771/One4All/internal/correlation"
)

// EventSink receives decoded pipeline events.
type EventSink interface {
	OnArtifact(ctx context.Context, e ArtifactEvent) error
	OnCompleted(ctx context.Context, e CompletedEvent) error
}

// EventConsumer is an nsq.Handler for both pipeline topics.
type EventConsumer struct {
	sink EventSink
}

func NewEventConsumer(s EventSink) *EventConsumer {
	return &EventConsumer{sink: s}
}

func (h *EventConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var head struct {
		Kind  string `json:"kind"`
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(m.Body, &head); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	ctx := context.Background()
	if head.RunID != "" {
		ctx = correlation.WithRunID(ctx, head.RunID)
	}

	switch head.Kind {
	case KindArtifact:
		var e ArtifactEvent
		if err := json.Unmarshal(m.Body, &e); err != nil {
			slog.ErrorContext(ctx, "poison pill: bad artifact event", "error", err)
			return nil
		}
		return h.sink.OnArtifact(correlation.WithCategory(ctx, e.Category), e)
	case KindCompleted:
		var e CompletedEvent
		if err := json.Unmarshal(m.Body, &e); err != nil {
			slog.ErrorContext(ctx, "poison pill: bad completed event", "error", err)
			return nil
		}
		return h.sink.OnCompleted(ctx, e)
	default:
		slog.WarnContext(ctx, "unknown event kind", "kind", head.Kind)
		return nil
	}
}

// LogSink writes every event to the default logger.
type LogSink struct{}

func (LogSink) OnArtifact(ctx context.Context, e ArtifactEvent) error {
	slog.InfoContext(ctx, "artifact written", "path", e.Path, "records", e.Records, "duration_ms", e.DurationMS)
	return nil
}

func (LogSink) OnCompleted(ctx context.Context, e CompletedEvent) error {
	slog.InfoContext(ctx, "pipeline completed", "artifacts", e.Artifacts, "combined", e.Combined, "splits", e.Splits, "failed", e.Failed)
	return nil
}
