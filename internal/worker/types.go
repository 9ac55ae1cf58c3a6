package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// TaskPublisher is satisfied by *nsq.Producer.
type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// NoopPublisher drops every message. Used when no nsqd is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(string, []byte) error { return nil }

// PublishEvent marshals v and publishes it on topic. Publishing is best
// effort: failures are logged and returned but never retried.
func PublishEvent(ctx context.Context, pub TaskPublisher, topic string, v any) error {
	if pub == nil {
		return nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	if err := pub.Publish(topic, body); err != nil {
		slog.WarnContext(ctx, "failed to publish event", "topic", topic, "error", err)
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
