package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/AliB771/One4All/internal/correlation"
	"github.com/AliB771/One4All/internal/worker"
)

func TestEventConsumer_HandleMessage(t *testing.T) {
	t.Run("Artifact", func(t *testing.T) {
		sink := new(MockEventSink)
		consumer := worker.NewEventConsumer(sink)

		event := worker.ArtifactEvent{Kind: worker.KindArtifact, RunID: "run-1", Category: "medical", Path: "out/medical.parquet", Records: 12}
		body, _ := json.Marshal(event)

		sink.On("OnArtifact", mock.MatchedBy(func(ctx context.Context) bool {
			return correlation.GetRunID(ctx) == "run-1" && correlation.GetCategory(ctx) == "medical"
		}), event).Return(nil)

		assert.NoError(t, consumer.HandleMessage(&nsq.Message{Body: body}))
		sink.AssertExpectations(t)
	})

	t.Run("CompletedRetriesOnSinkError", func(t *testing.T) {
		sink := new(MockEventSink)
		consumer := worker.NewEventConsumer(sink)

		event := worker.CompletedEvent{Kind: worker.KindCompleted, RunID: "run-2", Artifacts: 2, Combined: 200, Splits: map[string]int{"training": 160}}
		body, _ := json.Marshal(event)
		sink.On("OnCompleted", mock.Anything, event).Return(errors.New("down"))

		assert.Error(t, consumer.HandleMessage(&nsq.Message{Body: body}))
	})

	t.Run("UnknownKind", func(t *testing.T) {
		sink := new(MockEventSink)
		consumer := worker.NewEventConsumer(sink)

		assert.NoError(t, consumer.HandleMessage(&nsq.Message{Body: []byte(`{"kind":"other"}`)}))
		sink.AssertNotCalled(t, "OnArtifact", mock.Anything, mock.Anything)
		sink.AssertNotCalled(t, "OnCompleted", mock.Anything, mock.Anything)
	})
}

func TestEventConsumer_PoisonPill(t *testing.T) {
	consumer := worker.NewEventConsumer(new(MockEventSink))

	assert.NoError(t, consumer.HandleMessage(&nsq.Message{Body: []byte("invalid json")}))
	assert.NoError(t, consumer.HandleMessage(&nsq.Message{}))
}

func TestPublishEvent(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		pub := new(MockTaskPublisher)
		pub.On("Publish", "pipeline.artifact", mock.MatchedBy(func(body []byte) bool {
			var e worker.ArtifactEvent
			return json.Unmarshal(body, &e) == nil && e.Category == "legal"
		})).Return(nil)

		err := worker.PublishEvent(context.Background(), pub, "pipeline.artifact", worker.ArtifactEvent{Kind: worker.KindArtifact, Category: "legal"})
		assert.NoError(t, err)
		pub.AssertExpectations(t)
	})

	t.Run("PublisherError", func(t *testing.T) {
		pub := new(MockTaskPublisher)
		pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nsqd unavailable"))

		err := worker.PublishEvent(context.Background(), pub, "pipeline.completed", worker.CompletedEvent{})
		assert.ErrorContains(t, err, "nsqd unavailable")
	})

	t.Run("NilAndNoop", func(t *testing.T) {
		assert.NoError(t, worker.PublishEvent(context.Background(), nil, "t", 1))
		assert.NoError(t, worker.PublishEvent(context.Background(), worker.NoopPublisher{}, "t", 1))
	})
}
