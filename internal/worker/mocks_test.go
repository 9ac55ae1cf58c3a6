package worker_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/AliB771/One4All/internal/worker"
)

type MockTaskPublisher struct{ mock.Mock }

func (m *MockTaskPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}

type MockEventSink struct{ mock.Mock }

func (m *MockEventSink) OnArtifact(ctx context.Context, e worker.ArtifactEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEventSink) OnCompleted(ctx context.Context, e worker.CompletedEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
