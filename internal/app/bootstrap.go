package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AliB771/One4All/internal/config"
	"github.com/AliB771/One4All/internal/ledger"
	"github.com/AliB771/One4All/internal/worker"

	"github.com/nsqio/go-nsq"
)

type Dependencies struct {
	Ledger      *sql.DB
	Publisher   worker.TaskPublisher
	NSQProducer *nsq.Producer
}

// Bootstrap opens the failed-job ledger and, when NSQD_HOST is set, an NSQ
// producer. An unreachable nsqd degrades to a no-op publisher because events
// are informational.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	// Ledger
	db, err := ledger.Open(ctx, cfg.LedgerPath)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{Ledger: db, Publisher: worker.NoopPublisher{}}
	if cfg.NSQDHost == "" {
		slog.DebugContext(ctx, "NSQD_HOST not set, events disabled")
		return deps, nil
	}

	// NSQ Producer
	producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("nsq producer error: %w", err)
	}
	producer.SetLogger(nsqLogAdapter{slog.Default()}, nsq.LogLevelWarning)

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	err = WithRetry(ctx, cfg.BootstrapRetryAttempts, retryDelay, func(context.Context) error {
		return producer.Ping()
	})
	if err != nil {
		slog.WarnContext(ctx, "nsqd unreachable, events disabled", "host", cfg.NSQDHost, "error", err)
		producer.Stop()
		return deps, nil
	}

	if cfg.NSQDHTTP != "" {
		createTopics(ctx, cfg.NSQDHTTP)
	}

	deps.NSQProducer = producer
	deps.Publisher = producer
	return deps, nil
}

// nsqLogAdapter routes go-nsq's line logger into slog.
type nsqLogAdapter struct {
	l *slog.Logger
}

func (a nsqLogAdapter) Output(_ int, s string) error {
	a.l.Warn("nsq", "message", strings.TrimSpace(s))
	return nil
}

func (d *Dependencies) Close() error {
	if d.NSQProducer != nil {
		d.NSQProducer.Stop()
	}
	if d.Ledger != nil {
		return d.Ledger.Close()
	}
	return nil
}

func createTopics(ctx context.Context, nsqdHTTP string) {
	client := &http.Client{Timeout: 5 * time.Second}
	for _, topic := range []string{config.TopicArtifactWritten, config.TopicPipelineCompleted} {
		u := fmt.Sprintf("http://%s/topic/create?topic=%s", nsqdHTTP, url.QueryEscape(topic))
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
		if err != nil {
			slog.WarnContext(ctx, "failed to create NSQ topic", "topic", topic, "error", err)
			continue
		}
		resp, err := client.Do(req) // #nosec G107 -- URL is built from internal NSQ config, not user input
		if err != nil {
			slog.WarnContext(ctx, "failed to create NSQ topic", "topic", topic, "error", err)
			continue
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.WarnContext(ctx, "failed to close NSQ topic creation response body", "error", closeErr)
		}
	}
}

// WithRetry calls fn up to attempts times, sleeping delay between tries.
func WithRetry(ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		slog.WarnContext(ctx, "attempt failed, retrying...", "attempt", i+1, "error", err)
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(delay):
			}
		}
	}
	return err
}
