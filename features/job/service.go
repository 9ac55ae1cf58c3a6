package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AliB771/One4All/features/pipeline"
	"github.com/AliB771/One4All/internal/correlation"
)

// CategoryProcessor reprocesses a single category. *pipeline.Pipeline
// satisfies it.
type CategoryProcessor interface {
	ProcessCategory(ctx context.Context, name string) (pipeline.Artifact, error)
}

type Service struct {
	repo Repository
	proc CategoryProcessor
}

func NewService(repo Repository, proc CategoryProcessor) *Service {
	return &Service{repo: repo, proc: proc}
}

// Record stores a failed category. It implements pipeline.FailureRecorder.
func (s *Service) Record(ctx context.Context, runID, category string, cause error) error {
	j := &Job{RunID: runID, Category: category, Error: cause.Error()}
	if err := s.repo.Save(ctx, j); err != nil {
		return fmt.Errorf("save failed job: %w", err)
	}
	slog.InfoContext(ctx, "recorded failed category", "job_id", j.ID)
	return nil
}

func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.repo.List(ctx)
}

// Retry reprocesses the job's category and removes the job on success. On
// failure the retry counter is bumped and the job kept.
func (s *Service) Retry(ctx context.Context, id string) (pipeline.Artifact, error) {
	// 1. Get Job
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return pipeline.Artifact{}, err
	}
	if s.proc == nil {
		return pipeline.Artifact{}, fmt.Errorf("no category processor configured")
	}

	ctx = correlation.WithRunID(ctx, j.RunID)
	ctx = correlation.WithCategory(ctx, j.Category)

	// 2. Reprocess
	artifact, err := s.proc.ProcessCategory(ctx, j.Category)
	if err != nil {
		if merr := s.repo.MarkRetried(ctx, id, err.Error()); merr != nil {
			slog.ErrorContext(ctx, "failed to update job", "job_id", id, "error", merr)
		}
		return pipeline.Artifact{}, fmt.Errorf("retry %s: %w", j.Category, err)
	}

	// 3. Delete Job
	if err := s.repo.Delete(ctx, id); err != nil {
		return artifact, err
	}
	slog.InfoContext(ctx, "retried category", "job_id", id, "path", artifact.Path)
	return artifact, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
