package app

import (
	"context"
	"fmt"

	"github.com/AliB771/One4All/features/category"
	"github.com/AliB771/One4All/features/job"
	"github.com/AliB771/One4All/features/pipeline"
	"github.com/AliB771/One4All/features/stats"
	"github.com/AliB771/One4All/internal/config"
	"github.com/AliB771/One4All/internal/dataset"
)

type App struct {
	Config   *config.Config
	Pipeline *pipeline.Pipeline
	Jobs     *job.Service
	Stats    *stats.Service
}

// New wires the features over deps. opts are applied to the pipeline after
// the configured defaults.
func New(cfg *config.Config, deps *Dependencies, opts ...pipeline.Option) (*App, error) {
	// Feature: Job
	jobRepo := job.NewSQLiteRepo(deps.Ledger)

	base := []pipeline.Option{
		pipeline.WithPublisher(deps.Publisher),
	}
	base = append(base, opts...)

	// Retries run one category at a time and must not record themselves
	// again, so they get a pipeline without a failure recorder.
	retryPipeline, err := pipeline.New(cfg, base...)
	if err != nil {
		return nil, err
	}
	jobService := job.NewService(jobRepo, retryPipeline)

	// Feature: Pipeline
	p, err := pipeline.New(cfg, append(base, pipeline.WithFailureRecorder(jobService))...)
	if err != nil {
		return nil, err
	}

	// Feature: Stats
	statsService := stats.NewService(cfg, stats.LoaderCounter{Config: cfg}, jobRepo)

	return &App{
		Config:   cfg,
		Pipeline: p,
		Jobs:     jobService,
		Stats:    statsService,
	}, nil
}

func (a *App) Run(ctx context.Context) (*pipeline.Result, error) {
	return a.Pipeline.Run(ctx)
}

// Loader opens a loader for one configured category. The caller closes it.
func (a *App) Loader(name string) (*category.Loader, error) {
	cat, err := a.Config.Category(name)
	if err != nil {
		return nil, err
	}
	return category.NewLoader(a.Config.RawDir(), cat, category.WithRand(dataset.NewRand(a.Config.DataProcessing.Seed)))
}

// FitEncoder loads the category and saves its fitted label encoder to path.
func (a *App) FitEncoder(ctx context.Context, name, path string) (string, error) {
	l, err := a.Loader(name)
	if err != nil {
		return "", err
	}
	defer l.Close()

	if _, err := l.LoadEncoded(ctx, category.LoadOptions{}); err != nil {
		return "", fmt.Errorf("load %s: %w", name, err)
	}
	return l.SaveLabelEncoder(path)
}
