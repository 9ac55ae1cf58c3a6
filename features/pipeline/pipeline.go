package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/AliB771/One4All/features/category"
	"github.com/AliB771/One4All/internal/config"
	"github.com/AliB771/One4All/internal/correlation"
	"github.com/AliB771/One4All/internal/dataset"
	"github.com/AliB771/One4All/internal/worker"
)

const DefaultMaxWorkers = 3

// Split names, in persistence order.
const (
	SplitTraining   = "training"
	SplitValidation = "validation"
	SplitTest       = "test"
)

var ErrCategoryFailed = errors.New("category processing failed")

// FailureRecorder persists a failed category so it can be retried later.
type FailureRecorder interface {
	Record(ctx context.Context, runID, category string, err error) error
}

// Artifact is the columnar file written for one category. Path is empty when
// the category produced no records.
type Artifact struct {
	Category string `json:"category"`
	Path     string `json:"path,omitempty"`
	Records  int    `json:"records"`
}

type SplitFile struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Records int    `json:"records"`
}

type Result struct {
	RunID string
	// Combined is the shuffled dataset before splitting.
	Combined  *dataset.Dataset
	Artifacts []Artifact
	Splits    []SplitFile
	Failed    []string
}

type Pipeline struct {
	cfg        *config.Config
	outputDir  string
	maxWorkers int
	failFast   bool
	maxBatches int
	publisher  worker.TaskPublisher
	recorder   FailureRecorder
	rng        *rand.Rand
}

type Option func(*Pipeline)

func WithOutputDir(dir string) Option {
	return func(p *Pipeline) {
		if dir != "" {
			p.outputDir = dir
		}
	}
}

// WithMaxWorkers bounds concurrent category tasks. Values below 1 mean 1.
func WithMaxWorkers(n int) Option {
	return func(p *Pipeline) {
		p.maxWorkers = max(n, 1)
	}
}

// WithFailFast selects between cancelling the run on the first failed
// category (true) and merging whatever succeeded (false).
func WithFailFast(v bool) Option {
	return func(p *Pipeline) {
		p.failFast = v
	}
}

func WithPublisher(pub worker.TaskPublisher) Option {
	return func(p *Pipeline) {
		if pub != nil {
			p.publisher = pub
		}
	}
}

func WithFailureRecorder(r FailureRecorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithMaxBatches caps the pages read per category, 0 reads everything.
func WithMaxBatches(n int) Option {
	return func(p *Pipeline) {
		p.maxBatches = max(n, 0)
	}
}

// WithRand sets the generator used for the merge shuffle and the splits.
func WithRand(rng *rand.Rand) Option {
	return func(p *Pipeline) {
		p.rng = rng
	}
}

// New builds a pipeline over cfg and makes sure the output directory exists.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	workers := cfg.MaxWorkers
	if workers == 0 {
		workers = DefaultMaxWorkers
	}

	p := &Pipeline{
		cfg:        cfg,
		outputDir:  cfg.DataProcessing.OutputDir,
		maxWorkers: max(workers, 1),
		failFast:   cfg.FailFast,
		publisher:  worker.NoopPublisher{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = dataset.NewRand(cfg.DataProcessing.Seed)
	}

	if p.outputDir == "" {
		return nil, fmt.Errorf("%w: output directory is empty", config.ErrMissingRequired)
	}
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return p, nil
}

func (p *Pipeline) OutputDir() string { return p.outputDir }

// categoryRand gives every category its own generator so per-category
// shuffles do not depend on scheduling.
func (p *Pipeline) categoryRand(name string) *rand.Rand {
	seed := p.cfg.DataProcessing.Seed
	if seed == nil {
		return dataset.NewRand(nil)
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	derived := *seed ^ int64(h.Sum64())
	return dataset.NewRand(&derived)
}

// ProcessCategory loads one category from its own connection and writes it
// to <OutputDir>/<Name>.parquet.
func (p *Pipeline) ProcessCategory(ctx context.Context, name string) (Artifact, error) {
	ctx = correlation.WithCategory(ctx, name)
	cat, err := p.cfg.Category(name)
	if err != nil {
		return Artifact{}, err
	}

	slog.InfoContext(ctx, "starting category")
	start := time.Now()

	loader, err := category.NewLoader(p.cfg.RawDir(), cat, category.WithRand(p.categoryRand(name)))
	if err != nil {
		return Artifact{}, err
	}
	defer loader.Close()

	ds, err := loader.LoadEncoded(ctx, category.LoadOptions{MaxBatches: p.maxBatches})
	if err != nil {
		return Artifact{}, err
	}
	if ds.Len() == 0 {
		slog.WarnContext(ctx, "category produced no records, skipping artifact")
		return Artifact{Category: name}, nil
	}

	path := filepath.Join(p.outputDir, cat.Name+".parquet")
	if err := dataset.WriteParquet(path, ds); err != nil {
		return Artifact{}, err
	}

	elapsed := time.Since(start)
	slog.InfoContext(ctx, "finished category", "path", path, "records", ds.Len(), "duration", elapsed)

	_ = worker.PublishEvent(ctx, p.publisher, config.TopicArtifactWritten, worker.ArtifactEvent{
		Kind:       worker.KindArtifact,
		RunID:      correlation.GetRunID(ctx),
		Category:   name,
		Path:       path,
		Records:    ds.Len(),
		DurationMS: elapsed.Milliseconds(),
	})
	return Artifact{Category: name, Path: path, Records: ds.Len()}, nil
}

// Run processes every ClassList category on the worker pool, then merges the
// artifacts and persists the training, validation and test splits.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ctx, runID := correlation.Ensure(ctx)
	names := p.cfg.DataProcessing.ClassList
	slog.InfoContext(ctx, "starting concurrent data pipeline", "categories", len(names), "workers", p.maxWorkers, "fail_fast", p.failFast)

	outcomes, poolErr := worker.RunBounded(ctx, p.maxWorkers, names, p.failFast, p.ProcessCategory)

	res := &Result{RunID: runID, Combined: dataset.New(nil)}
	for _, o := range outcomes {
		if o.Err != nil {
			if errors.Is(o.Err, context.Canceled) {
				continue
			}
			res.Failed = append(res.Failed, o.Name)
			p.recordFailure(ctx, runID, o.Name, o.Err)
			continue
		}
		if o.Value.Path != "" {
			res.Artifacts = append(res.Artifacts, o.Value)
		}
	}

	if err := ctx.Err(); err != nil {
		slog.WarnContext(ctx, "pipeline interrupted, skipping merge", "completed", len(res.Artifacts), "error", err)
		return res, fmt.Errorf("pipeline interrupted: %w", err)
	}

	var failErr error
	if poolErr != nil {
		failErr = fmt.Errorf("%w: %w", ErrCategoryFailed, poolErr)
		if p.failFast {
			slog.ErrorContext(ctx, "pipeline aborted", "error", poolErr)
			return res, failErr
		}
		slog.WarnContext(ctx, "continuing without failed categories", "failed", res.Failed)
	}

	if len(res.Artifacts) == 0 {
		slog.WarnContext(ctx, "no datasets were processed, exiting pipeline")
		return res, failErr
	}

	if err := p.merge(ctx, res); err != nil {
		return res, err
	}

	splits := make(map[string]int, len(res.Splits))
	for _, s := range res.Splits {
		splits[s.Name] = s.Records
	}
	_ = worker.PublishEvent(ctx, p.publisher, config.TopicPipelineCompleted, worker.CompletedEvent{
		Kind:      worker.KindCompleted,
		RunID:     runID,
		Artifacts: len(res.Artifacts),
		Combined:  res.Combined.Len(),
		Splits:    splits,
		Failed:    res.Failed,
	})

	slog.InfoContext(ctx, "concurrent data pipeline completed", "combined", res.Combined.Len(), "splits", splits)
	return res, failErr
}

func (p *Pipeline) recordFailure(ctx context.Context, runID, name string, err error) {
	ctx = correlation.WithCategory(ctx, name)
	slog.ErrorContext(ctx, "category failed", "error", err)
	if p.recorder == nil {
		return
	}
	if rerr := p.recorder.Record(ctx, runID, name, err); rerr != nil {
		slog.ErrorContext(ctx, "failed to record failed category", "error", rerr)
	}
}

// merge reloads the artifacts from disk in ClassList order, shuffles the
// union and writes the three splits.
func (p *Pipeline) merge(ctx context.Context, res *Result) error {
	ordered := slices.Clone(res.Artifacts)
	order := make(map[string]int, len(p.cfg.DataProcessing.ClassList))
	for i, n := range p.cfg.DataProcessing.ClassList {
		order[n] = i
	}
	slices.SortStableFunc(ordered, func(a, b Artifact) int { return order[a.Category] - order[b.Category] })

	slog.InfoContext(ctx, "loading and combining parquet datasets", "files", len(ordered))
	parts := make([]*dataset.Dataset, 0, len(ordered))
	for _, a := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		ds, err := dataset.ReadParquet(a.Path)
		if err != nil {
			return err
		}
		parts = append(parts, ds)
	}
	combined := dataset.Concat(parts...)
	combined.Shuffle(p.rng)
	res.Combined = combined

	slog.InfoContext(ctx, "splitting dataset into train/valid/test", "records", combined.Len())
	train, rest, err := combined.TrainTestSplit(p.cfg.DataProcessing.TestSize, p.rng)
	if err != nil {
		return fmt.Errorf("split test fraction: %w", err)
	}
	validation, test, err := rest.TrainTestSplit(p.cfg.DataProcessing.ValidationSize, p.rng)
	if err != nil {
		return fmt.Errorf("split validation fraction: %w", err)
	}

	for _, s := range []struct {
		name string
		ds   *dataset.Dataset
	}{
		{SplitTraining, train},
		{SplitValidation, validation},
		{SplitTest, test},
	} {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := SplitPath(p.cfg.DataProcessing.BasePath, s.name)
		if err := dataset.WriteParquet(path, s.ds); err != nil {
			return err
		}
		slog.InfoContext(ctx, "split saved", "split", s.name, "path", path, "records", s.ds.Len())
		res.Splits = append(res.Splits, SplitFile{Name: s.name, Path: path, Records: s.ds.Len()})
	}
	return nil
}

// SplitPath is <base>/<split>/router/<split>_dataset.parquet.
func SplitPath(base, split string) string {
	return filepath.Join(base, split, "router", split+"_dataset.parquet")
}
