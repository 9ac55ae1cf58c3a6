package stats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AliB771/One4All/features/category"
	"github.com/AliB771/One4All/internal/config"
	"github.com/AliB771/One4All/internal/worker"
)

type JobRepo interface {
	Count(ctx context.Context) (int, error)
}

// Counter returns label counts for one category.
type Counter interface {
	Counts(ctx context.Context, name string) (map[string]int, error)
}

type CategoryStats struct {
	Name   string         `json:"name"`
	Table  string         `json:"table"`
	Counts map[string]int `json:"counts,omitempty"`
	Total  int            `json:"total"`
	Error  string         `json:"error,omitempty"`
}

type Stats struct {
	Categories []CategoryStats `json:"categories"`
	Rows       int             `json:"rows"`
	FailedJobs int             `json:"failed_jobs"`
}

type Service struct {
	cfg     *config.Config
	counter Counter
	jobRepo JobRepo
	workers int
}

func NewService(cfg *config.Config, c Counter, j JobRepo) *Service {
	workers := cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	return &Service{cfg: cfg, counter: c, jobRepo: j, workers: workers}
}

// Collect counts rows per label for every ClassList category. A category
// that cannot be read is reported with its error instead of failing the call.
// Cancelling ctx fails the call so partial counts are never reported.
func (s *Service) Collect(ctx context.Context) (*Stats, error) {
	names := s.cfg.DataProcessing.ClassList
	outcomes, _ := worker.RunBounded(ctx, s.workers, names, false, s.counter.Counts)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collect stats: %w", err)
	}

	byName := make(map[string]CategoryStats, len(outcomes))
	for _, o := range outcomes {
		cs := CategoryStats{Name: o.Name}
		if cat, err := s.cfg.Category(o.Name); err == nil {
			cs.Table = cat.TableName
		}
		if o.Err != nil {
			slog.WarnContext(ctx, "failed to count category", "category", o.Name, "error", o.Err)
			cs.Error = o.Err.Error()
		} else {
			cs.Counts = o.Value
			for _, n := range o.Value {
				cs.Total += n
			}
		}
		byName[o.Name] = cs
	}

	st := &Stats{}
	for _, name := range names {
		cs, ok := byName[name]
		if !ok {
			continue
		}
		st.Categories = append(st.Categories, cs)
		st.Rows += cs.Total
	}

	if s.jobRepo != nil {
		count, err := s.jobRepo.Count(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count jobs", "error", err)
			return nil, err
		}
		st.FailedJobs = count
	}
	return st, nil
}

// LoaderCounter opens a short-lived loader per call.
type LoaderCounter struct {
	Config *config.Config
}

func (c LoaderCounter) Counts(ctx context.Context, name string) (map[string]int, error) {
	cat, err := c.Config.Category(name)
	if err != nil {
		return nil, err
	}
	l, err := category.NewLoader(c.Config.RawDir(), cat)
	if err != nil {
		return nil, err
	}
	defer l.Close()
	return l.CategoryCounts(ctx)
}
