package category

import (
	"context"
	"log/slog"

	"github.com/AliB771/One4All/internal/dataset"
)

// LoadOptions override the category configuration for a single load.
// Nil fields fall back to the configured values.
type LoadOptions struct {
	AllowedCategories []string
	MaxBatches        int
	UseChunks         *bool
	Label             *int64
}

// LoadEncoded reads every page, chunks it and attaches encoded labels.
func (l *Loader) LoadEncoded(ctx context.Context, opts LoadOptions) (*dataset.Dataset, error) {
	useChunks := l.cfg.UseChunks
	if opts.UseChunks != nil {
		useChunks = *opts.UseChunks
	}
	fixed := l.cfg.Label
	if opts.Label != nil {
		fixed = opts.Label
	}
	explode := useChunks && l.cfg.ChunkColumn != ""

	pageOpts := PageOptions{AllowedCategories: opts.AllowedCategories, MaxBatches: opts.MaxBatches}
	if explode {
		pageOpts.require = []string{l.cfg.ChunkColumn}
	}

	var records []dataset.Record
	batches := 0
	for page, err := range l.Pages(ctx, pageOpts) {
		if err != nil {
			return nil, err
		}
		batches++
		if explode {
			records = append(records, l.ExplodeChunks(ctx, page)...)
		} else {
			records = append(records, l.ChunkFullText(page)...)
		}
		slog.DebugContext(ctx, "processed batch", "table", l.cfg.TableName, "batch", batches, "rows", len(page), "records", len(records))
	}

	sourceLabels := make([]string, len(records))
	for i := range records {
		sourceLabels[i] = records[i].SourceLabel
	}
	encoded := l.encoder.FitTransform(sourceLabels)
	for i := range records {
		if fixed != nil {
			records[i].Label = *fixed
		} else {
			records[i].Label = encoded[i]
		}
	}

	ds := dataset.New(records)
	if l.cfg.Shuffle {
		ds.Shuffle(l.rng)
	}

	slog.InfoContext(ctx, "loaded dataset", "table", l.cfg.TableName, "samples", ds.Len(), "batches", batches)
	return ds, nil
}
