package category

import (
	"context"
	"log/slog"

	"github.com/AliB771/One4All/internal/dataset"
	"github.com/AliB771/One4All/internal/text"
)

// ExplodeChunks expands the serialized chunk list of every row into one
// record per chunk. A row whose list cannot be parsed contributes nothing.
func (l *Loader) ExplodeChunks(ctx context.Context, rows []Row) []dataset.Record {
	repeatTitle := l.cfg.ChunkRepeatTitle && l.cfg.TitleColumn != ""

	var out []dataset.Record
	for i, row := range rows {
		raw := row.String(l.cfg.ChunkColumn)
		if raw == "" {
			continue
		}
		chunks, err := text.ParseList(raw)
		if err != nil {
			slog.WarnContext(ctx, "failed to parse chunk list",
				"table", l.cfg.TableName, "row", i, "error", err)
			continue
		}

		title := row.String(l.cfg.TitleColumn)
		for _, chunk := range chunks {
			if repeatTitle && row.Has(l.cfg.TitleColumn) {
				chunk = text.WithTitle(title, chunk)
			}
			if !text.KeepChunk(chunk, l.cfg.MinChunkWords) {
				continue
			}
			out = append(out, dataset.Record{
				SourceLabel: row.String(l.cfg.LabelColumn),
				Title:       title,
				Chunk:       chunk,
			})
		}
	}
	return out
}

// ChunkFullText splits the text column of every row into word windows.
func (l *Loader) ChunkFullText(rows []Row) []dataset.Record {
	opts := text.WindowOptions{
		MaxWords:    l.cfg.MaxWordsOrDefault(),
		MinWords:    l.cfg.MinChunkWords,
		RepeatTitle: l.cfg.ChunkRepeatTitle,
	}

	var out []dataset.Record
	for _, row := range rows {
		title := row.String(l.cfg.TitleColumn)
		for _, chunk := range text.SplitWords(row.String(l.cfg.TextColumn), title, opts) {
			out = append(out, dataset.Record{
				SourceLabel: row.String(l.cfg.LabelColumn),
				Title:       title,
				Chunk:       chunk,
			})
		}
	}
	return out
}
