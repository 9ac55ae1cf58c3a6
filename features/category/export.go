package category

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AliB771/One4All/internal/text"
)

// SectionsColumn optionally holds a JSON array of question/answer pairs.
const SectionsColumn = "sections"

type InstructionRecord struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

type section struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ExportJSONL writes instruction records, one JSON object per line, and
// returns how many were written.
func (l *Loader) ExportJSONL(ctx context.Context, w io.Writer, opts PageOptions) (int, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	written := 0
	for page, err := range l.Pages(ctx, opts) {
		if err != nil {
			return written, err
		}
		for _, row := range page {
			for _, rec := range l.instructionRecords(ctx, row) {
				if err := enc.Encode(rec); err != nil {
					return written, fmt.Errorf("encode record: %w", err)
				}
				written++
			}
		}
	}
	return written, nil
}

func (l *Loader) instructionRecords(ctx context.Context, row Row) []InstructionRecord {
	title := row.String(l.cfg.TitleColumn)

	if raw := row.String(SectionsColumn); raw != "" {
		var sections []section
		if err := json.Unmarshal([]byte(raw), &sections); err != nil {
			slog.WarnContext(ctx, "error parsing sections JSON", "table", l.cfg.TableName, "error", err)
		} else if len(sections) > 0 {
			var out []InstructionRecord
			for _, s := range sections {
				q := strings.TrimSpace(s.Question)
				a := strings.TrimSpace(s.Answer)
				if q == "" || a == "" {
					continue
				}
				out = append(out, InstructionRecord{Input: text.WithTitle(title, q), Output: a})
			}
			return out
		}
	}

	return []InstructionRecord{{Input: title, Output: row.String(l.cfg.TextColumn)}}
}

// ExportJSONLFile writes ExportJSONL output to path, creating parent dirs.
func (l *Loader) ExportJSONLFile(ctx context.Context, path string, opts PageOptions) (n int, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	n, err = l.ExportJSONL(ctx, bw, opts)
	if err != nil {
		return n, err
	}
	if err := bw.Flush(); err != nil {
		return n, err
	}

	slog.InfoContext(ctx, "exported data", "path", path, "records", n)
	return n, nil
}
