package category

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"log/slog"
	"strings"
)

type PageOptions struct {
	// AllowedCategories restricts rows to these label values. Nil falls back
	// to the category configuration; an empty non-nil slice disables the filter.
	AllowedCategories []string
	// MaxBatches caps the number of pages, 0 means no cap.
	MaxBatches int

	// extra columns the caller reads on top of the configured text, label
	// and title columns.
	require []string
}

// checkColumns fails when a configured column is not in the result set.
func (l *Loader) checkColumns(cols []string, extra []string) error {
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c] = true
	}
	want := append([]string{l.cfg.TextColumn, l.cfg.LabelColumn, l.cfg.TitleColumn}, extra...)
	for _, c := range want {
		if c != "" && !have[c] {
			return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, l.cfg.TableName, c)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// CategoryCounts returns the number of rows per label value.
func (l *Loader) CategoryCounts(ctx context.Context) (map[string]int, error) {
	db, err := l.conn()
	if err != nil {
		return nil, err
	}

	col := quoteIdent(l.cfg.LabelColumn)
	query := fmt.Sprintf(`SELECT %s, COUNT(*) AS count FROM %s GROUP BY %s`, col, quoteIdent(l.cfg.TableName), col)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count %s.%s: %w", l.cfg.TableName, l.cfg.LabelColumn, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var value any
		var n int
		if err := rows.Scan(&value, &n); err != nil {
			return nil, err
		}
		counts[Row{"v": value}.String("v")] += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "category counts", "table", l.cfg.TableName, "counts", counts)
	return counts, nil
}

func (l *Loader) pageQuery(allowed []string) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(quoteIdent(l.cfg.TableName))

	args := make([]any, 0, len(allowed)+2)
	if len(allowed) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(allowed)), ", ")
		fmt.Fprintf(&b, " WHERE %s IN (%s)", quoteIdent(l.cfg.LabelColumn), placeholders)
		for _, a := range allowed {
			args = append(args, a)
		}
	}
	b.WriteString(" LIMIT ? OFFSET ?")
	return b.String(), args
}

// Pages yields the table in batches of BatchSize rows. Iteration stops at
// the first empty page, after MaxBatches pages, on error, or when the caller
// stops ranging. Each call starts again from the first row. A configured
// column missing from the table fails the first page with ErrColumnNotFound.
func (l *Loader) Pages(ctx context.Context, opts PageOptions) iter.Seq2[[]Row, error] {
	return func(yield func([]Row, error) bool) {
		db, err := l.conn()
		if err != nil {
			yield(nil, err)
			return
		}

		allowed := opts.AllowedCategories
		if allowed == nil {
			allowed = l.cfg.AllowedCategories
		}
		query, filterArgs := l.pageQuery(allowed)

		offset := 0
		for batch := 1; ; batch++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			args := append(append(make([]any, 0, len(filterArgs)+2), filterArgs...), l.cfg.BatchSize, offset)
			page, cols, err := fetchRows(ctx, db, query, args)
			if err != nil {
				yield(nil, fmt.Errorf("read %s page %d: %w", l.cfg.TableName, batch, err))
				return
			}
			if batch == 1 {
				if err := l.checkColumns(cols, opts.require); err != nil {
					yield(nil, err)
					return
				}
			}
			if len(page) == 0 {
				return
			}
			if !yield(page, nil) {
				return
			}

			offset += l.cfg.BatchSize
			if opts.MaxBatches > 0 && batch >= opts.MaxBatches {
				return
			}
		}
	}
}

func fetchRows(ctx context.Context, db *sql.DB, query string, args []any) ([]Row, []string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var page []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		page = append(page, row)
	}
	return page, cols, rows.Err()
}
