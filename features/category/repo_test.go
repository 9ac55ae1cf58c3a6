package category_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliB771/One4All/features/category"
	"github.com/AliB771/One4All/internal/config"
	"github.com/AliB771/One4All/internal/testutils"
)

func newMockLoader(t *testing.T, batchSize int, allowed []string) (*category.Loader, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := testutils.CategoryConfig("medical", "medical.db", "docs")
	cfg.BatchSize = batchSize
	cfg.AllowedCategories = allowed

	l, err := category.NewLoaderWithDB(db, "medical.db", cfg)
	require.NoError(t, err)
	return l, mock
}

func TestLoader_CategoryCounts(t *testing.T) {
	l, mock := newMockLoader(t, 10, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "category", COUNT(*) AS count FROM "docs" GROUP BY "category"`)).
		WillReturnRows(sqlmock.NewRows([]string{"category", "count"}).
			AddRow("cardio", 3).
			AddRow("neuro", 5))

	counts, err := l.CategoryCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"cardio": 3, "neuro": 5}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoader_Pages(t *testing.T) {
	t.Run("StopsOnEmptyPage", func(t *testing.T) {
		l, mock := newMockLoader(t, 2, nil)
		query := regexp.QuoteMeta(`SELECT * FROM "docs" LIMIT ? OFFSET ?`)
		cols := []string{"category", "title", "text"}

		mock.ExpectQuery(query).WithArgs(2, 0).
			WillReturnRows(sqlmock.NewRows(cols).AddRow("a", "t1", "x").AddRow("b", "t2", "y"))
		mock.ExpectQuery(query).WithArgs(2, 2).
			WillReturnRows(sqlmock.NewRows(cols).AddRow("a", "t3", "z"))
		mock.ExpectQuery(query).WithArgs(2, 4).
			WillReturnRows(sqlmock.NewRows(cols))

		var sizes []int
		for page, err := range l.Pages(context.Background(), category.PageOptions{}) {
			require.NoError(t, err)
			sizes = append(sizes, len(page))
		}
		assert.Equal(t, []int{2, 1}, sizes)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FilterAndMaxBatches", func(t *testing.T) {
		l, mock := newMockLoader(t, 1, []string{"cardio", "neuro"})
		query := regexp.QuoteMeta(`SELECT * FROM "docs" WHERE "category" IN (?, ?) LIMIT ? OFFSET ?`)
		cols := []string{"category", "title", "text"}

		mock.ExpectQuery(query).WithArgs("cardio", "neuro", 1, 0).
			WillReturnRows(sqlmock.NewRows(cols).AddRow("cardio", "t1", "x"))
		mock.ExpectQuery(query).WithArgs("cardio", "neuro", 1, 1).
			WillReturnRows(sqlmock.NewRows(cols).AddRow("neuro", "t2", "y"))

		pages := 0
		for _, err := range l.Pages(context.Background(), category.PageOptions{MaxBatches: 2}) {
			require.NoError(t, err)
			pages++
		}
		assert.Equal(t, 2, pages)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyFilterOverridesConfig", func(t *testing.T) {
		l, mock := newMockLoader(t, 5, []string{"cardio"})
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "docs" LIMIT ? OFFSET ?`)).WithArgs(5, 0).
			WillReturnRows(sqlmock.NewRows([]string{"category", "title", "text"}))

		for _, err := range l.Pages(context.Background(), category.PageOptions{AllowedCategories: []string{}}) {
			require.NoError(t, err)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("QueryError", func(t *testing.T) {
		l, mock := newMockLoader(t, 5, nil)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "docs" LIMIT ? OFFSET ?`)).
			WillReturnError(errors.New("no such table: docs"))

		var gotErr error
		for _, err := range l.Pages(context.Background(), category.PageOptions{}) {
			gotErr = err
		}
		require.Error(t, gotErr)
		assert.Contains(t, gotErr.Error(), "no such table")
	})

	t.Run("MissingColumn", func(t *testing.T) {
		l, mock := newMockLoader(t, 5, nil)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "docs" LIMIT ? OFFSET ?`)).WithArgs(5, 0).
			WillReturnRows(sqlmock.NewRows([]string{"category", "title", "body"}).AddRow("a", "t", "x"))

		pages := 0
		var gotErr error
		for page, err := range l.Pages(context.Background(), category.PageOptions{}) {
			if err != nil {
				gotErr = err
				continue
			}
			pages += len(page)
		}
		assert.ErrorIs(t, gotErr, category.ErrColumnNotFound)
		assert.Contains(t, gotErr.Error(), "docs.text")
		assert.Zero(t, pages)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CanceledContext", func(t *testing.T) {
		l, _ := newMockLoader(t, 5, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var gotErr error
		for _, err := range l.Pages(ctx, category.PageOptions{}) {
			gotErr = err
		}
		assert.ErrorIs(t, gotErr, context.Canceled)
	})
}

func TestLoader_Pages_VisitsEveryRowOnce(t *testing.T) {
	labels := []string{"cardio", "neuro", "onco"}
	var rows []testutils.SourceRow
	for i := range 23 {
		rows = append(rows, testutils.SourceRow{
			Category: labels[i%len(labels)],
			Title:    fmt.Sprintf("t%d", i),
			Text:     fmt.Sprintf("row %d", i),
		})
	}
	dir := t.TempDir()
	testutils.WriteSourceDB(t, filepath.Join(dir, "medical.db"), "docs", rows)

	tests := []struct {
		name    string
		allowed []string
		want    func(i int) bool
	}{
		{"NoFilter", []string{}, func(int) bool { return true }},
		{"Filtered", []string{"cardio", "onco"}, func(i int) bool { return labels[i%len(labels)] != "neuro" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testutils.CategoryConfig("medical", "medical.db", "docs")
			cfg.BatchSize = 4
			l, err := category.NewLoader(dir, cfg)
			require.NoError(t, err)
			defer l.Close()

			seen := map[string]int{}
			for page, err := range l.Pages(context.Background(), category.PageOptions{AllowedCategories: tt.allowed}) {
				require.NoError(t, err)
				assert.LessOrEqual(t, len(page), cfg.BatchSize)
				for _, r := range page {
					seen[r.String("id")]++
				}
			}

			want := map[string]int{}
			for i := range rows {
				if tt.want(i) {
					want[fmt.Sprint(i+1)] = 1
				}
			}
			assert.Equal(t, want, seen)
		})
	}
}

func TestLoader_LoadEncoded_MissingColumn(t *testing.T) {
	rows := []testutils.SourceRow{{Category: "neuro", Title: "Brain", Text: "a b c", Chunks: `["a b c"]`}}

	tests := []struct {
		name   string
		mutate func(*config.CategoryConfig)
	}{
		{"Text", func(c *config.CategoryConfig) { c.TextColumn = "body" }},
		{"Label", func(c *config.CategoryConfig) { c.LabelColumn = "topic" }},
		{"Title", func(c *config.CategoryConfig) { c.TitleColumn = "headline" }},
		{"Chunk", func(c *config.CategoryConfig) {
			c.ChunkColumn = "pieces"
			c.UseChunks = true
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := openFixture(t, rows, tt.mutate)
			ds, err := l.LoadEncoded(context.Background(), category.LoadOptions{})
			assert.ErrorIs(t, err, category.ErrColumnNotFound)
			assert.Nil(t, ds)
		})
	}

	t.Run("UnusedChunkColumn", func(t *testing.T) {
		l := openFixture(t, rows, func(c *config.CategoryConfig) { c.ChunkColumn = "pieces" })
		ds, err := l.LoadEncoded(context.Background(), category.LoadOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, ds.Len())
	})
}
