package testutils

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/AliB771/One4All/internal/config"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SourceRow is one row of the fixture table. Empty Chunks and Sections are
// stored as NULL.
type SourceRow struct {
	Category string
	Title    string
	Text     string
	Chunks   string
	Sections string
}

// WriteSourceDB creates a SQLite file at path holding rows in table with the
// columns category, title, text, chunks and sections.
func WriteSourceDB(t testing.TB, path, table string, rows []SourceRow) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE ` + table + ` (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT,
		title TEXT,
		text TEXT,
		chunks TEXT,
		sections TEXT
	)`)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	stmt, err := tx.Prepare(`INSERT INTO ` + table + ` (category, title, text, chunks, sections) VALUES (?, ?, ?, ?, ?)`)
	require.NoError(t, err)
	for _, r := range rows {
		_, err := stmt.Exec(r.Category, r.Title, r.Text, nullable(r.Chunks), nullable(r.Sections))
		require.NoError(t, err)
	}
	require.NoError(t, stmt.Close())
	require.NoError(t, tx.Commit())
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CategoryConfig returns a category pointing at the fixture schema.
func CategoryConfig(name, path, table string) config.CategoryConfig {
	return config.CategoryConfig{
		Name:          name,
		Path:          path,
		TableName:     table,
		TextColumn:    "text",
		LabelColumn:   "category",
		TitleColumn:   "title",
		ChunkColumn:   "chunks",
		BatchSize:     50,
		MaxChunkWords: config.DefaultMaxChunkWords,
	}
}

// PipelineConfig builds a validated config whose categories each read
// <base>/raw/<name>.db from table "docs".
func PipelineConfig(t testing.TB, base string, names ...string) *config.Config {
	t.Helper()
	cats := make(map[string]config.CategoryConfig, len(names))
	for _, n := range names {
		cats[n] = CategoryConfig(n, n+".db", "docs")
	}
	seed := int64(42)
	cfg := &config.Config{
		Runtime: config.Runtime{
			MaxWorkers: 3,
			FailFast:   true,
			LogLevel:   "info",
		},
		DataProcessing: config.DataProcessing{
			OutputDir:      filepath.Join(base, "processed"),
			BasePath:       base,
			ClassList:      names,
			TestSize:       0.2,
			ValidationSize: 0.5,
			Seed:           &seed,
			Categories:     cats,
		},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

// WriteConfigYAML writes a router config for the fixture categories under
// base and returns its path.
func WriteConfigYAML(t testing.TB, base string, names ...string) string {
	t.Helper()
	dp := map[string]any{
		"OutputDir":      filepath.Join(base, "processed"),
		"BasePath":       base,
		"ClassList":      names,
		"TestSize":       0.2,
		"ValidationSize": 0.5,
		"Seed":           42,
	}
	for _, n := range names {
		dp[n] = CategoryConfig(n, n+".db", "docs")
	}

	data, err := yaml.Marshal(map[string]any{"DataProcessing": dp})
	require.NoError(t, err)

	path := filepath.Join(base, "router_config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
