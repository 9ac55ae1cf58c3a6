package category

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/AliB771/One4All/internal/config"
	"github.com/AliB771/One4All/internal/dataset"
	"github.com/AliB771/One4All/internal/label"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

var (
	ErrSourceNotFound = errors.New("category database not found")
	ErrColumnNotFound = errors.New("configured column not found")
)

// Row is one source row keyed by column name.
type Row map[string]any

func (r Row) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// String renders a column value as text. Missing columns and NULL are "".
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// formatFloat keeps a trailing ".0" on whole numbers so a REAL label such as
// 3.0 stays distinct from the INTEGER label 3.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.IsInf(v, 0) || math.IsNaN(v) || strings.ContainsRune(s, '.') {
		return s
	}
	return s + ".0"
}

// Loader turns one category's table into encoded chunk records.
type Loader struct {
	db      *sql.DB
	dbPath  string
	cfg     config.CategoryConfig
	encoder *label.Encoder
	rng     *rand.Rand
}

type Option func(*Loader)

// WithRand sets the generator used when the category asks for shuffling.
func WithRand(rng *rand.Rand) Option {
	return func(l *Loader) {
		l.rng = rng
	}
}

// NewLoader opens dbDir/cfg.Path read-only. A missing file is an error
// rather than a silently created empty database.
func NewLoader(dbDir string, cfg config.CategoryConfig, opts ...Option) (*Loader, error) {
	dbPath := filepath.Join(dbDir, cfg.Path)
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, dbPath)
		}
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=query_only(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dbPath, err)
	}

	l, err := NewLoaderWithDB(db, dbPath, cfg, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("connected to database", "path", dbPath, "category", cfg.Name)
	return l, nil
}

// NewLoaderWithDB wraps an already open database. dbPath is only used for
// naming the default label encoder file.
func NewLoaderWithDB(db *sql.DB, dbPath string, cfg config.CategoryConfig, opts ...Option) (*Loader, error) {
	for _, ident := range []string{cfg.TableName, cfg.TextColumn, cfg.LabelColumn, cfg.TitleColumn, cfg.ChunkColumn} {
		if ident != "" && !config.IsIdentifier(ident) {
			return nil, fmt.Errorf("%w: %q is not a plain SQL identifier", config.ErrInvalidConfig, ident)
		}
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: BatchSize must be positive for %s", config.ErrInvalidConfig, cfg.Name)
	}

	l := &Loader{
		db:      db,
		dbPath:  dbPath,
		cfg:     cfg,
		encoder: label.NewEncoder(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.rng == nil {
		l.rng = dataset.NewRand(nil)
	}
	return l, nil
}

func (l *Loader) Config() config.CategoryConfig {
	return l.cfg
}

// Encoder exposes the label encoder fitted by the last LoadEncoded call.
func (l *Loader) Encoder() *label.Encoder {
	return l.encoder
}

// SaveLabelEncoder writes the fitted encoder. An empty path derives the name
// from the database file.
func (l *Loader) SaveLabelEncoder(path string) (string, error) {
	if path == "" {
		path = filepath.Base(l.dbPath) + "_label_encoder.json"
	}
	if err := l.encoder.Save(path); err != nil {
		return "", err
	}
	slog.Info("saved label encoder", "path", path, "classes", len(l.encoder.Classes()))
	return path, nil
}

// Close releases the connection. Calling it again is a no-op.
func (l *Loader) Close() error {
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	slog.Info("closed database connection", "path", l.dbPath)
	return err
}

func (l *Loader) conn() (*sql.DB, error) {
	if l.db == nil {
		return nil, errors.New("loader is closed")
	}
	return l.db, nil
}
