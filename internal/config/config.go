package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrConfigNotFound  = errors.New("config file not found")
	ErrUnknownCategory = errors.New("unknown category")
)

// DefaultMaxChunkWords is the word window used for full-text chunking when a
// category does not set MaxChunkWords.
const DefaultMaxChunkWords = 1000

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Runtime holds process-level knobs read from the environment.
type Runtime struct {
	ConfigPath string `envconfig:"ROUTER_CONFIG" default:"config/router_config.yaml"`
	MaxWorkers int    `envconfig:"PIPELINE_MAX_WORKERS" default:"3" validate:"gte=0"`
	FailFast   bool   `envconfig:"PIPELINE_FAIL_FAST" default:"true"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFile    string `envconfig:"LOG_FILE" default:"logs/pipeline.log"`
	LedgerPath string `envconfig:"LEDGER_PATH" default:"data/ledger.db"`
	NSQDHost   string `envconfig:"NSQD_HOST"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"3" validate:"gte=0"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"1" validate:"gte=0"`
}

// CategoryConfig describes one source table feeding one expert class.
type CategoryConfig struct {
	Name              string   `yaml:"Name" validate:"required"`
	Path              string   `yaml:"Path" validate:"required"`
	TableName         string   `yaml:"TableName" validate:"required"`
	TextColumn        string   `yaml:"TextColumn" validate:"required"`
	LabelColumn       string   `yaml:"LabelColumn" validate:"required"`
	TitleColumn       string   `yaml:"TitleColumn" validate:"required"`
	ChunkColumn       string   `yaml:"ChunkColumn"`
	ChunkRepeatTitle  bool     `yaml:"ChunkRepeatTitle"`
	BatchSize         int      `yaml:"BatchSize" validate:"required,gt=0"`
	MinChunkWords     int      `yaml:"MinChunkWords" validate:"gte=0"`
	MaxChunkWords     int      `yaml:"MaxChunkWords" validate:"gte=0"`
	Label             *int64   `yaml:"Label"`
	AllowedCategories []string `yaml:"AllowedCategories"`
	UseChunks         bool     `yaml:"UseChunks"`
	Shuffle           bool     `yaml:"Shuffle"`
}

// DataProcessing is the pipeline section. Keys that are not reserved field
// names are decoded as categories.
type DataProcessing struct {
	OutputDir      string   `yaml:"OutputDir" validate:"required"`
	BasePath       string   `yaml:"BasePath" validate:"required"`
	ClassList      []string `yaml:"ClassList" validate:"dive,required"`
	TestSize       float64  `yaml:"TestSize" validate:"gt=0,lt=1"`
	ValidationSize float64  `yaml:"ValidationSize" validate:"gt=0,lt=1"`
	Seed           *int64   `yaml:"Seed"`

	Categories map[string]CategoryConfig `yaml:"-" validate:"dive"`
}

var reservedKeys = map[string]bool{
	"OutputDir":      true,
	"BasePath":       true,
	"ClassList":      true,
	"TestSize":       true,
	"ValidationSize": true,
	"Seed":           true,
}

func (d *DataProcessing) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: DataProcessing must be a mapping", ErrInvalidConfig)
	}

	type plain DataProcessing
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = DataProcessing(p)

	d.Categories = make(map[string]CategoryConfig)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if reservedKeys[key] {
			continue
		}
		var c CategoryConfig
		if err := node.Content[i+1].Decode(&c); err != nil {
			return fmt.Errorf("category %q: %w", key, err)
		}
		d.Categories[key] = c
	}
	return nil
}

type Config struct {
	Runtime        `yaml:"-"`
	DataProcessing DataProcessing `yaml:"DataProcessing"`
}

// Load reads .env files, the environment and the YAML file named by
// ROUTER_CONFIG.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit YAML path taking precedence over
// ROUTER_CONFIG.
func LoadFile(path string) (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	var rt Runtime
	if err := envconfig.Process("", &rt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if path != "" {
		rt.ConfigPath = path
	}

	data, err := os.ReadFile(filepath.Clean(rt.ConfigPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, rt.ConfigPath)
		}
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Runtime = rt

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes the YAML document and fills defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.DataProcessing.Categories == nil {
		cfg.DataProcessing.Categories = make(map[string]CategoryConfig)
	}
	for key, c := range cfg.DataProcessing.Categories {
		if c.Name == "" {
			c.Name = key
		}
		if c.MaxChunkWords == 0 {
			c.MaxChunkWords = DefaultMaxChunkWords
		}
		cfg.DataProcessing.Categories[key] = c
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c.Runtime); err != nil {
		return translate("Runtime", err)
	}
	if err := v.Struct(c.DataProcessing); err != nil {
		return translate("DataProcessing", err)
	}

	listed := make(map[string]bool, len(c.DataProcessing.ClassList))
	for _, name := range c.DataProcessing.ClassList {
		if _, ok := c.DataProcessing.Categories[name]; !ok {
			return fmt.Errorf("%w: %q is listed in ClassList but not configured", ErrUnknownCategory, name)
		}
		if listed[name] {
			return fmt.Errorf("%w: %q is listed in ClassList more than once", ErrInvalidConfig, name)
		}
		listed[name] = true
	}

	// Name picks the artifact file, so two categories must not share one.
	owner := make(map[string]string, len(c.DataProcessing.Categories))
	for _, key := range slices.Sorted(maps.Keys(c.DataProcessing.Categories)) {
		name := c.DataProcessing.Categories[key].Name
		if prev, ok := owner[name]; ok {
			return fmt.Errorf("%w: categories %q and %q share the Name %q", ErrInvalidConfig, prev, key, name)
		}
		owner[name] = key
	}

	for key, cat := range c.DataProcessing.Categories {
		idents := map[string]string{
			"TableName":   cat.TableName,
			"TextColumn":  cat.TextColumn,
			"LabelColumn": cat.LabelColumn,
			"TitleColumn": cat.TitleColumn,
			"ChunkColumn": cat.ChunkColumn,
		}
		for field, ident := range idents {
			if ident == "" {
				continue
			}
			if !IsIdentifier(ident) {
				return fmt.Errorf("%w: %s.%s %q is not a plain SQL identifier", ErrInvalidConfig, key, field, ident)
			}
		}
		if strings.ContainsAny(cat.Name, `/\`) {
			return fmt.Errorf("%w: %s.Name %q must not contain path separators", ErrInvalidConfig, key, cat.Name)
		}
	}
	return nil
}

func translate(section string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), section+".")
	if fe.Tag() == "required" {
		return fmt.Errorf("%w: %s.%s", ErrMissingRequired, section, field)
	}
	return fmt.Errorf("%w: %s.%s failed %q (value %v)", ErrInvalidConfig, section, field, fe.Tag(), fe.Value())
}

// Category returns the configuration registered under name.
func (c *Config) Category(name string) (CategoryConfig, error) {
	cat, ok := c.DataProcessing.Categories[name]
	if !ok {
		return CategoryConfig{}, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return cat, nil
}

// RawDir is where category database files live.
func (c *Config) RawDir() string {
	return filepath.Join(c.DataProcessing.BasePath, "raw")
}

// MaxWordsOrDefault returns the full-text window size for the category.
func (c CategoryConfig) MaxWordsOrDefault() int {
	if c.MaxChunkWords <= 0 {
		return DefaultMaxChunkWords
	}
	return c.MaxChunkWords
}

// IsIdentifier reports whether name can be used as an unquoted SQL table or
// column name.
func IsIdentifier(name string) bool {
	return identRe.MatchString(name)
}
