package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deidaraiorek/killdist/internal/dataset"
	"github.com/deidaraiorek/killdist/internal/logging"
	"github.com/deidaraiorek/killdist/internal/textprocessor"
)

// Config captures input/output locations, column names, text analysis and
// logging for a run.
type Config struct {
	Input       string         `yaml:"input"`
	Output      string         `yaml:"output"`
	ItemsColumn string         `yaml:"items_column"`
	GroupColumn string         `yaml:"group_column"`
	OrderColumn string         `yaml:"order_column"`
	DropColumns []string       `yaml:"drop_columns"`
	Analyzer    AnalyzerConfig `yaml:"analyzer"`
	SQLite      SQLiteConfig   `yaml:"sqlite"`
	Log         logging.Config `yaml:"log"`
	Progress    bool           `yaml:"progress"`
}

// AnalyzerConfig controls how item names become terms.
type AnalyzerConfig struct {
	Stem           bool     `yaml:"stem"`
	StemLanguage   string   `yaml:"stem_language"`
	MinTokenLength int      `yaml:"min_token_length"`
	MaxTokenLength int      `yaml:"max_token_length"`
	StopWords      []string `yaml:"stop_words"`
	CacheSize      int      `yaml:"cache_size"`
}

// SQLiteConfig enables the optional results database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

func Default() Config {
	opts := dataset.DefaultOptions()
	return Config{
		Input:       "data/all_victims_complete.csv",
		Output:      "data/all_victims_distances.csv",
		ItemsColumn: opts.ItemsColumn,
		GroupColumn: opts.GroupColumn,
		OrderColumn: opts.OrderColumn,
		DropColumns: opts.DropColumns,
		Analyzer: AnalyzerConfig{
			StemLanguage:   "english",
			MinTokenLength: 2,
			CacheSize:      65536,
		},
		Log: logging.Config{
			Level:   "info",
			Console: true,
		},
		Progress: true,
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Input) == "" {
		errs = append(errs, errors.New("input is required"))
	}
	if strings.TrimSpace(c.Output) == "" {
		errs = append(errs, errors.New("output is required"))
	}
	if c.Input != "" && filepath.Clean(c.Input) == filepath.Clean(c.Output) {
		errs = append(errs, errors.New("output must differ from input"))
	}
	for _, col := range []struct{ key, value string }{
		{"items_column", c.ItemsColumn},
		{"group_column", c.GroupColumn},
		{"order_column", c.OrderColumn},
	} {
		if col.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", col.key))
		}
	}
	if c.Analyzer.MinTokenLength < 1 {
		errs = append(errs, errors.New("analyzer.min_token_length must be at least 1"))
	}
	if c.Analyzer.MaxTokenLength != 0 && c.Analyzer.MaxTokenLength < c.Analyzer.MinTokenLength {
		errs = append(errs, errors.New("analyzer.max_token_length must be 0 or at least min_token_length"))
	}
	if c.Analyzer.CacheSize < 0 {
		errs = append(errs, errors.New("analyzer.cache_size must not be negative"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	return errors.Join(errs...)
}

func (c Config) DatasetOptions() dataset.Options {
	return dataset.Options{
		ItemsColumn: c.ItemsColumn,
		GroupColumn: c.GroupColumn,
		OrderColumn: c.OrderColumn,
		DropColumns: c.DropColumns,
	}
}

func (c Config) AnalyzerOptions() textprocessor.Options {
	return textprocessor.Options{
		Stem:           c.Analyzer.Stem,
		StemLanguage:   c.Analyzer.StemLanguage,
		MinTokenLength: c.Analyzer.MinTokenLength,
		MaxTokenLength: c.Analyzer.MaxTokenLength,
		StopWords:      c.Analyzer.StopWords,
		CacheSize:      c.Analyzer.CacheSize,
	}
}
