package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the generator.
type Config struct {
	Datasets DatasetsConfig `yaml:"datasets"`
	Mapper   MapperConfig   `yaml:"mapper"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
	Serve    ServeConfig    `yaml:"serve"`
}

// DatasetsConfig says where translations come from. Explicit Paths win
// over discovery below Dir.
type DatasetsConfig struct {
	Dir      string   `yaml:"dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	Paths    []string `yaml:"paths"`
	// Formats overrides format detection per version code.
	Formats map[string]string `yaml:"formats"`
	// Versification names the scheme of a version, e.g. kjv: "kjv".
	Versification map[string]string `yaml:"versification"`
}

type MapperConfig struct {
	JaccardThreshold     float64 `yaml:"jaccard_threshold"`
	LevenshteinThreshold float64 `yaml:"levenshtein_threshold"`
	Fallback             bool    `yaml:"fallback"`
}

type OutputConfig struct {
	Dir           string `yaml:"dir"`
	MinifyJSON    bool   `yaml:"minify_json"`
	Compression   string `yaml:"compression"` // "none", "gzip", "xz", "zstd"
	SchemaVersion string `yaml:"schema_version"`
	BaseURL       string `yaml:"base_url"`
	// BuildTimestamp pins the manifest timestamp (RFC 3339) for
	// reproducible output. Empty means the current time.
	BuildTimestamp string       `yaml:"build_timestamp"`
	HTML           bool         `yaml:"html"`
	Redirects      bool         `yaml:"redirects"`
	SQLite         bool         `yaml:"sqlite"`
	Budgets        BudgetConfig `yaml:"budgets"`
}

// BudgetConfig caps output file sizes in bytes; 0 disables a check.
type BudgetConfig struct {
	MaxChapterBytes   int64 `yaml:"max_chapter_bytes"`
	MaxCrossRefsBytes int64 `yaml:"max_crossrefs_bytes"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "text" or "json"
	Dir        string `yaml:"dir"`
	KeepBuilds int    `yaml:"keep_builds"`
}

type ServeConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Datasets: DatasetsConfig{
			Dir:      "datasets",
			Includes: []string{"**/*.txt"},
			Excludes: []string{"**/.git/**", "**/drafts/**"},
		},
		Mapper: MapperConfig{
			JaccardThreshold:     0.70,
			LevenshteinThreshold: 0.15,
			Fallback:             true,
		},
		Output: OutputConfig{
			Dir:           "out",
			Compression:   "none",
			SchemaVersion: "1.0",
			BaseURL:       "https://example.com",
			HTML:          true,
			Budgets: BudgetConfig{
				MaxChapterBytes:   200 * 1024,
				MaxCrossRefsBytes: 50 * 1024 * 1024,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Dir:        "logs",
			KeepBuilds: 10,
		},
		Serve: ServeConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir looks for biblegen.yaml, then .biblegen/config.yaml.
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "biblegen.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".biblegen", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks values that would otherwise produce a silently broken
// build.
func (c *Config) Validate() error {
	var errs []error
	if t := c.Mapper.JaccardThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("mapper.jaccard_threshold must be within [0,1], got %g", t))
	}
	if t := c.Mapper.LevenshteinThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("mapper.levenshtein_threshold must be within [0,1], got %g", t))
	}
	switch c.Output.Compression {
	case "", "none", "gzip", "xz", "zstd":
	default:
		errs = append(errs, fmt.Errorf("output.compression must be none, gzip, xz or zstd, got %q", c.Output.Compression))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output.dir must not be empty"))
	}
	if c.Output.BuildTimestamp != "" {
		if _, err := time.Parse(time.RFC3339, c.Output.BuildTimestamp); err != nil {
			errs = append(errs, fmt.Errorf("output.build_timestamp: %w", err))
		}
	}
	return errors.Join(errs...)
}

// BuildTime returns the pinned build timestamp, or now.
func (c *Config) BuildTime(now time.Time) time.Time {
	if c.Output.BuildTimestamp == "" {
		return now
	}
	t, err := time.Parse(time.RFC3339, c.Output.BuildTimestamp)
	if err != nil {
		return now
	}
	return t
}

// StateDir is where the build store lives inside an output directory.
func StateDir(outDir string) string {
	return filepath.Join(outDir, ".biblegen")
}

// BuildDBPath returns the path to the build database.
func BuildDBPath(outDir string) string {
	return filepath.Join(StateDir(outDir), "build.db")
}

// EnsureStateDir ensures the .biblegen directory exists.
func EnsureStateDir(outDir string) error {
	return os.MkdirAll(StateDir(outDir), 0755)
}

// Resolve makes p absolute relative to base unless it already is.
func Resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
