// Package config loads and validates the sitegen configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitegen/internal/errors"
)

// DefaultConfigFile is the config filename looked up in the working directory.
const DefaultConfigFile = "sitegen.yaml"

// IncrementalConfig controls persistent build-state tracking.
type IncrementalConfig struct {
	// Enabled turns on change-driven rebuilds backed by StatePath.
	Enabled bool `yaml:"enabled"`
	// StatePath is the SQLite database holding the previous build state.
	StatePath string `yaml:"state_path"`
}

// WatchConfig controls the file-watching rebuild loop.
type WatchConfig struct {
	// Debounce is the quiet period after a filesystem event before rebuilding.
	Debounce time.Duration `yaml:"debounce"`
	// FullRebuildInterval forces a periodic full rebuild; zero disables it.
	FullRebuildInterval time.Duration `yaml:"full_rebuild_interval"`
	// MetricsAddr serves Prometheus metrics while watching; empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`
}

// EventsConfig controls build-report publishing.
type EventsConfig struct {
	// NATSURL is the server to publish build reports to; empty disables it.
	NATSURL string `yaml:"nats_url"`
	// Subject overrides the default publish subject.
	Subject string `yaml:"subject"`
}

// Config is the top-level sitegen configuration.
type Config struct {
	// ContentDir holds the source pages, assets, and defaults files.
	ContentDir string `yaml:"content_dir"`
	// TemplatesDir holds the HTML templates.
	TemplatesDir string `yaml:"templates_dir"`
	// OutputDir receives the built site.
	OutputDir string `yaml:"output_dir"`

	// BaseURL is the public root the site will be served from.
	BaseURL string `yaml:"base_url"`
	// DefaultTemplate is the final template fallback.
	DefaultTemplate string `yaml:"default_template"`
	// CollectionIndexTemplate, when set, applies to index pages with no
	// explicit template of their own.
	CollectionIndexTemplate string `yaml:"collection_index_template"`

	// MarkdownExtensions lists file extensions treated as markdown sources.
	MarkdownExtensions []string `yaml:"markdown_extensions"`
	// AssetExtensions lists file extensions copied through unchanged.
	AssetExtensions []string `yaml:"asset_extensions"`
	// DefaultsFileName is the per-directory metadata defaults filename.
	DefaultsFileName string `yaml:"defaults_file"`
	// AllowRawHTML passes raw HTML in markdown through to the output.
	AllowRawHTML bool `yaml:"allow_raw_html"`

	// Workers bounds render parallelism; zero means one per CPU.
	Workers int `yaml:"workers"`

	// Site holds free-form values exposed to every template.
	Site map[string]any `yaml:"site"`

	Incremental IncrementalConfig `yaml:"incremental"`
	Watch       WatchConfig       `yaml:"watch"`
	Events      EventsConfig      `yaml:"events"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		ContentDir:         "content",
		TemplatesDir:       "templates",
		OutputDir:          "public",
		DefaultTemplate:    "default.html",
		MarkdownExtensions: []string{".md", ".markdown"},
		AssetExtensions:    []string{".jpg", ".jpeg", ".png", ".gif", ".svg", ".css", ".js"},
		DefaultsFileName:   "_defaults.yaml",
		Incremental: IncrementalConfig{
			StatePath: ".sitegen-state.db",
		},
		Watch: WatchConfig{
			Debounce: 250 * time.Millisecond,
		},
	}
}

// Load reads path, layers it over the defaults, applies environment
// overrides, and validates the result. A missing file is not an error: the
// defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, fmt.Sprintf("read config %s", path))
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, fmt.Sprintf("parse config %s", path))
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// failures mid-build.
func (c *Config) Validate() error {
	if c.ContentDir == "" {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "content_dir must not be empty")
	}
	if c.TemplatesDir == "" {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "templates_dir must not be empty")
	}
	if c.OutputDir == "" {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "output_dir must not be empty")
	}
	if c.DefaultTemplate == "" {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "default_template must not be empty")
	}
	if c.Workers < 0 {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "workers must not be negative")
	}
	if c.Watch.Debounce < 0 {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "watch.debounce must not be negative")
	}
	for _, ext := range c.MarkdownExtensions {
		if ext == "" || ext[0] != '.' {
			return errors.New(errors.CategoryConfig, errors.SeverityFatal, fmt.Sprintf("markdown extension %q must start with a dot", ext))
		}
	}
	for _, ext := range c.AssetExtensions {
		if ext == "" || ext[0] != '.' {
			return errors.New(errors.CategoryConfig, errors.SeverityFatal, fmt.Sprintf("asset extension %q must start with a dot", ext))
		}
	}
	return nil
}

// KindTemplates maps node kinds to configured template conventions.
func (c *Config) KindTemplates() map[string]string {
	kinds := make(map[string]string)
	if c.CollectionIndexTemplate != "" {
		kinds["collection-index"] = c.CollectionIndexTemplate
	}
	return kinds
}
