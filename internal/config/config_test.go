package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/errors"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "sitegen.yaml"))
	require.NoError(t, err)
	require.Equal(t, "content", cfg.ContentDir)
	require.Equal(t, "templates", cfg.TemplatesDir)
	require.Equal(t, "public", cfg.OutputDir)
	require.Equal(t, "default.html", cfg.DefaultTemplate)
	require.Equal(t, "_defaults.yaml", cfg.DefaultsFileName)
	require.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitegen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
content_dir: docs
base_url: https://example.com
default_template: page.html
collection_index_template: listing.html
workers: 4
site:
  author: someone
incremental:
  enabled: true
  state_path: /tmp/state.db
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "docs", cfg.ContentDir)
	require.Equal(t, "https://example.com", cfg.BaseURL)
	require.Equal(t, "page.html", cfg.DefaultTemplate)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, "someone", cfg.Site["author"])
	require.True(t, cfg.Incremental.Enabled)
	require.Equal(t, "/tmp/state.db", cfg.Incremental.StatePath)
	require.Equal(t, map[string]string{"collection-index": "listing.html"}, cfg.KindTemplates())
}

func TestLoad_MalformedYAMLIsConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitegen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("content_dir: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryConfig))
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty content dir", func(c *Config) { c.ContentDir = "" }},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }},
		{"empty default template", func(c *Config) { c.DefaultTemplate = "" }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"extension without dot", func(c *Config) { c.MarkdownExtensions = []string{"md"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, errors.IsCategory(err, errors.CategoryConfig))
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SITEGEN_OUTPUT_DIR", "dist")
	t.Setenv("SITEGEN_WORKERS", "8")
	t.Setenv("SITEGEN_INCREMENTAL", "true")
	t.Setenv("SITEGEN_WATCH_DEBOUNCE", "1s")

	cfg, err := Load(filepath.Join(t.TempDir(), "sitegen.yaml"))
	require.NoError(t, err)
	require.Equal(t, "dist", cfg.OutputDir)
	require.Equal(t, 8, cfg.Workers)
	require.True(t, cfg.Incremental.Enabled)
	require.Equal(t, time.Second, cfg.Watch.Debounce)
}
