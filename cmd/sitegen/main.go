package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitegen/internal/builder"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/events"
	"git.home.luguber.info/inful/sitegen/internal/incremental"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/watch"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"sitegen.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Output      string `short:"o" help:"Override the output directory"`
		Incremental bool   `short:"i" help:"Only rebuild pages affected by changes since the last build"`
	} `cmd:"" help:"Build the site once"`

	Watch struct {
		MetricsAddr string `help:"Serve Prometheus metrics on this address"`
	} `cmd:"" help:"Build continuously, rebuilding on content and template changes"`

	Init struct {
		Force bool `help:"Overwrite existing files"`
	} `cmd:"" help:"Scaffold a new site in the current directory"`
}

func main() {
	kctx := kong.Parse(&CLI)

	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment from .env")
	}

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch kctx.Command() {
	case "build":
		cfg := loadConfig()
		if CLI.Build.Output != "" {
			cfg.OutputDir = CLI.Build.Output
		}
		if CLI.Build.Incremental {
			cfg.Incremental.Enabled = true
		}
		os.Exit(runBuild(cfg))
	case "watch":
		cfg := loadConfig()
		if CLI.Watch.MetricsAddr != "" {
			cfg.Watch.MetricsAddr = CLI.Watch.MetricsAddr
		}
		if err := runWatch(cfg); err != nil {
			slog.Error("Watch failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := runInit(CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

// openStore opens the incremental state store when enabled. Errors degrade to
// full rebuilds rather than aborting.
func openStore(cfg *config.Config) *incremental.Store {
	if !cfg.Incremental.Enabled {
		return nil
	}
	store, err := incremental.Open(cfg.Incremental.StatePath)
	if err != nil {
		slog.Warn("Could not open build state store, falling back to full rebuilds", "error", err)
		return nil
	}
	return store
}

func runBuild(cfg *config.Config) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := []builder.Option{}
	if store := openStore(cfg); store != nil {
		defer store.Close()
		opts = append(opts, builder.WithStore(store))
	}

	b := builder.New(cfg, opts...)
	report, err := b.Build(ctx)
	if err != nil {
		slog.Error("Build failed", "error", err)
		return 1
	}

	fmt.Println(builder.Describe(report))
	if report.Outcome == builder.OutcomePartial {
		return 2
	}
	return 0
}

func runWatch(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := prom.NewRegistry()
	recorder := metrics.NewRecorder(registry)

	opts := []builder.Option{builder.WithMetrics(recorder)}
	if store := openStore(cfg); store != nil {
		defer store.Close()
		opts = append(opts, builder.WithStore(store))
	}

	var publisher *events.Publisher
	if cfg.Events.NATSURL != "" {
		p, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			slog.Warn("Could not connect to NATS, build reports will not be published", "error", err)
		} else {
			publisher = p
			defer publisher.Close()
		}
	}

	w, err := watch.New(cfg, builder.New(cfg, opts...), publisher, registry)
	if err != nil {
		return err
	}

	slog.Info("Watching for changes", "content", cfg.ContentDir, "templates", cfg.TemplatesDir)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	slog.Info("Shutting down")
	return nil
}

// runInit scaffolds a minimal working site.
func runInit(force bool) error {
	files := map[string]string{
		config.DefaultConfigFile: `content_dir: content
templates_dir: templates
output_dir: public
base_url: ""
site:
  name: My Site
`,
		"templates/default.html": `<!DOCTYPE html>
<html>
<head><title>{{.title}}</title></head>
<body>
{{.Content}}
</body>
</html>
`,
		"content/index.md": `---
title: Home
---
# Welcome

This site was generated by sitegen.
`,
	}

	for rel, body := range files {
		p := filepath.FromSlash(rel)
		if _, err := os.Stat(p); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", rel)
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", rel, err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
		slog.Info("Created", "path", rel)
	}
	return nil
}
