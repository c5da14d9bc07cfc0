// Package watch rebuilds the site whenever content or templates change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/sitegen/internal/builder"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/events"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// Watcher runs builds on filesystem changes with debouncing, plus an optional
// periodic full rebuild as a safety net against missed events.
type Watcher struct {
	cfg       *config.Config
	builder   *builder.Builder
	publisher *events.Publisher
	logger    *slog.Logger
	registry  *prom.Registry

	watcher     *fsnotify.Watcher
	triggerChan chan struct{}
}

// New creates a Watcher. publisher and registry may be nil.
func New(cfg *config.Config, b *builder.Builder, publisher *events.Publisher, registry *prom.Registry) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Watcher{
		cfg:         cfg,
		builder:     b,
		publisher:   publisher,
		logger:      slog.Default(),
		registry:    registry,
		watcher:     fw,
		triggerChan: make(chan struct{}, 1),
	}, nil
}

// Run builds once, then watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.addRecursive(w.cfg.ContentDir); err != nil {
		return err
	}
	if err := w.addRecursive(w.cfg.TemplatesDir); err != nil {
		return err
	}

	var scheduler gocron.Scheduler
	if interval := w.cfg.Watch.FullRebuildInterval; interval > 0 {
		s, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		if _, err := s.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(w.trigger),
			gocron.WithName("periodic-full-rebuild"),
		); err != nil {
			return fmt.Errorf("schedule periodic rebuild: %w", err)
		}
		s.Start()
		scheduler = s
		defer func() { _ = scheduler.Shutdown() }()
	}

	if addr := w.cfg.Watch.MetricsAddr; addr != "" && w.registry != nil {
		go w.serveMetrics(ctx, addr)
	}

	w.build(ctx)

	go w.eventLoop(ctx)
	w.rebuildLoop(ctx)
	return ctx.Err()
}

// eventLoop turns filesystem events into rebuild triggers and keeps new
// directories watched.
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.logger.Debug("Change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				w.trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", logfields.Error(err))
		}
	}
}

// rebuildLoop debounces triggers and runs builds.
func (w *Watcher) rebuildLoop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.triggerChan:
			if timer == nil {
				timer = time.NewTimer(w.cfg.Watch.Debounce)
			} else {
				timer.Stop()
				timer.Reset(w.cfg.Watch.Debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			w.build(ctx)
		}
	}
}

// build runs one pass and publishes the report.
func (w *Watcher) build(ctx context.Context) {
	report, err := w.builder.Build(ctx)
	if err != nil {
		w.logger.Error("Build failed", logfields.Error(err))
	}
	if report != nil && w.publisher != nil {
		if perr := w.publisher.PublishReport(report); perr != nil {
			w.logger.Warn("Could not publish build report", logfields.Error(perr))
		}
	}
}

// trigger requests a rebuild; coalesces when one is already pending.
func (w *Watcher) trigger() {
	select {
	case w.triggerChan <- struct{}{}:
	default:
	}
}

// addRecursive watches dir and every subdirectory.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && p != dir {
			return fs.SkipDir
		}
		if werr := w.watcher.Add(p); werr != nil {
			return fmt.Errorf("watch %s: %w", p, werr)
		}
		return nil
	})
}

// ignored filters editor temp files and hidden paths.
func (w *Watcher) ignored(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}

// serveMetrics exposes the Prometheus registry while watching.
func (w *Watcher) serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(w.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	w.logger.Info("Serving metrics", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		w.logger.Error("Metrics server failed", logfields.Error(err))
	}
}
