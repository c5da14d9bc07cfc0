// Package builder orchestrates a build pass: discover content, render nodes
// in parallel, write outputs, and persist incremental state.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitegen/internal/buildgraph"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/incremental"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/markup"
	"git.home.luguber.info/inful/sitegen/internal/metadata"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/render"
	"git.home.luguber.info/inful/sitegen/internal/site"
	"git.home.luguber.info/inful/sitegen/internal/templates"
	"git.home.luguber.info/inful/sitegen/internal/vcs"
)

// State names a build pass phase.
type State string

const (
	StateDiscovering State = "discovering"
	StateRendering   State = "rendering"
	StateWriting     State = "writing"
	StateDone        State = "done"
	StateErrored     State = "errored"
)

// Builder runs build passes over one configured site.
type Builder struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Recorder
	store   *incremental.Store
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithStore attaches the incremental state store. Without a store every pass
// is a full rebuild.
func WithStore(s *incremental.Store) Option {
	return func(b *Builder) { b.store = s }
}

// New creates a Builder for the given configuration.
func New(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// renderResult carries one node's render outcome from a worker.
type renderResult struct {
	node    *site.Node
	output  []byte
	rec     *buildgraph.Recorder
	err     error
	skipped bool
}

// Build runs one pass. Per-file failures accumulate into the report and never
// abort the pass; the returned error is non-nil only for fatal conditions
// (unreadable content root, unwritable output root, cancellation).
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	report := &Report{
		BuildID:   uuid.NewString(),
		StartedAt: time.Now(),
	}
	state := StateDiscovering
	phaseStart := time.Now()
	advance := func(next State) {
		b.metrics.ObservePhaseDuration(string(state), time.Since(phaseStart))
		b.logger.Debug("Phase complete", logfields.Phase(string(state)), logfields.BuildID(report.BuildID))
		state = next
		phaseStart = time.Now()
	}
	fail := func(err error) (*Report, error) {
		advance(StateErrored)
		report.Duration = time.Since(report.StartedAt)
		report.finish(true)
		b.metrics.IncBuildOutcome(metrics.BuildFailed)
		return report, err
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return fail(errors.WrapFatal(err, fmt.Sprintf("output root not writable: %s", b.cfg.OutputDir)))
	}

	commit, err := vcs.HeadCommit(b.cfg.ContentDir)
	if err != nil {
		b.logger.Warn("Could not read VCS commit", logfields.Error(err))
	}
	report.Commit = commit

	// Discovering.
	kindTemplates := make(map[site.Kind]string)
	for k, v := range b.cfg.KindTemplates() {
		kindTemplates[site.Kind(k)] = v
	}
	loader := site.NewLoader(site.LoaderConfig{
		Root:            b.cfg.ContentDir,
		DefaultsFile:    b.cfg.DefaultsFileName,
		MarkdownExts:    b.cfg.MarkdownExtensions,
		AssetExts:       b.cfg.AssetExtensions,
		GlobalDefaults:  metadata.Document(b.cfg.Site),
		DefaultTemplate: b.cfg.DefaultTemplate,
		KindTemplates:   kindTemplates,
	})
	tree, fileErrs, err := loader.Load(ctx)
	if err != nil {
		return fail(err)
	}
	for _, fe := range fileErrs {
		report.addError(fe.Path, StateDiscovering, fe.Err)
	}

	curHashes, err := b.hashInputs(tree)
	if err != nil {
		return fail(err)
	}
	plan, prev := b.plan(ctx, curHashes)
	report.Full = plan.Full
	if plan.Full {
		b.logger.Info("Full rebuild", slog.String("reason", plan.Reason), logfields.BuildID(report.BuildID))
	} else {
		b.logger.Info("Incremental rebuild",
			slog.Int("dirty", len(plan.Dirty)), logfields.BuildID(report.BuildID))
	}
	advance(StateRendering)

	// Rendering.
	converter := markup.NewConverter(markup.Options{AllowRawHTML: b.cfg.AllowRawHTML})
	registry := templates.NewRegistry(b.cfg.TemplatesDir, nil)
	renderer := render.New(converter, registry, tree, render.Globals{
		BaseURL: b.cfg.BaseURL,
		Commit:  commit,
		Values:  b.cfg.Site,
	})

	results := b.renderAll(ctx, renderer, tree, plan)
	if ctx.Err() != nil {
		return fail(errors.WrapFatal(ctx.Err(), "build cancelled"))
	}

	graph := buildgraph.New()
	for _, res := range results {
		if res.rec != nil {
			graph.Merge(res.rec)
		}
	}
	for _, self := range graph.SelfDependencies() {
		report.addError(self, StateRendering,
			errors.New(errors.CategoryRender, errors.SeverityWarning, "page depends on itself via a collection query"))
	}
	advance(StateWriting)

	// Writing.
	for _, res := range results {
		switch {
		case res.skipped:
			report.Skipped++
			b.metrics.IncFileOutcome(metrics.OutcomeSkipped)
		case res.err != nil:
			report.addError(res.node.SourcePath, StateRendering, res.err)
			b.metrics.IncFileOutcome(metrics.OutcomeErrored)
		default:
			if werr := b.writeOutput(res.node, res.output); werr != nil {
				report.addError(res.node.SourcePath, StateWriting, werr)
				b.metrics.IncFileOutcome(metrics.OutcomeErrored)
				continue
			}
			report.Rendered++
			b.metrics.IncFileOutcome(metrics.OutcomeRendered)
		}
	}
	advance(StateDone)

	b.persistState(ctx, report, tree, graph, plan, prev, curHashes)

	report.Duration = time.Since(report.StartedAt)
	report.finish(false)
	b.metrics.ObserveBuildDuration(report.Duration)
	switch report.Outcome {
	case OutcomeSuccess:
		b.metrics.IncBuildOutcome(metrics.BuildSuccess)
	default:
		b.metrics.IncBuildOutcome(metrics.BuildPartial)
	}

	b.logger.Info("Build complete",
		logfields.BuildID(report.BuildID),
		slog.String("outcome", string(report.Outcome)),
		slog.Int("rendered", report.Rendered),
		slog.Int("skipped", report.Skipped),
		slog.Int("errored", report.Errored),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

// renderAll fans nodes out over a bounded worker pool.
func (b *Builder) renderAll(ctx context.Context, renderer *render.Renderer, tree *site.Tree, plan *incremental.Plan) []renderResult {
	workers := b.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan *site.Node)
	out := make(chan renderResult, tree.Len())
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for node := range jobs {
				if ctx.Err() != nil {
					return
				}
				if !plan.ShouldRender(node.SourcePath) {
					out <- renderResult{node: node, skipped: true}
					continue
				}
				rec := buildgraph.NewRecorder(node.SourcePath)
				output, err := renderer.Render(node, rec)
				out <- renderResult{node: node, output: output, rec: rec, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, node := range tree.Nodes() {
			select {
			case jobs <- node:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(out)

	results := make([]renderResult, 0, tree.Len())
	for res := range out {
		results = append(results, res)
	}
	return results
}

// writeOutput places one node's bytes under the output root.
func (b *Builder) writeOutput(node *site.Node, data []byte) error {
	dst := filepath.Join(b.cfg.OutputDir, filepath.FromSlash(node.OutputPath))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrap(err, errors.CategoryOutput, errors.SeverityError, "creating output directory").
			WithContext("path", node.SourcePath)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return errors.Wrap(err, errors.CategoryOutput, errors.SeverityError, "writing output file").
			WithContext("path", node.SourcePath).
			WithContext("output", node.OutputPath)
	}
	return nil
}

// hashInputs fingerprints everything a rebuild decision depends on: content
// sources, defaults files, and the template tree.
func (b *Builder) hashInputs(tree *site.Tree) (map[string]string, error) {
	hashes := make(map[string]string, tree.Len())
	seen := make(map[string]struct{})

	for _, node := range tree.Nodes() {
		h, err := incremental.HashFile(filepath.Join(b.cfg.ContentDir, filepath.FromSlash(node.SourcePath)))
		if err != nil {
			continue // collected as a discovery error already, or racing a delete
		}
		hashes[node.SourcePath] = h
		for _, dp := range node.ConsultedDefaults {
			if _, ok := seen[dp]; ok {
				continue
			}
			seen[dp] = struct{}{}
			if dh, err := incremental.HashFile(filepath.Join(b.cfg.ContentDir, filepath.FromSlash(dp))); err == nil {
				hashes[dp] = dh
			}
		}
	}

	err := filepath.Walk(b.cfg.TemplatesDir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(b.cfg.TemplatesDir, p)
		if rerr != nil {
			return nil
		}
		if h, herr := incremental.HashFile(p); herr == nil {
			hashes[incremental.TemplateHashPrefix+filepath.ToSlash(rel)] = h
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.WrapFatal(err, fmt.Sprintf("templates root not readable: %s", b.cfg.TemplatesDir))
	}
	return hashes, nil
}

// plan loads the previous build state and selects what to re-render.
func (b *Builder) plan(ctx context.Context, curHashes map[string]string) (*incremental.Plan, *incremental.BuildState) {
	if b.store == nil || !b.cfg.Incremental.Enabled {
		return &incremental.Plan{Full: true, Reason: "incremental rebuilds disabled"}, nil
	}
	prev, err := b.store.LoadLatest(ctx)
	if err != nil {
		b.logger.Warn("Could not load previous build state", logfields.Error(err))
		return &incremental.Plan{Full: true, Reason: "previous build state unreadable"}, nil
	}
	return incremental.SelectDirty(prev, curHashes), prev
}

// persistState saves hashes, graph edges, and consulted defaults for the next
// incremental pass. Edges of nodes skipped this pass are carried over from the
// previous state.
func (b *Builder) persistState(ctx context.Context, report *Report, tree *site.Tree, graph *buildgraph.Graph, plan *incremental.Plan, prev *incremental.BuildState, curHashes map[string]string) {
	if b.store == nil || !b.cfg.Incremental.Enabled {
		return
	}

	edges := graph.Edges()
	if prev != nil && !plan.Full {
		for from, deps := range prev.Edges {
			if !plan.ShouldRender(from) {
				edges[from] = deps
			}
		}
	}

	consulted := make(map[string][]string)
	for _, node := range tree.Nodes() {
		if len(node.ConsultedDefaults) > 0 {
			consulted[node.SourcePath] = node.ConsultedDefaults
		}
	}

	st := &incremental.BuildState{
		ID:        report.BuildID,
		CreatedAt: report.StartedAt,
		Hashes:    curHashes,
		Edges:     edges,
		Consulted: consulted,
	}
	if err := b.store.SaveBuild(ctx, st); err != nil {
		b.logger.Warn("Could not persist build state", logfields.Error(err))
	}
}

// Describe returns a short human summary of a report for CLI output.
func Describe(r *Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d rendered, %d skipped, %d errored", r.Outcome, r.Rendered, r.Skipped, r.Errored)
	for _, e := range r.Entries {
		fmt.Fprintf(&sb, "\n  %s [%s/%s]: %s", e.File, e.Phase, e.Category, e.Message)
	}
	return sb.String()
}
