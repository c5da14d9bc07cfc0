package site

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metadata"
	"git.home.luguber.info/inful/sitegen/internal/slug"
)

// LoaderConfig controls content discovery.
type LoaderConfig struct {
	Root            string
	DefaultsFile    string   // reserved per-directory defaults filename, e.g. "_defaults.yaml"
	MarkdownExts    []string // extensions recognized as markup, e.g. [".md", ".markdown"]
	AssetExts       []string // extensions copied through verbatim
	GlobalDefaults  metadata.Document
	DefaultTemplate string
	KindTemplates   map[Kind]string // node-kind template conventions
}

// FileError is a per-file failure collected during discovery. A single file's
// failure never aborts the walk.
type FileError struct {
	Path string
	Err  error
}

// Loader walks the content tree and produces content nodes.
type Loader struct {
	cfg    LoaderConfig
	logger *slog.Logger
}

// NewLoader creates a loader for the given configuration.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.DefaultsFile == "" {
		cfg.DefaultsFile = "_defaults.yaml"
	}
	if len(cfg.MarkdownExts) == 0 {
		cfg.MarkdownExts = []string{".md", ".markdown"}
	}
	if cfg.DefaultTemplate == "" {
		cfg.DefaultTemplate = "default.html"
	}
	return &Loader{cfg: cfg, logger: slog.Default()}
}

// dirDefaults caches one directory's defaults document. doc is nil when the
// directory has no defaults file or it failed to parse.
type dirDefaults struct {
	doc  metadata.Document
	path string // relative path of the defaults file, "" when absent
}

// Load walks the content root in lexicographic order and builds the site
// tree. Per-file errors are collected and returned alongside the partial
// tree; only a missing or unreadable content root is fatal.
func (l *Loader) Load(ctx context.Context) (*Tree, []FileError, error) {
	info, err := os.Stat(l.cfg.Root)
	if err != nil || !info.IsDir() {
		return nil, nil, errors.WrapFatal(err, fmt.Sprintf("content root not found: %s", l.cfg.Root))
	}

	var (
		nodes     []*Node
		fileErrs  []FileError
		defaults  = map[string]dirDefaults{} // relative dir -> defaults
		startedAt = time.Now()
	)

	walkErr := filepath.WalkDir(l.cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			fileErrs = append(fileErrs, FileError{Path: l.rel(p), Err: err})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		name := d.Name()
		if d.IsDir() {
			if p != l.cfg.Root && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			dd, derr := l.loadDefaults(p)
			if derr != nil {
				fileErrs = append(fileErrs, FileError{Path: dd.path, Err: derr})
			}
			defaults[l.rel(p)] = dd
			return nil
		}

		if l.ignored(name) || name == l.cfg.DefaultsFile {
			return nil
		}

		rel := l.rel(p)
		node, nerr := l.loadFile(p, rel, defaults)
		if nerr != nil {
			fileErrs = append(fileErrs, FileError{Path: rel, Err: nerr})
			return nil
		}
		if node != nil {
			nodes = append(nodes, node)
		}
		return nil
	})
	if walkErr != nil {
		if ctx.Err() != nil {
			return nil, fileErrs, walkErr
		}
		return nil, fileErrs, errors.WrapFatal(walkErr, "walking content tree")
	}

	l.logger.Debug("Content discovery complete",
		logfields.Count(len(nodes)),
		slog.Int("errors", len(fileErrs)),
		logfields.DurationMS(float64(time.Since(startedAt).Milliseconds())))

	return NewTree(nodes), fileErrs, nil
}

// loadDefaults reads a directory's defaults file if present.
func (l *Loader) loadDefaults(dir string) (dirDefaults, error) {
	fp := filepath.Join(dir, l.cfg.DefaultsFile)
	raw, err := os.ReadFile(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return dirDefaults{}, nil
		}
		return dirDefaults{path: l.rel(fp)}, errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError, "reading defaults file")
	}

	doc, perr := metadata.Parse(raw)
	if perr != nil {
		return dirDefaults{path: l.rel(fp)}, errors.Wrap(perr, errors.CategoryMetadata, errors.SeverityError, "parsing defaults file").
			WithContext("path", l.rel(fp))
	}
	return dirDefaults{doc: doc, path: l.rel(fp)}, nil
}

// loadFile builds a single content node, or returns nil for files whose
// extension is not recognized.
func (l *Loader) loadFile(abs, rel string, defaults map[string]dirDefaults) (*Node, error) {
	ext := strings.ToLower(path.Ext(rel))

	switch {
	case l.hasExt(l.cfg.MarkdownExts, ext):
		return l.loadMarkupFile(abs, rel, ext, defaults)
	case l.hasExt(l.cfg.AssetExts, ext):
		return l.loadAssetFile(abs, rel)
	default:
		l.logger.Debug("Skipping unrecognized file", logfields.Path(rel))
		return nil, nil
	}
}

func (l *Loader) loadMarkupFile(abs, rel, ext string, defaults map[string]dirDefaults) (*Node, error) {
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError, "reading content file")
	}

	fm, body, _, bodyLine, _, err := frontmatter.Split(raw)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFrontmatter, errors.SeverityError, "malformed frontmatter").
			WithContext("path", rel).
			WithContext("line", 1)
	}

	fileDoc, err := frontmatter.ParseYAML(fm)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryMetadata, errors.SeverityError, "parsing frontmatter").
			WithContext("path", rel).
			WithContext("line", 1)
	}

	ancestors, consulted := l.ancestorChain(rel, defaults)
	merged := metadata.Merge(l.cfg.GlobalDefaults, ancestors, metadata.Document(fileDoc))

	// Filename-derived date and slug; explicit frontmatter always wins.
	base := path.Base(rel)
	info := slug.FromFilename(base)
	if !merged.Has(metadata.KeySlug) && info.Slug != "" {
		merged[metadata.KeySlug] = info.Slug
	}
	if !merged.Has(metadata.KeyDate) && info.HasDate {
		merged[metadata.KeyDate] = info.Date
	}

	kind := KindPage
	if strings.TrimSuffix(base, ext) == "index" {
		kind = KindCollectionIndex
	}

	metadata.ResolveTemplate(merged, l.cfg.KindTemplates[kind], l.cfg.DefaultTemplate)

	out, err := l.outputPath(rel, ext, merged, kind)
	if err != nil {
		return nil, err
	}

	return &Node{
		SourcePath:        rel,
		OutputPath:        out,
		URL:               urlFromOutputPath(out),
		Kind:              kind,
		RawBody:           body,
		Metadata:          merged,
		BodyLine:          bodyLine,
		ConsultedDefaults: consulted,
	}, nil
}

func (l *Loader) loadAssetFile(abs, rel string) (*Node, error) {
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError, "reading asset file")
	}
	return &Node{
		SourcePath: rel,
		OutputPath: rel,
		URL:        "/" + rel,
		Kind:       KindAsset,
		RawBody:    raw,
		Metadata:   metadata.Document{},
	}, nil
}

// outputPath derives the output location: the file's slug in its source
// directory with an .html extension, unless metadata overrides it. Overrides
// must stay relative and inside the output tree.
func (l *Loader) outputPath(rel, ext string, doc metadata.Document, kind Kind) (string, error) {
	if override := doc.GetString(metadata.KeyOutputPath); override != "" {
		clean := path.Clean(strings.TrimPrefix(override, "/"))
		if clean == "." || strings.HasPrefix(clean, "..") {
			return "", errors.New(errors.CategoryMetadata, errors.SeverityError,
				fmt.Sprintf("invalid output_path %q", override)).WithContext("path", rel)
		}
		return clean, nil
	}

	name := strings.TrimSuffix(path.Base(rel), ext)
	if kind != KindCollectionIndex {
		if s := doc.GetString(metadata.KeySlug); s != "" {
			name = s
		}
	}
	if dir := path.Dir(rel); dir != "." {
		return dir + "/" + name + ".html", nil
	}
	return name + ".html", nil
}

// ancestorChain collects the defaults documents for every directory from the
// content root down to the file's directory, outermost first, along with the
// relative paths of the defaults files that actually existed.
func (l *Loader) ancestorChain(rel string, defaults map[string]dirDefaults) ([]metadata.Document, []string) {
	var docs []metadata.Document
	var consulted []string

	appendDir := func(dir string) {
		if dd, ok := defaults[dir]; ok && dd.path != "" {
			consulted = append(consulted, dd.path)
			if dd.doc != nil {
				docs = append(docs, dd.doc)
			}
		}
	}

	appendDir(".")
	dir := path.Dir(rel)
	if dir != "." {
		parts := strings.Split(dir, "/")
		for i := range parts {
			appendDir(strings.Join(parts[:i+1], "/"))
		}
	}
	return docs, consulted
}

func (l *Loader) ignored(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}

func (l *Loader) hasExt(exts []string, ext string) bool {
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (l *Loader) rel(p string) string {
	r, err := filepath.Rel(l.cfg.Root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(r)
}
