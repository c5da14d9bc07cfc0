// Package render combines a content node's rendered body with its metadata
// and invokes the template engine to produce final output bytes.
package render

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"html/template"

	"git.home.luguber.info/inful/sitegen/internal/buildgraph"
	"git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/markup"
	"git.home.luguber.info/inful/sitegen/internal/metadata"
	"git.home.luguber.info/inful/sitegen/internal/site"
	"git.home.luguber.info/inful/sitegen/internal/templates"
)

// Reserved context keys injected on top of merged metadata.
const (
	ctxKeyContent = "Content"
	ctxKeyMeta    = "Meta"
	ctxKeyURL     = "URL"
	ctxKeyPath    = "Path"
	ctxKeySite    = "Site"
	ctxKeyPages   = "Pages"
)

// Renderer renders content nodes against the compiled template set.
// Safe for concurrent use across nodes.
type Renderer struct {
	converter *markup.Converter
	registry  *templates.Registry
	tree      *site.Tree
	globals   Globals
}

// New creates a renderer for one build pass.
func New(converter *markup.Converter, registry *templates.Registry, tree *site.Tree, globals Globals) *Renderer {
	return &Renderer{
		converter: converter,
		registry:  registry,
		tree:      tree,
		globals:   globals,
	}
}

// Render produces the final output bytes for a node. Dependency edges created
// by collection queries during the render are recorded on rec.
//
// Template-engine failures (missing template, undefined variable, template
// syntax errors) are wrapped into structured errors carrying the file and
// template name; they never abort sibling renders.
func (r *Renderer) Render(node *site.Node, rec *buildgraph.Recorder) ([]byte, error) {
	if node.Kind == site.KindAsset {
		return node.RawBody, nil
	}

	rendered, err := node.RenderedBody(r.converter.Render)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryRender, errors.SeverityError, "rendering markup").
			WithContext("path", node.SourcePath)
	}

	tplName := node.Metadata.GetString(metadata.KeyTemplate)
	tpl, err := r.registry.Get(tplName)
	if err != nil {
		var nf *templates.NotFoundError
		if stderrors.As(err, &nf) {
			return nil, errors.Wrap(err, errors.CategoryTemplate, errors.SeverityError,
				fmt.Sprintf("template %q not found", nf.Name)).
				WithContext("path", node.SourcePath).
				WithContext("template", tplName)
		}
		return nil, errors.Wrap(err, errors.CategoryTemplate, errors.SeverityError, "compiling template").
			WithContext("path", node.SourcePath).
			WithContext("template", tplName)
	}

	ctx := r.buildContext(node, rendered, rec)

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryRender, errors.SeverityError, "executing template").
			WithContext("path", node.SourcePath).
			WithContext("template", tplName)
	}
	return buf.Bytes(), nil
}

// buildContext assembles the template context: merged metadata keys first,
// reserved keys layered on top so they cannot be shadowed by frontmatter.
func (r *Renderer) buildContext(node *site.Node, rendered []byte, rec *buildgraph.Recorder) map[string]any {
	ctx := make(map[string]any, len(node.Metadata)+6)
	for k, v := range node.Metadata {
		ctx[k] = v
	}

	siteCtx := map[string]any{
		"BaseURL": r.globals.BaseURL,
		"Commit":  r.globals.Commit,
	}
	for k, v := range r.globals.Values {
		siteCtx[k] = v
	}

	ctx[ctxKeyContent] = template.HTML(rendered) // #nosec G203 -- author-owned content
	ctx[ctxKeyMeta] = node.Metadata
	ctx[ctxKeyURL] = node.URL
	ctx[ctxKeyPath] = node.SourcePath
	ctx[ctxKeySite] = siteCtx
	ctx[ctxKeyPages] = PageQuery{
		tree: r.tree,
		self: node,
		rec:  rec,
		body: r.converter.Render,
	}
	return ctx
}
