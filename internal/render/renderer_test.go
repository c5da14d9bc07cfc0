package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/buildgraph"
	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/markup"
	"git.home.luguber.info/inful/sitegen/internal/metadata"
	"git.home.luguber.info/inful/sitegen/internal/site"
	"git.home.luguber.info/inful/sitegen/internal/templates"
)

func newTestRegistry(t *testing.T, files map[string]string) *templates.Registry {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return templates.NewRegistry(dir, nil)
}

func pageNode(path string, meta metadata.Document, body string) *site.Node {
	if meta == nil {
		meta = metadata.Document{}
	}
	if !meta.Has(metadata.KeyTemplate) {
		meta[metadata.KeyTemplate] = "default.html"
	}
	return &site.Node{
		SourcePath: path,
		OutputPath: path,
		URL:        "/" + path + "/",
		Kind:       site.KindPage,
		RawBody:    []byte(body),
		Metadata:   meta,
	}
}

func newTestRenderer(t *testing.T, tplFiles map[string]string, nodes ...*site.Node) *Renderer {
	t.Helper()
	return New(
		markup.NewConverter(markup.Options{}),
		newTestRegistry(t, tplFiles),
		site.NewTree(nodes),
		Globals{BaseURL: "https://example.test", Commit: "abc1234"},
	)
}

func TestRender_InjectsContentAndMetadata(t *testing.T) {
	node := pageNode("post.md", metadata.Document{"title": "Hello"}, "# Heading\n\nBody.\n")
	r := newTestRenderer(t, map[string]string{
		"default.html": "<title>{{.title}}</title>{{.Content}}",
	}, node)

	out, err := r.Render(node, buildgraph.NewRecorder(node.SourcePath))
	require.NoError(t, err)
	require.Contains(t, string(out), "<title>Hello</title>")
	require.Contains(t, string(out), "<h1 id=\"heading\">Heading</h1>")
}

func TestRender_ReservedKeysShadowFrontmatter(t *testing.T) {
	node := pageNode("post.md", metadata.Document{"Content": "spoofed"}, "body\n")
	r := newTestRenderer(t, map[string]string{
		"default.html": "{{.Content}}",
	}, node)

	out, err := r.Render(node, buildgraph.NewRecorder(node.SourcePath))
	require.NoError(t, err)
	require.NotContains(t, string(out), "spoofed")
	require.Contains(t, string(out), "<p>body</p>")
}

func TestRender_SiteGlobalsAvailable(t *testing.T) {
	node := pageNode("post.md", nil, "x\n")
	r := newTestRenderer(t, map[string]string{
		"default.html": "{{.Site.BaseURL}} {{.Site.Commit}} {{.URL}}",
	}, node)

	out, err := r.Render(node, buildgraph.NewRecorder(node.SourcePath))
	require.NoError(t, err)
	require.Equal(t, "https://example.test abc1234 /post.md/", string(out))
}

func TestRender_TemplateNotFound_WrappedWithCategory(t *testing.T) {
	node := pageNode("post.md", metadata.Document{metadata.KeyTemplate: "gone.html"}, "x\n")
	r := newTestRenderer(t, map[string]string{}, node)

	_, err := r.Render(node, buildgraph.NewRecorder(node.SourcePath))
	require.Error(t, err)
	require.True(t, sgerrors.IsCategory(err, sgerrors.CategoryTemplate))
}

func TestRender_ExecutionError_WrappedWithCategory(t *testing.T) {
	node := pageNode("post.md", nil, "x\n")
	r := newTestRenderer(t, map[string]string{
		"default.html": "{{template \"nope\" .}}",
	}, node)

	_, err := r.Render(node, buildgraph.NewRecorder(node.SourcePath))
	require.Error(t, err)
	require.True(t, sgerrors.IsCategory(err, sgerrors.CategoryRender))
}

func TestRender_PagesQueryRecordsEdges(t *testing.T) {
	index := pageNode("blog/index.md", metadata.Document{metadata.KeyTemplate: "list.html"}, "")
	a := pageNode("blog/a.md", metadata.Document{"title": "A"}, "# First\n\nAlpha body.\n")
	b := pageNode("blog/b.md", metadata.Document{"title": "B"}, "# Second\n\nBeta body.\n")
	other := pageNode("about.md", nil, "x\n")

	r := newTestRenderer(t, map[string]string{
		"list.html": `{{range (.Pages.Under "blog/")}}<li>{{.Title}}: {{.Excerpt}}</li>{{end}}`,
	}, index, a, b, other)

	rec := buildgraph.NewRecorder(index.SourcePath)
	out, err := r.Render(index, rec)
	require.NoError(t, err)
	require.Contains(t, string(out), "<li>A: Alpha body.</li>")
	require.Contains(t, string(out), "<li>B: Beta body.</li>")

	// The index recorded edges only for the pages it actually read.
	require.Equal(t, []string{"blog/a.md", "blog/b.md"}, rec.Deps())
}

func TestRender_PageListSortAndLimit(t *testing.T) {
	index := pageNode("blog/index.md", metadata.Document{metadata.KeyTemplate: "list.html"}, "")
	a := pageNode("blog/a.md", metadata.Document{"weight": "2"}, "x\n")
	b := pageNode("blog/b.md", metadata.Document{"weight": "1"}, "x\n")

	r := newTestRenderer(t, map[string]string{
		"list.html": `{{range (((.Pages.Under "blog/").SortBy "weight").Limit 1)}}{{.Path}}{{end}}`,
	}, index, a, b)

	out, err := r.Render(index, buildgraph.NewRecorder(index.SourcePath))
	require.NoError(t, err)
	require.Equal(t, "blog/b.md", string(out))
}

func TestRender_AssetPassthroughBytes(t *testing.T) {
	asset := &site.Node{
		SourcePath: "logo.png",
		OutputPath: "logo.png",
		Kind:       site.KindAsset,
		RawBody:    []byte{0x89, 0x50, 0x4e, 0x47},
		Metadata:   metadata.Document{},
	}
	r := newTestRenderer(t, nil, asset)

	out, err := r.Render(asset, buildgraph.NewRecorder(asset.SourcePath))
	require.NoError(t, err)
	require.Equal(t, asset.RawBody, out)
}
