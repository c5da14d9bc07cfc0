package site

import (
	"strings"
	"sync"

	"git.home.luguber.info/inful/sitegen/internal/metadata"
)

// Kind classifies a content node.
type Kind string

const (
	// KindPage is a regular markup content file.
	KindPage Kind = "page"
	// KindCollectionIndex is an index file that typically enumerates sibling
	// pages (index.md in a content directory).
	KindCollectionIndex Kind = "collection-index"
	// KindAsset is a non-markup file copied to the output tree verbatim.
	KindAsset Kind = "asset-passthrough"
)

// Node is the in-memory representation of one source content file. Identity
// is the slash-separated source path relative to the content root. RawBody
// and Metadata are immutable after loading; the rendered body is computed at
// most once per build pass.
type Node struct {
	SourcePath string
	OutputPath string
	URL        string
	Kind       Kind

	RawBody  []byte
	Metadata metadata.Document

	// BodyLine is the zero-based line the body starts on in the source file,
	// for diagnostics that point into the original document.
	BodyLine int

	// ConsultedDefaults lists the ancestor defaults files (relative paths)
	// merged into Metadata, recorded for incremental invalidation.
	ConsultedDefaults []string

	renderOnce sync.Once
	rendered   []byte
	renderErr  error
}

// RenderedBody returns the node's body rendered to HTML, computing it on
// first use. Concurrent callers share the single computation.
func (n *Node) RenderedBody(render func([]byte) ([]byte, error)) ([]byte, error) {
	n.renderOnce.Do(func() {
		n.rendered, n.renderErr = render(n.RawBody)
	})
	return n.rendered, n.renderErr
}

// Title returns the node's display title: explicit metadata title, or the
// slug-derived one.
func (n *Node) Title() string {
	if t := n.Metadata.GetString(metadata.KeyTitle); t != "" {
		return t
	}
	return n.Metadata.GetString(metadata.KeySlug)
}

// urlFromOutputPath derives the canonical URL for an output path:
// "blog/post.html" -> "/blog/post/", "blog/index.html" -> "/blog/".
func urlFromOutputPath(out string) string {
	u := "/" + strings.TrimPrefix(out, "/")
	if strings.HasSuffix(u, "/index.html") {
		return strings.TrimSuffix(u, "index.html")
	}
	if strings.HasSuffix(u, ".html") {
		return strings.TrimSuffix(u, ".html") + "/"
	}
	return u
}
