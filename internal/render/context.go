package render

import (
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/buildgraph"
	"git.home.luguber.info/inful/sitegen/internal/htmltext"
	"git.home.luguber.info/inful/sitegen/internal/metadata"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

const excerptLength = 200

// Globals carries site-wide values injected into every render context.
type Globals struct {
	BaseURL string
	Commit  string
	Values  map[string]any
}

// PageQuery is the read-only accessor templates use to enumerate other pages
// (e.g. an index page listing posts). Every page returned by a query is
// recorded as a build-graph edge for the querying node, which is what makes
// incremental rebuilds of listing pages work.
//
// It queries the immutable site tree by path prefix; it never holds
// references between nodes.
type PageQuery struct {
	tree *site.Tree
	self *site.Node
	rec  *buildgraph.Recorder
	body func([]byte) ([]byte, error)
}

// Under returns pages whose source path starts with prefix, excluding the
// querying page itself.
func (q PageQuery) Under(prefix string) PageList {
	var out PageList
	for _, n := range q.tree.Under(prefix) {
		if n.SourcePath == q.self.SourcePath {
			continue
		}
		q.rec.Record(n.SourcePath)
		out = append(out, &PageRef{node: n, body: q.body})
	}
	return out
}

// All returns every page on the site except the querying one.
func (q PageQuery) All() PageList {
	return q.Under("")
}

// PageRef exposes one page's data to a template.
type PageRef struct {
	node *site.Node
	body func([]byte) ([]byte, error)
}

// Path returns the page's relative source path.
func (p *PageRef) Path() string { return p.node.SourcePath }

// URL returns the page's canonical URL.
func (p *PageRef) URL() string { return p.node.URL }

// Meta returns the page's merged metadata document.
func (p *PageRef) Meta() metadata.Document { return p.node.Metadata }

// Title returns the page's display title, falling back to the first heading
// of the rendered body.
func (p *PageRef) Title() string {
	if t := p.node.Title(); t != "" {
		return t
	}
	rendered, err := p.node.RenderedBody(p.body)
	if err != nil {
		return ""
	}
	return htmltext.Title(rendered)
}

// Excerpt returns a plain-text excerpt of the page's rendered body.
func (p *PageRef) Excerpt() string {
	rendered, err := p.node.RenderedBody(p.body)
	if err != nil {
		return ""
	}
	return htmltext.Excerpt(rendered, excerptLength)
}

// Date returns the page's date metadata, or the zero time.
func (p *PageRef) Date() time.Time {
	if t, ok := p.node.Metadata[metadata.KeyDate].(time.Time); ok {
		return t
	}
	return time.Time{}
}

// PageList supports chained ordering in templates:
//
//	{{range ((.Pages.Under "blog/").SortBy "date").Reverse}}
type PageList []*PageRef

// SortBy returns a copy ordered by the given metadata key, comparing values
// case-insensitively by their string form.
func (l PageList) SortBy(key string) PageList {
	out := make(PageList, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool {
		a := strings.ToLower(out[i].node.Metadata.GetString(key))
		b := strings.ToLower(out[j].node.Metadata.GetString(key))
		return a < b
	})
	return out
}

// Reverse returns a copy in reverse order.
func (l PageList) Reverse() PageList {
	out := make(PageList, len(l))
	for i, p := range l {
		out[len(l)-1-i] = p
	}
	return out
}

// Limit returns at most n pages.
func (l PageList) Limit(n int) PageList {
	if n < 0 || n >= len(l) {
		return l
	}
	return l[:n]
}
