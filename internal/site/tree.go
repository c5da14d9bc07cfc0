package site

import (
	"sort"
	"strings"
)

// Tree is the ordered hierarchy of content nodes produced by one discovery
// pass. It mirrors the filesystem layout, is immutable once built, and serves
// both as the deterministic iteration order and as the namespace for
// collection queries.
type Tree struct {
	nodes  []*Node
	byPath map[string]*Node
}

// NewTree builds a tree from loaded nodes, sorted by source path.
func NewTree(nodes []*Node) *Tree {
	sorted := make([]*Node, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SourcePath < sorted[j].SourcePath
	})

	byPath := make(map[string]*Node, len(sorted))
	for _, n := range sorted {
		byPath[n.SourcePath] = n
	}
	return &Tree{nodes: sorted, byPath: byPath}
}

// Nodes returns all nodes in lexicographic source-path order.
func (t *Tree) Nodes() []*Node { return t.nodes }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Lookup finds a node by its relative source path.
func (t *Tree) Lookup(path string) (*Node, bool) {
	n, ok := t.byPath[path]
	return n, ok
}

// Under returns all page and collection-index nodes whose source path starts
// with the given slash-separated prefix, in lexicographic order. Assets are
// excluded; they carry no queryable metadata.
func (t *Tree) Under(prefix string) []*Node {
	prefix = strings.TrimPrefix(prefix, "/")
	var out []*Node
	for _, n := range t.nodes {
		if n.Kind == KindAsset {
			continue
		}
		if strings.HasPrefix(n.SourcePath, prefix) {
			out = append(out, n)
		}
	}
	return out
}
