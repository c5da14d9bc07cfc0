// Package buildgraph records which nodes' metadata or rendered bodies a
// node's render consulted. The resulting graph drives incremental rebuild
// invalidation: when a dependency changes, every node that read from it is
// re-rendered.
package buildgraph

import (
	"sort"
)

// Graph maps a node identity (relative source path) to the set of node
// identities it depends on.
type Graph struct {
	edges map[string]map[string]struct{}
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{edges: make(map[string]map[string]struct{})}
}

// Recorder accumulates dependency edges for a single node's render. Each
// render owns exactly one Recorder, so no locking is needed while recording;
// recorders are merged into the Graph after the rendering phase.
type Recorder struct {
	from string
	deps map[string]struct{}
}

// NewRecorder creates a recorder for the given node identity.
func NewRecorder(from string) *Recorder {
	return &Recorder{from: from, deps: make(map[string]struct{})}
}

// Record notes that the node read data belonging to dep.
func (r *Recorder) Record(dep string) {
	if r == nil || dep == "" {
		return
	}
	r.deps[dep] = struct{}{}
}

// From returns the identity of the recording node.
func (r *Recorder) From() string { return r.from }

// Deps returns the recorded dependencies in sorted order.
func (r *Recorder) Deps() []string {
	out := make([]string, 0, len(r.deps))
	for d := range r.deps {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Merge folds a recorder's edges into the graph. A node depending on itself
// indicates template recursion; the edge is kept so SelfDependencies can
// report it, since it is a modeling error rather than a crash.
func (g *Graph) Merge(r *Recorder) {
	if r == nil || len(r.deps) == 0 {
		return
	}
	set, ok := g.edges[r.from]
	if !ok {
		set = make(map[string]struct{}, len(r.deps))
		g.edges[r.from] = set
	}
	for d := range r.deps {
		set[d] = struct{}{}
	}
}

// DependenciesOf returns the sorted dependencies of a node.
func (g *Graph) DependenciesOf(node string) []string {
	set := g.edges[node]
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Nodes returns the sorted identities of all nodes with outgoing edges.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.edges))
	for n := range g.edges {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// SelfDependencies returns nodes that recorded an edge to themselves.
func (g *Graph) SelfDependencies() []string {
	var out []string
	for n, deps := range g.edges {
		if _, ok := deps[n]; ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Invalidated computes the set of nodes that must be re-rendered given a set
// of changed node identities: the changed nodes themselves plus the reverse
// dependency closure (every node that transitively depends on a changed one).
func (g *Graph) Invalidated(changed map[string]struct{}) map[string]struct{} {
	reverse := make(map[string][]string)
	for from, deps := range g.edges {
		for dep := range deps {
			reverse[dep] = append(reverse[dep], from)
		}
	}

	dirty := make(map[string]struct{}, len(changed))
	queue := make([]string, 0, len(changed))
	for c := range changed {
		dirty[c] = struct{}{}
		queue = append(queue, c)
	}
	sort.Strings(queue)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dependent := range reverse[cur] {
			if _, seen := dirty[dependent]; !seen {
				dirty[dependent] = struct{}{}
				queue = append(queue, dependent)
			}
		}
	}
	return dirty
}

// Edges returns the full edge list as a map of sorted dependency slices,
// suitable for persistence.
func (g *Graph) Edges() map[string][]string {
	out := make(map[string][]string, len(g.edges))
	for n := range g.edges {
		out[n] = g.DependenciesOf(n)
	}
	return out
}

// FromEdges reconstructs a graph from a persisted edge list.
func FromEdges(edges map[string][]string) *Graph {
	g := New()
	for from, deps := range edges {
		set := make(map[string]struct{}, len(deps))
		for _, d := range deps {
			set[d] = struct{}{}
		}
		g.edges[from] = set
	}
	return g
}
