package incremental

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/buildgraph"
)

// TemplateHashPrefix namespaces template file paths in the hash map so they
// cannot collide with content paths.
const TemplateHashPrefix = "templates/"

// HashBytes returns the SHA-256 hex digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the SHA-256 hex digest of a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return HashBytes(data), nil
}

// Diff compares a previous build's hash map against the current one and
// returns the set of paths that were added, modified, or deleted.
func Diff(prev, cur map[string]string) map[string]struct{} {
	changed := make(map[string]struct{})
	for p, h := range cur {
		if prevHash, ok := prev[p]; !ok || prevHash != h {
			changed[p] = struct{}{}
		}
	}
	for p := range prev {
		if _, ok := cur[p]; !ok {
			changed[p] = struct{}{}
		}
	}
	return changed
}

// Plan is the outcome of incremental change selection.
type Plan struct {
	// Full indicates the whole tree must be re-rendered (no prior state, or
	// a template changed).
	Full bool
	// Reason explains a Full plan for logging.
	Reason string
	// Dirty holds the node identities to re-render when Full is false.
	Dirty map[string]struct{}
}

// ShouldRender reports whether a node identity must be re-rendered.
func (p *Plan) ShouldRender(node string) bool {
	if p.Full {
		return true
	}
	_, ok := p.Dirty[node]
	return ok
}

// DirtyList returns the dirty set in sorted order for logging.
func (p *Plan) DirtyList() []string {
	out := make([]string, 0, len(p.Dirty))
	for n := range p.Dirty {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// SelectDirty decides what to re-render. A node is dirty when its own source
// changed, when any node it depended on (per the previous build graph)
// changed, or when any defaults file it consulted changed. Any template
// change forces a full rebuild, since template-to-node use is not tracked.
func SelectDirty(prev *BuildState, curHashes map[string]string) *Plan {
	if prev == nil {
		return &Plan{Full: true, Reason: "no prior build state"}
	}

	changed := Diff(prev.Hashes, curHashes)
	for p := range changed {
		if strings.HasPrefix(p, TemplateHashPrefix) {
			return &Plan{Full: true, Reason: "template changed: " + p}
		}
	}

	// Nodes whose consulted defaults changed are seeds too.
	seeds := make(map[string]struct{}, len(changed))
	for p := range changed {
		seeds[p] = struct{}{}
	}
	for node, defaults := range prev.Consulted {
		for _, dp := range defaults {
			if _, ok := changed[dp]; ok {
				seeds[node] = struct{}{}
				break
			}
		}
	}

	graph := buildgraph.FromEdges(prev.Edges)
	return &Plan{Dirty: graph.Invalidated(seeds)}
}
