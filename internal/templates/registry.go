// Package templates loads and compiles the presentation templates consulted
// by the renderer. Compiled templates are cached by name for the lifetime of
// one build pass; compilation happens once per name even under concurrent
// renders.
//
// Inheritance: a template may declare a parent with an extends directive on
// its first line:
//
//	{{/* extends "base.html" */}}
//	{{define "body"}}...{{end}}
//
// The chain is resolved recursively; the child's define blocks override the
// parent's block defaults. An extending template should contain only define
// blocks besides the directive.
package templates

import (
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// NotFoundError reports a resolved template name with no definition on disk.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template not found: %s", e.Name)
}

// ErrCircularExtends indicates a template inheritance cycle (including a
// template extending itself). This is a modeling error in the template set,
// reported per-file rather than crashing the build.
var ErrCircularExtends = errors.New("circular template inheritance")

var extendsRe = regexp.MustCompile(`\{\{-?\s*/\*\s*extends\s+"([^"]+)"\s*\*/\s*-?\}\}`)

// Registry resolves template names to compiled templates.
type Registry struct {
	dir   string
	funcs template.FuncMap

	mu      sync.Mutex
	entries map[string]*entry
}

// Compile-once-per-name: the map access is guarded by the registry lock, the
// compilation itself by the entry's once, so two nodes resolving the same
// name never compile it twice.
type entry struct {
	once sync.Once
	tpl  *template.Template
	err  error
}

// NewRegistry creates a registry over a templates directory.
func NewRegistry(dir string, funcs template.FuncMap) *Registry {
	return &Registry{
		dir:     dir,
		funcs:   funcs,
		entries: make(map[string]*entry),
	}
}

// Get returns the compiled template for name, compiling it on first use.
func (r *Registry) Get(name string) (*template.Template, error) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		e = &entry{}
		r.entries[name] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		e.tpl, e.err = r.compile(name)
	})
	return e.tpl, e.err
}

type templateSource struct {
	name string
	text string
}

// compile resolves the extends chain for name and parses the chain root-first
// into a single template set, so the outermost layout is the executed body
// and child defines override parent blocks.
func (r *Registry) compile(name string) (*template.Template, error) {
	var chain []templateSource
	seen := make(map[string]bool)

	cur := name
	for {
		if seen[cur] {
			return nil, fmt.Errorf("%w: %s", ErrCircularExtends, chainString(chain, cur))
		}
		seen[cur] = true

		text, err := r.read(cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, templateSource{name: cur, text: text})

		m := extendsRe.FindStringSubmatch(text)
		if m == nil {
			break
		}
		cur = m[1]
	}

	root := chain[len(chain)-1]
	tpl := template.New(root.name).Funcs(r.funcs)
	for i := len(chain) - 1; i >= 0; i-- {
		if _, err := tpl.Parse(chain[i].text); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", chain[i].name, err)
		}
	}
	return tpl, nil
}

func (r *Registry) read(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("template name escapes templates directory: %s", name)
	}

	raw, err := os.ReadFile(filepath.Join(r.dir, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{Name: name}
		}
		return "", fmt.Errorf("read template %s: %w", name, err)
	}
	return string(raw), nil
}

func chainString(chain []templateSource, repeat string) string {
	names := make([]string, 0, len(chain)+1)
	for _, s := range chain {
		names = append(names, s.name)
	}
	names = append(names, repeat)
	return strings.Join(names, " -> ")
}
