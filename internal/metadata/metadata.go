// Package metadata implements the merged key-value document attached to every
// content node: directory-scoped defaults overlaid outward-in, with file-level
// keys always winning.
package metadata

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Reserved keys with pipeline-level meaning.
const (
	KeyTemplate   = "template"
	KeyOutputPath = "output_path"
	KeyDate       = "date"
	KeySlug       = "slug"
	KeyTitle      = "title"
)

// Document is a parsed metadata mapping. Keys are unique; values may be
// scalars, sequences, or nested mappings.
type Document map[string]any

// Parse decodes a YAML document into a Document.
//
// Empty input yields an empty document, never an error. A non-mapping
// top-level value is rejected.
func Parse(raw []byte) (Document, error) {
	if len(raw) == 0 {
		return Document{}, nil
	}

	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse metadata document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// GetString returns the value for key rendered as a string, or "" when absent.
func (d Document) GetString(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Has reports whether key is present.
func (d Document) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Merge overlays documents per key: global defaults first, then ancestor
// defaults outward-in (closest directory last, so it wins on conflicts), then
// the file's own document.
//
// The result is purely a function of the inputs; it never depends on
// filesystem discovery order. Overlay is shallow per key.
func Merge(global Document, ancestors []Document, file Document) Document {
	merged := make(Document)
	for k, v := range global {
		merged[k] = v
	}
	for _, anc := range ancestors {
		for k, v := range anc {
			merged[k] = v
		}
	}
	for k, v := range file {
		merged[k] = v
	}
	return merged
}

// ResolveTemplate fixes the document's template key using the precedence:
// explicit (or inherited) template key, then the node-kind convention, then
// the global default. The chosen name is written back so merged documents
// always carry a resolved template key.
//
// Falling back to the global default when both the defaults chain and the
// kind convention are silent is deliberate, documented behavior.
func ResolveTemplate(doc Document, kindConvention, globalDefault string) string {
	if name := doc.GetString(KeyTemplate); name != "" {
		doc[KeyTemplate] = name
		return name
	}
	if kindConvention != "" {
		doc[KeyTemplate] = kindConvention
		return kindConvention
	}
	doc[KeyTemplate] = globalDefault
	return globalDefault
}
