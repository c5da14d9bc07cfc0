// Package markup renders Markdown bodies (frontmatter already removed) to
// HTML. The conversion itself is delegated to Goldmark; the rest of the
// pipeline treats this as an opaque capability.
package markup

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Converter renders Markdown to HTML. Safe for concurrent use.
type Converter struct {
	md goldmark.Markdown
}

// Options controls conversion behavior.
type Options struct {
	// AllowRawHTML passes raw HTML in the source through to the output.
	// Content authored by the site owner is trusted, so this defaults on in
	// the standard configuration.
	AllowRawHTML bool
}

// NewConverter builds a Converter with GFM extensions and auto heading IDs.
func NewConverter(opts Options) *Converter {
	rendererOpts := []renderer.Option{}
	if opts.AllowRawHTML {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}

	return &Converter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(rendererOpts...),
		),
	}
}

// Render converts a Markdown body to HTML bytes.
func (c *Converter) Render(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.md.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("render markup: %w", err)
	}
	return buf.Bytes(), nil
}
