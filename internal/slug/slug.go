// Package slug derives URL-safe slugs and publication dates from content
// filenames. A file named "2024-01-15_launch-notes.md" contributes a date and
// the slug "launch-notes" unless its frontmatter says otherwise.
package slug

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const dateLayout = "2006-01-02"

// FileInfo holds what could be extracted from a content filename.
type FileInfo struct {
	Date    time.Time
	HasDate bool
	Slug    string
}

// FromFilename extracts a date prefix and slug from a filename (extension
// already removed or not, both accepted).
func FromFilename(name string) FileInfo {
	base := name
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}

	info := FileInfo{}
	if len(base) >= len(dateLayout) {
		if d, err := time.Parse(dateLayout, base[:len(dateLayout)]); err == nil {
			info.Date = d
			info.HasDate = true
			base = base[len(dateLayout):]
			// Common to name files "2024-01-15_slug"; drop the separator.
			base = strings.TrimLeft(base, "_- ")
		}
	}

	info.Slug = Make(base)
	return info
}

// Make turns an arbitrary title or filename fragment into a URL-safe slug:
// diacritics stripped via NFKD, lowercased, runs of non-alphanumerics
// collapsed to single hyphens.
func Make(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
