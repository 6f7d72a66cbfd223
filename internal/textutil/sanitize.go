package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LabelSlug converts an object label into the filesystem- and remote-safe
// token used in frame-set folder names ({slug}_{timestamp}). Letters are
// lowercased, digits kept, runs of separators collapse to a single
// underscore. Returns "object" for empty input so folder names stay valid.
func LabelSlug(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "object"
	}
	var b strings.Builder
	prevSep := false
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevSep = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			prevSep = false
		case unicode.IsSpace(r), r == '-', r == '_', r == '.':
			if !prevSep && b.Len() > 0 {
				b.WriteByte('_')
				prevSep = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "object"
	}
	return out
}

// DisplayTitle renders an object label for human-facing output (tables,
// notifications): separators become spaces and words are title-cased.
func DisplayTitle(label string) string {
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range strings.TrimSpace(label) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Unknown Object"
	}
	return cases.Title(language.Und).String(title)
}
