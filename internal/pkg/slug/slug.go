// Package slug generates URL-safe identifiers from display names.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes diacritical marks after canonical decomposition,
// so "Café" slugifies to "cafe".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make converts a display name into a lowercase, hyphen-separated slug.
// Characters outside [a-z0-9] collapse into single hyphens.
func Make(name string) string {
	normalized, _, err := transform.String(stripMarks, name)
	if err != nil {
		normalized = name
	}

	var b strings.Builder
	b.Grow(len(normalized))

	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(normalized) {
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

	return strings.TrimSuffix(b.String(), "-")
}

// IsValid reports whether s is a well-formed slug.
func IsValid(s string) bool {
	if s == "" {
		return false
	}
	return s == Make(s)
}
