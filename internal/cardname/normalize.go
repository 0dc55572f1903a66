// Package cardname provides the comparison key used for card names.
package cardname

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var trailingAnnotation = regexp.MustCompile(`\s*\([^()]*\)\s*$`)

// Normalize returns the lookup key for a card name: lowercased, diacritics
// stripped and whitespace collapsed. "Lim-Dûl's  Vault" becomes "lim-dul's vault".
func Normalize(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// StripAnnotation removes trailing parenthetical notes such as
// "Cultivate (ramp)" or "Sol Ring (2 mana)". Repeated notes are all removed.
func StripAnnotation(name string) string {
	name = strings.TrimSpace(name)
	for {
		trimmed := trailingAnnotation.ReplaceAllString(name, "")
		if trimmed == name || trimmed == "" {
			return name
		}
		name = strings.TrimSpace(trimmed)
	}
}

// FrontFace returns the first face of a multi-faced card name
// ("Delver of Secrets // Insectile Aberration" -> "Delver of Secrets").
func FrontFace(name string) string {
	if i := strings.Index(name, "//"); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return strings.TrimSpace(name)
}
