package emit

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// slug folds a table label to a safe snake_case SQL identifier:
// diacritics are decomposed and removed, camel-case boundaries become
// underscores, and anything outside [a-z0-9_] is dropped or collapsed.
// "UnitsInStructure" -> "units_in_structure".
func slug(label string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, err := transform.String(t, label)
	if err != nil {
		ascii = label
	}

	var b strings.Builder
	prevUnderscore := true // suppress a leading underscore
	var prevLower bool
	for _, r := range ascii {
		switch {
		case r >= 'A' && r <= 'Z':
			if prevLower && !prevUnderscore {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			prevUnderscore = false
			prevLower = false
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			prevUnderscore = false
			prevLower = true
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
			prevLower = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
			prevLower = false
		default:
			// drop anything else
		}
	}
	return strings.Trim(b.String(), "_")
}
