package services

import (
	"strings"

	"github.com/google/uuid"
)

// Slugify turns a company name into a URL-safe slug. Accents are folded to
// their ASCII base, anything else non alphanumeric becomes a dash.
func Slugify(name string) string {
	base := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := true // swallow leading dashes
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if folded, ok := accentFold[r]; ok {
				b.WriteString(folded)
				lastDash = false
			} else if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		s = "entreprise"
	}
	return s
}

// UniqueSuffix appends a short random suffix for slug collisions.
func UniqueSuffix(slug string) string {
	return slug + "-" + uuid.NewString()[:8]
}

var accentFold = map[rune]string{
	'à': "a", 'â': "a", 'ä': "a",
	'é': "e", 'è': "e", 'ê': "e", 'ë': "e",
	'î': "i", 'ï': "i",
	'ô': "o", 'ö': "o",
	'ù': "u", 'û': "u", 'ü': "u",
	'ç': "c", 'œ': "oe",
}
