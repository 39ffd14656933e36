package auth

import (
	"html"
	"strings"
	"unicode"
)

// Display names arrive from sign-up forms and federated IdP profiles.
const maxNameLength = 200

// SanitizeName sanitizes a display name: trims whitespace, strips control
// characters, escapes HTML, and clamps to maxNameLength runes.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = removeControlChars(name)

	if runes := []rune(name); len(runes) > maxNameLength {
		name = string(runes[:maxNameLength])
	}

	return html.EscapeString(name)
}

// removeControlChars removes control characters except newline and tab.
func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
