package util

import "strings"

// DisplaySnippet collapses whitespace and truncates to maxRunes for display
// alongside retrieval results.
func DisplaySnippet(s string, maxRunes int) string {
	s = strings.Join(strings.Fields(SanitizeText(s)), " ")
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "..."
}
