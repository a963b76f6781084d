package validators

import "strings"

// SanitizeString trims surrounding whitespace from caller-supplied free text
// and caps it at maxLen runes. A maxLen of zero disables the cap. Truncation
// is rune-aware so multibyte guest names never get split mid-character.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 {
		return trimmed
	}
	runes := []rune(trimmed)
	if len(runes) <= maxLen {
		return trimmed
	}
	return string(runes[:maxLen])
}
