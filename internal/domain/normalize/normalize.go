// Package normalize maps free text to the canonical comparison key shared by
// every index and query. Building names are often typed without their spaces
// ("래미안 퍼스티지" vs "래미안퍼스티지"), so whitespace is removed, not collapsed.
package normalize

import (
	"strings"
	"unicode"
)

// Key trims, lowercases (locale-independent) and strips every whitespace rune.
// Key is idempotent: Key(Key(s)) == Key(s).
func Key(s string) string {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(lower))
	for _, r := range lower {
		if unicode.IsSpace(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
