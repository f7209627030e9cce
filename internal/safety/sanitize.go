// Package safety implements the Orchestrator's input-safety gate
// (spec.md §4.6): control-character stripping, whitespace
// normalization, and a prompt-injection heuristic run before a turn
// ever reaches the Conversation Manager.
package safety

import (
	"strings"
	"unicode"
)

// Sanitize strips control characters other than \n and \t, then
// collapses runs of whitespace, matching spec.md §4.5 pre-flight
// step 2.
func Sanitize(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return normalizeWhitespace(b.String())
}

// normalizeWhitespace collapses runs of horizontal whitespace to a
// single space, line by line, while leaving newlines as turn
// boundaries.
func normalizeWhitespace(input string) string {
	lines := strings.Split(input, "\n")
	for i, line := range lines {
		fields := strings.Fields(line)
		lines[i] = strings.Join(fields, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
