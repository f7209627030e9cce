// Package tokenizer provides model-aware token counting for the
// orchestration core, with a conservative character-based fallback for
// models it doesn't recognize.
package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// charsPerToken is the conservative fallback ratio used when a model has
// no known encoding: roughly 4 characters per token.
const charsPerToken = 4.0

// perMessageOverhead approximates the fixed token cost of role/formatting
// wrapper around each message in a chat-formatted prompt.
const perMessageOverhead = 4

// modelWindows maps known model IDs to their context window size in
// tokens. Lookup falls back to longest-prefix match, then to
// defaultWindow when nothing matches.
var modelWindows = map[string]int{
	"claude-3-opus":     200000,
	"claude-3-sonnet":    200000,
	"claude-3-haiku":     200000,
	"claude-3-5-sonnet":  200000,
	"claude-3-5-haiku":   200000,
	"claude-opus-4":      200000,
	"claude-sonnet-4":    200000,

	"gpt-4":             8192,
	"gpt-4-32k":         32768,
	"gpt-4-turbo":       128000,
	"gpt-4o":            128000,
	"gpt-4o-mini":       128000,
	"gpt-3.5-turbo":     16385,
	"o1":                200000,
	"o1-mini":           128000,
	"o3-mini":           200000,
}

const defaultWindow = 128000

// Count is a token count, tagged with whether it was computed by the
// estimator rather than a model-specific encoding.
type Count struct {
	Tokens    int
	Estimated bool
}

// CountText estimates the number of tokens in a single piece of text for
// the given model. No model in this core has a first-party tokenizer
// wired in, so every count is currently an estimate; the model parameter
// is kept so a future model-specific encoder can slot in without
// changing callers.
func CountText(model, text string) Count {
	return Count{Tokens: estimate(text), Estimated: true}
}

// CountMessages estimates the total tokens across a batch of message
// contents, including a small per-message formatting overhead.
func CountMessages(model string, contents []string) Count {
	total := 0
	for _, c := range contents {
		total += estimate(c) + perMessageOverhead
	}
	return Count{Tokens: total, Estimated: true}
}

func estimate(text string) int {
	chars := utf8.RuneCountInString(text)
	if chars == 0 {
		return 0
	}
	tokens := int(float64(chars) / charsPerToken)
	if tokens == 0 {
		return 1
	}
	return tokens
}

// WindowFor returns the context window size in tokens for a model ID,
// matching exactly first, then by longest known prefix, then falling
// back to defaultWindow.
func WindowFor(modelID string) int {
	if w, ok := modelWindows[modelID]; ok {
		return w
	}
	bestPrefix := ""
	bestWindow := 0
	for prefix, w := range modelWindows {
		if strings.HasPrefix(modelID, prefix) && len(prefix) > len(bestPrefix) {
			bestPrefix = prefix
			bestWindow = w
		}
	}
	if bestPrefix != "" {
		return bestWindow
	}
	return defaultWindow
}
