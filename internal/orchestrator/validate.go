package orchestrator

import (
	"github.com/procureflow/agent/internal/orcherr"
)

const (
	minMessageChars = 1
	maxMessageChars = 5000
)

// validateMessage enforces the request-schema bound on the user
// message (spec.md §4.6): 1..5000 characters after trimming.
func validateMessage(trimmed string) error {
	n := len([]rune(trimmed))
	if n < minMessageChars {
		return orcherr.New(orcherr.CodeValidationFailed, "message must not be empty")
	}
	if n > maxMessageChars {
		return orcherr.New(orcherr.CodeValidationFailed, "message exceeds the 5000 character limit")
	}
	return nil
}
