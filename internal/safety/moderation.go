package safety

import (
	"context"

	"github.com/procureflow/agent/internal/observability"
)

// ModerationResult is one provider moderation call's verdict.
type ModerationResult struct {
	Flagged    bool
	Categories []string
}

// Moderator calls an external content-moderation service. Providers
// implement this against their own moderation endpoint (e.g. the
// OpenAI moderation API); the orchestrator only depends on this
// narrow interface.
type Moderator interface {
	Moderate(ctx context.Context, content string) (ModerationResult, error)
}

// Gate wraps a Moderator with the fail-open policy spec.md §4.5 step 4
// requires: moderation API failures are logged and let the message
// through rather than blocking the turn on an availability problem in
// a safety dependency.
type Gate struct {
	moderator Moderator
	enabled   bool
	logger    *observability.Logger
}

// NewGate builds a moderation Gate. moderator may be nil when enabled
// is false.
func NewGate(moderator Moderator, enabled bool, logger *observability.Logger) *Gate {
	return &Gate{moderator: moderator, enabled: enabled, logger: logger}
}

// Check runs moderation over content when the gate is enabled. It
// returns flagged=true only on an explicit, successful moderation hit;
// a disabled gate or a moderator error both return flagged=false.
func (g *Gate) Check(ctx context.Context, content string) (flagged bool, categories []string) {
	if !g.enabled || g.moderator == nil {
		return false, nil
	}

	result, err := g.moderator.Moderate(ctx, content)
	if err != nil {
		g.logger.Warn(ctx, "moderation check failed, allowing message through", "error", err)
		return false, nil
	}
	return result.Flagged, result.Categories
}
