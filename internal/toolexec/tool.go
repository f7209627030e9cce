// Package toolexec implements the Tool Executor (C4, spec.md §4.4):
// schema validation, authorization, timeout-bounded execution, and
// result enveloping for one registered tool call.
package toolexec

import (
	"context"
	"encoding/json"
)

// ExecContext carries the caller identity a Tool needs to act on the
// user's behalf. ConversationID is informational only; UserID gates
// authorization for tools that require a signed-in user.
type ExecContext struct {
	UserID         string
	ConversationID string
}

// Tool is one registered, schema-validated action the model can
// invoke. Execute is only ever called with args that already passed
// schema validation; it should return a JSON-encodable result, never
// panic on malformed input it hasn't declared in its schema.
type Tool interface {
	// Name is the bit-exact tool name advertised to the model and used
	// for ToolCall.Name matching (spec.md §6.2).
	Name() string

	// Description is shown to the model so it knows when to call this
	// tool.
	Description() string

	// Schema is the JSON Schema validated against before Execute runs,
	// and the same schema advertised to the provider.
	Schema() json.RawMessage

	// RequiresUser reports whether this tool needs ExecContext.UserID
	// to be non-empty (spec.md §4.4 authorization).
	RequiresUser() bool

	// Execute runs the tool and returns a JSON-encodable result.
	Execute(ctx context.Context, args json.RawMessage, execCtx ExecContext) (any, error)
}

// CrossFieldValidator is implemented by tools whose schema alone
// cannot express a validation rule (e.g. minPrice ≤ maxPrice). The
// Executor calls ValidateCrossFields after schema validation succeeds.
type CrossFieldValidator interface {
	ValidateCrossFields(args json.RawMessage) error
}

// Descriptor is the backend-neutral tool description handed to the
// Provider Adapter (C2) so it can advertise tools to the model.
type Descriptor struct {
	Name        string
	Description string
	Schema      json.RawMessage
}
