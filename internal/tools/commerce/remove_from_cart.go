package commerce

import (
	"context"
	"encoding/json"

	"github.com/procureflow/agent/internal/toolexec"
)

var removeFromCartSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"itemId": {"type": "string", "minLength": 1}
	},
	"required": ["itemId"],
	"additionalProperties": false
}`)

type removeFromCartArgs struct {
	ItemID string `json:"itemId"`
}

// RemoveFromCartTool implements the remove_from_cart tool (spec.md
// §6.2): requires a signed-in user.
type RemoveFromCartTool struct {
	store *Store
}

// NewRemoveFromCartTool wires store into the remove_from_cart tool.
func NewRemoveFromCartTool(store *Store) *RemoveFromCartTool {
	return &RemoveFromCartTool{store: store}
}

func (t *RemoveFromCartTool) Name() string            { return "remove_from_cart" }
func (t *RemoveFromCartTool) Description() string     { return "Remove an item from the current user's cart." }
func (t *RemoveFromCartTool) Schema() json.RawMessage { return removeFromCartSchema }
func (t *RemoveFromCartTool) RequiresUser() bool      { return true }

func (t *RemoveFromCartTool) Execute(ctx context.Context, raw json.RawMessage, execCtx toolexec.ExecContext) (any, error) {
	var args removeFromCartArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}

	cart, err := t.store.RemoveFromCart(ctx, execCtx.UserID, args.ItemID)
	if err != nil {
		return nil, err
	}

	return cartToolResult{Success: true, Cart: toCartView(cart)}, nil
}
