package commerce

import (
	"context"
	"encoding/json"

	"github.com/procureflow/agent/internal/toolexec"
)

var getCartSchema = json.RawMessage(`{
	"type": "object",
	"properties": {},
	"additionalProperties": false
}`)

// GetCartTool implements the get_cart tool (spec.md §6.2): requires a
// signed-in user, no arguments.
type GetCartTool struct {
	store *Store
}

// NewGetCartTool wires store into the get_cart tool.
func NewGetCartTool(store *Store) *GetCartTool {
	return &GetCartTool{store: store}
}

func (t *GetCartTool) Name() string            { return "get_cart" }
func (t *GetCartTool) Description() string     { return "Return the current user's cart contents." }
func (t *GetCartTool) Schema() json.RawMessage { return getCartSchema }
func (t *GetCartTool) RequiresUser() bool      { return true }

func (t *GetCartTool) Execute(ctx context.Context, raw json.RawMessage, execCtx toolexec.ExecContext) (any, error) {
	cart, err := t.store.GetCart(ctx, execCtx.UserID)
	if err != nil {
		return nil, err
	}
	return toCartView(cart), nil
}
