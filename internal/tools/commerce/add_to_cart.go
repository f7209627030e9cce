package commerce

import (
	"context"
	"encoding/json"

	"github.com/procureflow/agent/internal/toolexec"
)

var addToCartSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"itemId": {"type": "string", "minLength": 1},
		"quantity": {"type": "integer", "minimum": 1, "maximum": 1000}
	},
	"required": ["itemId"],
	"additionalProperties": false
}`)

type addToCartArgs struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity,omitempty"`
}

type cartToolResult struct {
	Success bool     `json:"success"`
	Cart    cartView `json:"cart"`
}

type cartView struct {
	Items     []cartLineView `json:"items"`
	TotalCost float64        `json:"totalCost"`
	ItemCount int            `json:"itemCount"`
	Message   string         `json:"message,omitempty"`
}

type cartLineView struct {
	ItemID    string  `json:"itemId"`
	ItemName  string  `json:"itemName"`
	ItemPrice float64 `json:"itemPrice"`
	Quantity  int     `json:"quantity"`
}

// AddToCartTool implements the add_to_cart tool (spec.md §6.2):
// requires a signed-in user.
type AddToCartTool struct {
	store *Store
}

// NewAddToCartTool wires store into the add_to_cart tool.
func NewAddToCartTool(store *Store) *AddToCartTool {
	return &AddToCartTool{store: store}
}

func (t *AddToCartTool) Name() string            { return "add_to_cart" }
func (t *AddToCartTool) Description() string     { return "Add an item to the current user's cart." }
func (t *AddToCartTool) Schema() json.RawMessage { return addToCartSchema }
func (t *AddToCartTool) RequiresUser() bool      { return true }

func (t *AddToCartTool) Execute(ctx context.Context, raw json.RawMessage, execCtx toolexec.ExecContext) (any, error) {
	var args addToCartArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	quantity := args.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	cart, err := t.store.AddToCart(ctx, execCtx.UserID, args.ItemID, quantity)
	if err != nil {
		return nil, err
	}

	return cartToolResult{Success: true, Cart: toCartView(cart)}, nil
}
