package commerce

import (
	"context"
	"encoding/json"

	"github.com/procureflow/agent/internal/toolexec"
	"github.com/procureflow/agent/pkg/models"
)

var checkoutSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"notes": {"type": "string", "maxLength": 2000}
	},
	"additionalProperties": false
}`)

type checkoutArgs struct {
	Notes string `json:"notes,omitempty"`
}

type checkoutResult struct {
	Success         bool                `json:"success"`
	PurchaseRequest purchaseRequestView `json:"purchaseRequest"`
}

type purchaseRequestView struct {
	ID        string  `json:"id"`
	TotalCost float64 `json:"totalCost"`
	ItemCount int     `json:"itemCount"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
}

// CheckoutTool implements the checkout tool (spec.md §6.2): requires a
// signed-in user, fails if the cart is empty.
type CheckoutTool struct {
	store *Store
}

// NewCheckoutTool wires store into the checkout tool.
func NewCheckoutTool(store *Store) *CheckoutTool {
	return &CheckoutTool{store: store}
}

func (t *CheckoutTool) Name() string            { return "checkout" }
func (t *CheckoutTool) Description() string     { return "Convert the current user's cart into a purchase request." }
func (t *CheckoutTool) Schema() json.RawMessage { return checkoutSchema }
func (t *CheckoutTool) RequiresUser() bool      { return true }

func (t *CheckoutTool) Execute(ctx context.Context, raw json.RawMessage, execCtx toolexec.ExecContext) (any, error) {
	var args checkoutArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}

	req, err := t.store.Checkout(ctx, execCtx.UserID, args.Notes)
	if err != nil {
		return nil, err
	}

	return checkoutResult{Success: true, PurchaseRequest: toPurchaseRequestView(req)}, nil
}

func toPurchaseRequestView(req *models.PurchaseRequest) purchaseRequestView {
	return purchaseRequestView{
		ID:        req.ID,
		TotalCost: req.TotalCost,
		ItemCount: req.ItemCount,
		Status:    req.Status,
		CreatedAt: req.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
