package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/procureflow/agent/pkg/models"
)

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// accumulator builds up a turn's MessageMetadata as tool results
// arrive, per tool-specific extraction rules (spec.md §4.5 step 3c):
// items from search_catalog; cart snapshot from add_to_cart/
// remove_from_cart/get_cart; checkoutConfirmation from checkout.
type accumulator struct {
	meta models.MessageMetadata
	any  bool
}

func (a *accumulator) absorb(toolName string, content []byte) {
	switch toolName {
	case "search_catalog":
		var payload struct {
			Items []models.CatalogItem `json:"items"`
		}
		if json.Unmarshal(content, &payload) == nil && len(payload.Items) > 0 {
			a.meta.Items = append(a.meta.Items, payload.Items...)
			a.any = true
		}

	case "add_to_cart", "remove_from_cart":
		var payload struct {
			Success bool        `json:"success"`
			Cart    cartPayload `json:"cart"`
		}
		if json.Unmarshal(content, &payload) == nil && payload.Success {
			cart := payload.Cart.toModel()
			a.meta.Cart = &cart
			a.any = true
		}

	case "get_cart":
		var payload cartPayload
		if json.Unmarshal(content, &payload) == nil {
			cart := payload.toModel()
			a.meta.Cart = &cart
			a.any = true
		}

	case "checkout":
		var payload struct {
			Success         bool                   `json:"success"`
			PurchaseRequest purchaseRequestPayload `json:"purchaseRequest"`
		}
		if json.Unmarshal(content, &payload) == nil && payload.Success {
			req := payload.PurchaseRequest.toModel()
			a.meta.CheckoutConfirmation = &models.CheckoutConfirmation{
				Success:         true,
				PurchaseRequest: &req,
			}
			a.any = true
		}
	}
}

// result returns the accumulated metadata, or nil if nothing was
// absorbed this turn (invariant 4 attaches metadata only when present).
func (a *accumulator) result() *models.MessageMetadata {
	if !a.any {
		return nil
	}
	return &a.meta
}

type cartPayload struct {
	Items     []cartLinePayload `json:"items"`
	TotalCost float64           `json:"totalCost"`
	ItemCount int               `json:"itemCount"`
	Message   string            `json:"message,omitempty"`
}

type cartLinePayload struct {
	ItemID    string  `json:"itemId"`
	ItemName  string  `json:"itemName"`
	ItemPrice float64 `json:"itemPrice"`
	Quantity  int     `json:"quantity"`
}

func (p cartPayload) toModel() models.Cart {
	lines := make([]models.CartLine, 0, len(p.Items))
	for _, l := range p.Items {
		lines = append(lines, models.CartLine{ItemID: l.ItemID, ItemName: l.ItemName, ItemPrice: l.ItemPrice, Quantity: l.Quantity})
	}
	return models.Cart{Items: lines, TotalCost: p.TotalCost, ItemCount: p.ItemCount, Message: p.Message}
}

type purchaseRequestPayload struct {
	ID        string  `json:"id"`
	TotalCost float64 `json:"totalCost"`
	ItemCount int     `json:"itemCount"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
}

func (p purchaseRequestPayload) toModel() models.PurchaseRequest {
	createdAt, _ := parseTime(p.CreatedAt)
	return models.PurchaseRequest{
		ID:        p.ID,
		TotalCost: p.TotalCost,
		ItemCount: p.ItemCount,
		Status:    p.Status,
		CreatedAt: createdAt,
	}
}
