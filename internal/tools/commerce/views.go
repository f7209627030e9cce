package commerce

import "github.com/procureflow/agent/pkg/models"

// toCartView projects a models.Cart into the JSON shape returned to
// the model by add_to_cart, remove_from_cart, and get_cart (spec.md
// §6.2).
func toCartView(cart *models.Cart) cartView {
	lines := make([]cartLineView, 0, len(cart.Items))
	for _, line := range cart.Items {
		lines = append(lines, cartLineView{
			ItemID:    line.ItemID,
			ItemName:  line.ItemName,
			ItemPrice: line.ItemPrice,
			Quantity:  line.Quantity,
		})
	}
	return cartView{
		Items:     lines,
		TotalCost: cart.TotalCost,
		ItemCount: cart.ItemCount,
		Message:   cart.Message,
	}
}
