package conversation

import (
	"fmt"
	"strings"

	"github.com/procureflow/agent/pkg/models"
)

// formatCartContext renders a deterministic, line-per-item description
// of a cart for injection into the model's context. No personally
// identifying fields beyond item names/prices are included (spec.md
// §4.1 "Cart context formatting").
func formatCartContext(cart *models.Cart) string {
	if cart == nil || len(cart.Items) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Current cart:\n")
	for _, line := range cart.Items {
		subtotal := line.ItemPrice * float64(line.Quantity)
		fmt.Fprintf(&b, "- %s x%d @ $%.2f = $%.2f\n", line.ItemName, line.Quantity, line.ItemPrice, subtotal)
	}
	fmt.Fprintf(&b, "Total: $%.2f (%d item%s)", cart.TotalCost, cart.ItemCount, plural(cart.ItemCount))
	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
