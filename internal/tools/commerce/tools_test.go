package commerce

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/procureflow/agent/internal/observability"
	"github.com/procureflow/agent/internal/toolexec"
)

func newTestExecutor(t *testing.T, store *Store) *toolexec.Executor {
	t.Helper()
	reg := toolexec.NewToolRegistry()
	tools := []toolexec.Tool{
		NewSearchCatalogTool(store),
		NewAddToCartTool(store),
		NewRemoveFromCartTool(store),
		NewGetCartTool(store),
		NewCheckoutTool(store),
	}
	for _, tool := range tools {
		if err := reg.Register(tool); err != nil {
			t.Fatalf("Register(%s): %v", tool.Name(), err)
		}
	}

	logger := observability.NewLogger(observability.LogConfig{Output: io.Discard})
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return toolexec.NewExecutor(reg, 1000, metrics, logger)
}

func TestSearchCatalogEndToEnd(t *testing.T) {
	ex := newTestExecutor(t, NewSeededStore())
	result := ex.Execute(context.Background(), toolexec.Request{
		ToolName:   "search_catalog",
		Args:       json.RawMessage(`{"query": "keyboard"}`),
		ToolCallID: "call-1",
	})
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}

	var decoded searchCatalogResult
	if err := json.Unmarshal([]byte(result.Message.Content), &decoded); err != nil {
		t.Fatalf("decoding content: %v", err)
	}
	if decoded.Count != 1 || decoded.Items[0].Name != "Mechanical Keyboard" {
		t.Errorf("unexpected result: %+v", decoded)
	}
}

func TestSearchCatalogRejectsMinPriceAboveMaxPrice(t *testing.T) {
	ex := newTestExecutor(t, NewSeededStore())
	result := ex.Execute(context.Background(), toolexec.Request{
		ToolName:   "search_catalog",
		Args:       json.RawMessage(`{"query": "desk", "minPrice": 500, "maxPrice": 10}`),
		ToolCallID: "call-2",
	})
	if result.Success {
		t.Fatal("expected cross-field rejection")
	}
}

func TestAddToCartRequiresUser(t *testing.T) {
	ex := newTestExecutor(t, NewSeededStore())
	result := ex.Execute(context.Background(), toolexec.Request{
		ToolName:   "add_to_cart",
		Args:       json.RawMessage(`{"itemId": "sku-001"}`),
		ToolCallID: "call-3",
	})
	if result.Success {
		t.Fatal("expected unauthorized failure without a user")
	}
}

func TestAddToCartDefaultsQuantityToOne(t *testing.T) {
	store := NewSeededStore()
	ex := newTestExecutor(t, store)

	result := ex.Execute(context.Background(), toolexec.Request{
		ToolName:   "add_to_cart",
		Args:       json.RawMessage(`{"itemId": "sku-002"}`),
		ToolCallID: "call-4",
		UserID:     "user-1",
	})
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}

	var decoded cartToolResult
	if err := json.Unmarshal([]byte(result.Message.Content), &decoded); err != nil {
		t.Fatalf("decoding content: %v", err)
	}
	if decoded.Cart.ItemCount != 1 {
		t.Errorf("ItemCount = %d, want 1", decoded.Cart.ItemCount)
	}
}

func TestAddToCartUnknownItemFails(t *testing.T) {
	ex := newTestExecutor(t, NewSeededStore())
	result := ex.Execute(context.Background(), toolexec.Request{
		ToolName:   "add_to_cart",
		Args:       json.RawMessage(`{"itemId": "does-not-exist"}`),
		ToolCallID: "call-5",
		UserID:     "user-1",
	})
	if result.Success {
		t.Fatal("expected failure for unknown item")
	}
}

func TestGetCartRoundTripsThroughAddAndRemove(t *testing.T) {
	store := NewSeededStore()
	ex := newTestExecutor(t, store)
	ctx := context.Background()

	ex.Execute(ctx, toolexec.Request{
		ToolName: "add_to_cart",
		Args:     json.RawMessage(`{"itemId": "sku-001", "quantity": 3}`),
		UserID:   "user-1",
	})

	getResult := ex.Execute(ctx, toolexec.Request{ToolName: "get_cart", Args: json.RawMessage(`{}`), UserID: "user-1"})
	if !getResult.Success {
		t.Fatalf("get_cart failed: %s", getResult.Error)
	}
	var cart cartView
	if err := json.Unmarshal([]byte(getResult.Message.Content), &cart); err != nil {
		t.Fatalf("decoding cart: %v", err)
	}
	if cart.ItemCount != 3 {
		t.Fatalf("ItemCount = %d, want 3", cart.ItemCount)
	}

	removeResult := ex.Execute(ctx, toolexec.Request{
		ToolName: "remove_from_cart",
		Args:     json.RawMessage(`{"itemId": "sku-001"}`),
		UserID:   "user-1",
	})
	if !removeResult.Success {
		t.Fatalf("remove_from_cart failed: %s", removeResult.Error)
	}

	final := ex.Execute(ctx, toolexec.Request{ToolName: "get_cart", Args: json.RawMessage(`{}`), UserID: "user-1"})
	var finalCart cartView
	if err := json.Unmarshal([]byte(final.Message.Content), &finalCart); err != nil {
		t.Fatalf("decoding cart: %v", err)
	}
	if finalCart.Message != "empty" {
		t.Errorf("expected empty cart after removal, got %+v", finalCart)
	}
}

func TestCheckoutFailsOnEmptyCart(t *testing.T) {
	ex := newTestExecutor(t, NewSeededStore())
	result := ex.Execute(context.Background(), toolexec.Request{
		ToolName: "checkout",
		Args:     json.RawMessage(`{}`),
		UserID:   "user-1",
	})
	if result.Success {
		t.Fatal("expected failure for empty-cart checkout")
	}
}

func TestCheckoutSucceedsAfterAddingItems(t *testing.T) {
	store := NewSeededStore()
	ex := newTestExecutor(t, store)
	ctx := context.Background()

	ex.Execute(ctx, toolexec.Request{
		ToolName: "add_to_cart",
		Args:     json.RawMessage(`{"itemId": "sku-003", "quantity": 1}`),
		UserID:   "user-1",
	})

	result := ex.Execute(ctx, toolexec.Request{
		ToolName: "checkout",
		Args:     json.RawMessage(`{"notes": "ship ASAP"}`),
		UserID:   "user-1",
	})
	if !result.Success {
		t.Fatalf("checkout failed: %s", result.Error)
	}

	var decoded checkoutResult
	if err := json.Unmarshal([]byte(result.Message.Content), &decoded); err != nil {
		t.Fatalf("decoding content: %v", err)
	}
	if !decoded.Success || decoded.PurchaseRequest.ID == "" {
		t.Errorf("unexpected result: %+v", decoded)
	}
}
