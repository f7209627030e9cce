// Package commerce implements the five registered tools of spec.md
// §6.2 (search_catalog, add_to_cart, remove_from_cart, get_cart,
// checkout) against an in-memory catalog and per-user cart store.
package commerce

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/procureflow/agent/pkg/models"
)

// ErrItemNotFound is returned when an itemId doesn't resolve to a
// catalog entry.
type ErrItemNotFound struct {
	ItemID string
}

func (e *ErrItemNotFound) Error() string {
	return fmt.Sprintf("item not found: %s", e.ItemID)
}

// ErrCartEmpty is returned by checkout when the user's cart has no lines.
var ErrCartEmpty = fmt.Errorf("cart is empty")

// Store is an in-memory catalog and per-user cart/purchase-request
// store. It is the concrete backend the five commerce tools and
// conversation.CartProvider (cart-context injection, spec.md §4.1)
// both read from.
type Store struct {
	mu        sync.RWMutex
	catalog   []models.CatalogItem
	carts     map[string]map[string]int // userID -> itemID -> quantity
	purchases map[string][]models.PurchaseRequest
}

// NewStore returns a Store seeded with catalog.
func NewStore(catalog []models.CatalogItem) *Store {
	return &Store{
		catalog:   catalog,
		carts:     make(map[string]map[string]int),
		purchases: make(map[string][]models.PurchaseRequest),
	}
}

// NewSeededStore returns a Store populated with a small built-in
// catalog, useful for local development and tests.
func NewSeededStore() *Store {
	return NewStore([]models.CatalogItem{
		{ID: "sku-001", Name: "Mechanical Keyboard", Category: "electronics", Description: "Hot-swappable 75% keyboard", Price: 129.00, Availability: "in_stock"},
		{ID: "sku-002", Name: "Wireless Mouse", Category: "electronics", Description: "Ergonomic wireless mouse", Price: 39.50, Availability: "in_stock"},
		{ID: "sku-003", Name: "USB-C Dock", Category: "electronics", Description: "10-port docking station", Price: 89.99, Availability: "low_stock"},
		{ID: "sku-004", Name: "Standing Desk", Category: "furniture", Description: "Electric height-adjustable desk", Price: 449.00, Availability: "in_stock"},
		{ID: "sku-005", Name: "Desk Lamp", Category: "furniture", Description: "LED desk lamp with USB charging", Price: 34.00, Availability: "in_stock"},
		{ID: "sku-006", Name: "Noise Cancelling Headphones", Category: "electronics", Description: "Over-ear ANC headphones", Price: 249.00, Availability: "out_of_stock"},
		{ID: "sku-007", Name: "Webcam", Category: "electronics", Description: "1080p USB webcam", Price: 59.99, Availability: "in_stock"},
		{ID: "sku-008", Name: "Office Chair", Category: "furniture", Description: "Mesh-back ergonomic chair", Price: 319.00, Availability: "in_stock"},
	})
}

// SearchParams bounds a search_catalog query (spec.md §6.2).
type SearchParams struct {
	Query    string
	Limit    int
	MinPrice *float64
	MaxPrice *float64
}

// Search returns catalog items matching params, sorted by name for
// deterministic output.
func (s *Store) Search(ctx context.Context, params SearchParams) []models.CatalogItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}

	query := strings.ToLower(strings.TrimSpace(params.Query))
	matches := make([]models.CatalogItem, 0, len(s.catalog))
	for _, item := range s.catalog {
		if query != "" && !strings.Contains(strings.ToLower(item.Name), query) &&
			!strings.Contains(strings.ToLower(item.Description), query) &&
			!strings.Contains(strings.ToLower(item.Category), query) {
			continue
		}
		if params.MinPrice != nil && item.Price < *params.MinPrice {
			continue
		}
		if params.MaxPrice != nil && item.Price > *params.MaxPrice {
			continue
		}
		matches = append(matches, item)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func (s *Store) findItem(itemID string) (models.CatalogItem, bool) {
	for _, item := range s.catalog {
		if item.ID == itemID {
			return item, true
		}
	}
	return models.CatalogItem{}, false
}

// AddToCart increments itemID's quantity in userID's cart by quantity,
// returning the resulting cart snapshot.
func (s *Store) AddToCart(ctx context.Context, userID, itemID string, quantity int) (*models.Cart, error) {
	item, ok := s.findItem(itemID)
	if !ok {
		return nil, &ErrItemNotFound{ItemID: itemID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[userID]
	if !ok {
		cart = make(map[string]int)
		s.carts[userID] = cart
	}
	cart[item.ID] += quantity
	return s.snapshotLocked(userID), nil
}

// RemoveFromCart removes itemID entirely from userID's cart, returning
// the resulting cart snapshot. Removing an item not in the cart is a
// no-op, not an error.
func (s *Store) RemoveFromCart(ctx context.Context, userID, itemID string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cart, ok := s.carts[userID]; ok {
		delete(cart, itemID)
	}
	return s.snapshotLocked(userID), nil
}

// GetCart implements conversation.CartProvider, satisfying the
// cart-context injection boundary (spec.md §4.1) as well as the
// get_cart tool.
func (s *Store) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(userID), nil
}

// snapshotLocked must be called with s.mu held (read or write).
func (s *Store) snapshotLocked(userID string) *models.Cart {
	lines := make([]models.CartLine, 0, len(s.carts[userID]))
	var total float64
	var count int
	for itemID, qty := range s.carts[userID] {
		if qty <= 0 {
			continue
		}
		item, ok := s.findItem(itemID)
		if !ok {
			continue
		}
		lines = append(lines, models.CartLine{ItemID: item.ID, ItemName: item.Name, ItemPrice: item.Price, Quantity: qty})
		total += item.Price * float64(qty)
		count += qty
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ItemID < lines[j].ItemID })

	cart := &models.Cart{Items: lines, TotalCost: round2(total), ItemCount: count}
	if len(lines) == 0 {
		cart.Message = "empty"
	}
	return cart
}

// Checkout converts userID's current cart into a PurchaseRequest and
// empties the cart. notes is accepted but not persisted beyond the
// purchase record's lifetime in this in-memory store.
func (s *Store) Checkout(ctx context.Context, userID, notes string) (*models.PurchaseRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.snapshotLocked(userID)
	if len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}

	req := models.PurchaseRequest{
		ID:        uuid.NewString(),
		TotalCost: cart.TotalCost,
		ItemCount: cart.ItemCount,
		Status:    "confirmed",
		CreatedAt: timeNow(),
	}
	s.purchases[userID] = append(s.purchases[userID], req)
	delete(s.carts, userID)
	return &req, nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

var timeNow = time.Now
