package commerce

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/procureflow/agent/internal/toolexec"
)

var searchCatalogSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {"type": "string", "minLength": 1, "maxLength": 500},
		"limit": {"type": "integer", "minimum": 1, "maximum": 50},
		"maxPrice": {"type": "number", "exclusiveMinimum": 0},
		"minPrice": {"type": "number", "minimum": 0}
	},
	"required": ["query"],
	"additionalProperties": false
}`)

type searchCatalogArgs struct {
	Query    string   `json:"query"`
	Limit    int      `json:"limit,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
	MinPrice *float64 `json:"minPrice,omitempty"`
}

type searchCatalogResult struct {
	Items []catalogItemView `json:"items"`
	Count int               `json:"count"`
}

type catalogItemView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category,omitempty"`
	Description  string  `json:"description,omitempty"`
	Price        float64 `json:"price"`
	Availability string  `json:"availability,omitempty"`
}

// SearchCatalogTool implements the search_catalog tool (spec.md §6.2):
// open to any caller, no authorization required.
type SearchCatalogTool struct {
	store *Store
}

// NewSearchCatalogTool wires store into the search_catalog tool.
func NewSearchCatalogTool(store *Store) *SearchCatalogTool {
	return &SearchCatalogTool{store: store}
}

func (t *SearchCatalogTool) Name() string        { return "search_catalog" }
func (t *SearchCatalogTool) Description() string { return "Search the product catalog by keyword, with optional price bounds." }
func (t *SearchCatalogTool) Schema() json.RawMessage { return searchCatalogSchema }
func (t *SearchCatalogTool) RequiresUser() bool      { return false }

// ValidateCrossFields enforces minPrice <= maxPrice, a constraint the
// JSON Schema above can't express on its own (spec.md §6.2).
func (t *SearchCatalogTool) ValidateCrossFields(raw json.RawMessage) error {
	var args searchCatalogArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return err
	}
	if args.MinPrice != nil && args.MaxPrice != nil && *args.MinPrice > *args.MaxPrice {
		return fmt.Errorf("minPrice must be <= maxPrice")
	}
	return nil
}

func (t *SearchCatalogTool) Execute(ctx context.Context, raw json.RawMessage, execCtx toolexec.ExecContext) (any, error) {
	var args searchCatalogArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}

	items := t.store.Search(ctx, SearchParams{
		Query:    args.Query,
		Limit:    args.Limit,
		MinPrice: args.MinPrice,
		MaxPrice: args.MaxPrice,
	})

	views := make([]catalogItemView, 0, len(items))
	for _, item := range items {
		views = append(views, catalogItemView{
			ID:           item.ID,
			Name:         item.Name,
			Category:     item.Category,
			Description:  item.Description,
			Price:        item.Price,
			Availability: item.Availability,
		})
	}

	return searchCatalogResult{Items: views, Count: len(views)}, nil
}
