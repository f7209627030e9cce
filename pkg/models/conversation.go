// Package models defines the entities shared across the orchestration
// core: conversations, messages, tool calls, and the structured payloads
// a turn accumulates (catalog items, cart snapshots, purchase requests).
package models

import (
	"encoding/json"
	"time"
)

// Sender identifies who authored a Message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAgent     Sender = "agent"
	SenderSystem    Sender = "system"
	SenderTool      Sender = "tool"
)

// ConversationStatus tracks the lifecycle state of a Conversation.
type ConversationStatus string

const (
	StatusInProgress ConversationStatus = "in_progress"
	StatusCompleted  ConversationStatus = "completed"
	StatusAbandoned  ConversationStatus = "abandoned"
)

// Conversation is an ordered, append-only log per (userID, conversationID).
type Conversation struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"userId,omitempty"`
	Title              string             `json:"title,omitempty"`
	LastMessagePreview string             `json:"lastMessagePreview,omitempty"`
	Status             ConversationStatus `json:"status"`
	Messages           []Message          `json:"messages"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// Message is a single atomic entry in a Conversation's log.
//
// ToolCallID is only set when Sender == SenderTool, correlating the
// result with a prior agent tool-call intent. Metadata only ever lives
// on the last agent message of a turn (see invariant 4/5 in spec.md §3.2).
type Message struct {
	ID         string            `json:"id"`
	Sender     Sender            `json:"sender"`
	Content    string            `json:"content"`
	CreatedAt  time.Time         `json:"createdAt"`
	ToolCallID string            `json:"toolCallId,omitempty"`
	ToolCalls  []ToolCall        `json:"toolCalls,omitempty"`
	Metadata   *MessageMetadata  `json:"metadata,omitempty"`
}

// ToolCall is the model's structured intent to execute a registered tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// MessageMetadata is the aggregated structured payload a turn produces,
// attached to the final agent message of that turn (spec.md §3.2 invariant 4).
type MessageMetadata struct {
	Items                []CatalogItem         `json:"items,omitempty"`
	Cart                 *Cart                 `json:"cart,omitempty"`
	CheckoutConfirmation *CheckoutConfirmation `json:"checkoutConfirmation,omitempty"`
	PurchaseRequest      *PurchaseRequest      `json:"purchaseRequest,omitempty"`
}

// CatalogItem is a single search result returned by search_catalog.
type CatalogItem struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category,omitempty"`
	Description  string  `json:"description,omitempty"`
	Price        float64 `json:"price"`
	Availability string  `json:"availability,omitempty"`
}

// CartLine is one line item within a Cart snapshot.
type CartLine struct {
	ItemID   string  `json:"itemId"`
	ItemName string  `json:"itemName"`
	ItemPrice float64 `json:"itemPrice"`
	Quantity int     `json:"quantity"`
}

// Cart is a snapshot of a user's cart, returned by add_to_cart,
// remove_from_cart, and get_cart.
type Cart struct {
	Items      []CartLine `json:"items"`
	TotalCost  float64    `json:"totalCost"`
	ItemCount  int        `json:"itemCount"`
	Message    string     `json:"message,omitempty"`
}

// CheckoutConfirmation wraps the outcome of a checkout tool call.
type CheckoutConfirmation struct {
	Success         bool             `json:"success"`
	PurchaseRequest *PurchaseRequest `json:"purchaseRequest,omitempty"`
}

// PurchaseRequest is the domain object created by a successful checkout.
type PurchaseRequest struct {
	ID        string    `json:"id"`
	TotalCost float64   `json:"totalCost"`
	ItemCount int       `json:"itemCount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConversationSummary is the lightweight projection used for listings.
type ConversationSummary struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"userId,omitempty"`
	Title              string             `json:"title,omitempty"`
	LastMessagePreview string             `json:"lastMessagePreview,omitempty"`
	Status             ConversationStatus `json:"status"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// Summary projects a full Conversation down to its listing fields.
func (c *Conversation) Summary() ConversationSummary {
	return ConversationSummary{
		ID:                 c.ID,
		UserID:             c.UserID,
		Title:              c.Title,
		LastMessagePreview: c.LastMessagePreview,
		Status:             c.Status,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}
