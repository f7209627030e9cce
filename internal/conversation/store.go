// Package conversation implements the Conversation Manager: loading and
// appending the per-conversation message log, and building the
// token-budgeted message sequence handed to the model for a single turn.
package conversation

import (
	"context"
	"errors"

	"github.com/procureflow/agent/pkg/models"
)

// ErrNotFound is returned by Store lookups that find nothing, including
// lookups where the conversation exists but belongs to a different user
// (spec: mismatched owner is "not found", not an authorization error).
var ErrNotFound = errors.New("conversation not found")

// Store is the persistence boundary for conversations (spec.md §6.3). It
// models a document store with per-conversation documents; callers outside
// this package never see storage internals.
type Store interface {
	// Find returns the conversation owned by userID, or ErrNotFound.
	// userID may be empty for anonymous conversations.
	Find(ctx context.Context, conversationID, userID string) (*models.Conversation, error)

	// Insert persists a brand-new conversation and returns it unchanged.
	Insert(ctx context.Context, conv *models.Conversation) (*models.Conversation, error)

	// AppendMessages atomically appends messages to an existing
	// conversation's log.
	AppendMessages(ctx context.Context, conversationID string, messages []models.Message) error

	// UpdateMetadata patches the denormalized listing fields of a
	// conversation without touching its message log.
	UpdateMetadata(ctx context.Context, conversationID string, update MetadataUpdate) error

	// ListByUser returns up to limit conversation summaries for userID,
	// most recently updated first.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.ConversationSummary, error)
}

// MetadataUpdate carries the optional fields UpdateMetadata may patch.
// A nil field is left unchanged.
type MetadataUpdate struct {
	Title              *string
	LastMessagePreview *string
}
