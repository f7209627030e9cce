package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/procureflow/agent/internal/orcherr"
	"github.com/procureflow/agent/pkg/models"
)

// titleMaxChars and previewMaxChars bound the denormalized listing
// fields (spec.md §3.1, §4.1).
const (
	titleMaxChars   = 120
	previewMaxChars = 100
)

// GetOrCreate loads an existing conversation, or creates a new one when
// conversationID is empty. A fresh conversation's title is derived from
// the first user message.
func (m *Manager) GetOrCreate(ctx context.Context, conversationID, userID, firstUserMessage string) (*models.Conversation, error) {
	if conversationID != "" {
		conv, err := m.store.Find(ctx, conversationID, userID)
		if err == nil {
			return conv, nil
		}
		if err != ErrNotFound {
			return nil, orcherr.Wrap(orcherr.CodePersistenceFailed, "failed to load conversation", err)
		}
	}

	now := time.Now()
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     truncateRunes(strings.TrimSpace(firstUserMessage), titleMaxChars),
		Status:    models.StatusInProgress,
		Messages:  nil,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := m.store.Insert(ctx, conv)
	if err != nil {
		return nil, orcherr.Wrap(orcherr.CodePersistenceFailed, "failed to create conversation", err)
	}
	return created, nil
}

// AppendTurn persists the user message and the agent/tool messages a
// turn produced. Tool messages are internal to the reason-act loop and
// are dropped at this boundary (spec.md §4.1). Agent messages with
// empty trimmed content are dropped (invariant 3). Aggregated turn
// metadata, if any, is attached to the last surviving agent message
// (invariant 4).
func (m *Manager) AppendTurn(ctx context.Context, conversationID string, userMessage models.Message, turnMessages []models.Message, metadata *models.MessageMetadata) error {
	unlock := m.lockConversation(conversationID)
	defer unlock()

	toPersist := make([]models.Message, 0, len(turnMessages)+1)
	toPersist = append(toPersist, userMessage)

	lastAgentIdx := -1
	for _, msg := range turnMessages {
		switch msg.Sender {
		case models.SenderTool:
			continue
		case models.SenderAgent:
			if strings.TrimSpace(msg.Content) == "" {
				continue
			}
			lastAgentIdx = len(toPersist)
		}
		toPersist = append(toPersist, msg)
	}
	if metadata != nil && lastAgentIdx >= 0 {
		toPersist[lastAgentIdx].Metadata = metadata
	}

	if err := m.store.AppendMessages(ctx, conversationID, toPersist); err != nil {
		return orcherr.Wrap(orcherr.CodePersistenceFailed, "failed to append turn", err)
	}

	preview := previewOf(toPersist)
	if err := m.store.UpdateMetadata(ctx, conversationID, MetadataUpdate{
		LastMessagePreview: &preview,
	}); err != nil {
		return orcherr.Wrap(orcherr.CodePersistenceFailed, "failed to update conversation metadata", err)
	}
	return nil
}

// previewOf returns the preview-length truncation of the last
// non-empty message's content in messages, preferring the content a
// user actually reads (the final agent message) over internal payloads.
func previewOf(messages []models.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		content := strings.TrimSpace(messages[i].Content)
		if content != "" {
			return truncateRunes(content, previewMaxChars)
		}
	}
	return ""
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// ListConversations returns up to limit conversation summaries for userID.
func (m *Manager) ListConversations(ctx context.Context, userID string, limit int) ([]models.ConversationSummary, error) {
	summaries, err := m.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, orcherr.Wrap(orcherr.CodePersistenceFailed, "failed to list conversations", err)
	}
	return summaries, nil
}

// GetConversationSummary returns the summary projection of one
// conversation, or nil if absent or owned by a different user.
func (m *Manager) GetConversationSummary(ctx context.Context, userID, conversationID string) (*models.ConversationSummary, error) {
	conv, err := m.store.Find(ctx, conversationID, userID)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, orcherr.Wrap(orcherr.CodePersistenceFailed, "failed to load conversation", err)
	}
	summary := conv.Summary()
	return &summary, nil
}

// GetConversationFull returns the full conversation including its
// message log, or nil if absent or owned by a different user.
func (m *Manager) GetConversationFull(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	conv, err := m.store.Find(ctx, conversationID, userID)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, orcherr.Wrap(orcherr.CodePersistenceFailed, "failed to load conversation", err)
	}
	return conv, nil
}
