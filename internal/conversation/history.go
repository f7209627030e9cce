package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/procureflow/agent/internal/orcherr"
	"github.com/procureflow/agent/internal/tokenizer"
	"github.com/procureflow/agent/pkg/models"
)

// minMaxTokens is the floor buildMessageHistory enforces on its
// maxTokens parameter (spec.md §4.1: "maxTokens ≥ 512").
const minMaxTokens = 512

// defaultSystemPrompt is the fixed instruction prefix every turn sends
// to the model. It is never truncated (spec.md §3.2 invariant 6).
const defaultSystemPrompt = "You are a procurement assistant. Help the user search the catalog, " +
	"manage their cart, and complete checkout. Use the available tools to take action on the " +
	"user's behalf rather than describing what you would do. Be concise."

// TruncationReason labels why a built history dropped history
// messages, matching the conversation_truncations_total{reason} label
// values (spec.md §4.1).
type TruncationReason string

const (
	ReasonMessageCount TruncationReason = "message_count"
	ReasonTokenBudget  TruncationReason = "token_budget"
	ReasonTotalTokens  TruncationReason = "total_tokens"
)

// BuiltHistory is the result of BuildMessageHistory: the ordered message
// sequence to send to the model, plus token accounting (spec.md §3.1
// "Token-Budget View").
type BuiltHistory struct {
	Messages []models.Message

	SystemTokens  int
	CartTokens    int
	HistoryTokens int
	NewUserTokens int
	TotalTokens   int

	IncludedMessages  int
	TruncatedMessages int
	WasTruncated      bool
}

// BuildMessageHistory materializes the input to the model for a single
// turn: system prompt, optional cart context, a token-budgeted window
// of prior history, and the new user message. maxTokens governs the
// history-selection budget; if <= 0 the manager's configured
// MaxInputTokens is used. The system prompt, cart context, and the new
// user message are never truncated (spec.md §3.2 invariant 6); if their
// combination with any history would still exceed MAX_TOTAL_TOKENS, the
// call fails with orcherr.CodeTokenLimitExceeded.
func (m *Manager) BuildMessageHistory(ctx context.Context, conv *models.Conversation, newUserMessage, userID string, maxTokens int) (*BuiltHistory, error) {
	trimmedUser := strings.TrimSpace(newUserMessage)
	if trimmedUser == "" {
		return nil, orcherr.New(orcherr.CodeValidationFailed, "new user message must be non-empty")
	}
	if maxTokens <= 0 {
		maxTokens = m.loop.MaxInputTokens
	}
	if maxTokens < minMaxTokens {
		return nil, orcherr.New(orcherr.CodeValidationFailed, "maxTokens must be at least 512")
	}

	model := m.model

	systemTokens := tokenizer.CountText(model, defaultSystemPrompt).Tokens
	newUserTokens := tokenizer.CountText(model, trimmedUser).Tokens

	var cartMessage *models.Message
	cartTokens := 0
	if userID != "" && m.carts != nil {
		cart, err := m.carts.GetCart(ctx, userID)
		if err != nil {
			m.logger.Warn(ctx, "cart context fetch failed, continuing without it", "error", err, "user_id", userID)
		} else if cart != nil && len(cart.Items) > 0 {
			content := formatCartContext(cart)
			cartTokens = tokenizer.CountText(model, content).Tokens
			cartMessage = &models.Message{
				ID:        uuid.NewString(),
				Sender:    models.SenderSystem,
				Content:   content,
				CreatedAt: time.Now(),
			}
		}
	}

	reserved := systemTokens + cartTokens + newUserTokens
	remaining := maxTokens - reserved
	if remaining < 0 {
		remaining = 0
	}

	eligible := historyCandidates(conv.Messages)

	selectedReverse := make([]models.Message, 0, len(eligible))
	historyTokens := 0
	truncationReason := TruncationReason("")
	for i := len(eligible) - 1; i >= 0; i-- {
		msg := eligible[i]
		msgTokens := tokenizer.CountText(model, msg.Content).Tokens

		if len(selectedReverse) >= m.loop.MaxHistoryMessages {
			truncationReason = ReasonMessageCount
			break
		}
		if historyTokens+msgTokens > remaining {
			truncationReason = ReasonTokenBudget
			break
		}

		selectedReverse = append(selectedReverse, msg)
		historyTokens += msgTokens
	}

	included := len(selectedReverse)
	truncated := len(eligible) - included
	wasTruncated := truncated > 0

	selected := make([]models.Message, included)
	for i, msg := range selectedReverse {
		selected[included-1-i] = msg
	}

	totalTokens := systemTokens + cartTokens + historyTokens + newUserTokens
	if totalTokens > m.loop.MaxTotalTokens {
		m.recordTruncation(ctx, ReasonTotalTokens)
		return nil, orcherr.New(orcherr.CodeTokenLimitExceeded,
			"built history would exceed the total token budget")
	}
	if wasTruncated {
		m.recordTruncation(ctx, truncationReason)
	}

	messages := make([]models.Message, 0, len(selected)+3)
	messages = append(messages, models.Message{
		ID:        uuid.NewString(),
		Sender:    models.SenderSystem,
		Content:   defaultSystemPrompt,
		CreatedAt: time.Now(),
	})
	if cartMessage != nil {
		messages = append(messages, *cartMessage)
	}
	messages = append(messages, selected...)
	messages = append(messages, models.Message{
		ID:        uuid.NewString(),
		Sender:    models.SenderUser,
		Content:   trimmedUser,
		CreatedAt: time.Now(),
	})

	return &BuiltHistory{
		Messages:          messages,
		SystemTokens:      systemTokens,
		CartTokens:        cartTokens,
		HistoryTokens:     historyTokens,
		NewUserTokens:     newUserTokens,
		TotalTokens:       totalTokens,
		IncludedMessages:  included,
		TruncatedMessages: truncated,
		WasTruncated:      wasTruncated,
	}, nil
}

// historyCandidates filters the conversation log down to messages
// eligible for history selection. Tool messages are never persisted as
// standalone history (they are dropped at append time, see AppendTurn),
// but this guard keeps selection correct even against logs seeded by
// another writer.
func historyCandidates(messages []models.Message) []models.Message {
	candidates := make([]models.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Sender == models.SenderTool {
			continue
		}
		candidates = append(candidates, msg)
	}
	return candidates
}

func (m *Manager) recordTruncation(ctx context.Context, reason TruncationReason) {
	m.logger.Info(ctx, "conversation history truncated", "reason", string(reason))
	if m.metrics != nil {
		m.metrics.RecordTruncation(string(reason))
	}
}
