package conversation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/agent/pkg/models"
)

// MemoryStore is an in-memory Store implementation for local runs and
// tests. A production deployment swaps this for a document-store-backed
// implementation behind the same interface; the core never depends on
// storage internals.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
}

// NewMemoryStore creates an empty in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*models.Conversation),
	}
}

func (s *MemoryStore) Find(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return nil, ErrNotFound
	}
	return cloneConversation(conv), nil
}

func (s *MemoryStore) Insert(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	clone := cloneConversation(conv)
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	now := time.Now()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = clone.CreatedAt
	if clone.Status == "" {
		clone.Status = models.StatusInProgress
	}

	s.mu.Lock()
	s.conversations[clone.ID] = clone
	s.mu.Unlock()

	conv.ID = clone.ID
	conv.CreatedAt = clone.CreatedAt
	conv.UpdatedAt = clone.UpdatedAt
	conv.Status = clone.Status
	return cloneConversation(clone), nil
}

func (s *MemoryStore) AppendMessages(ctx context.Context, conversationID string, messages []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conv.Messages = append(conv.Messages, messages...)
	conv.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) UpdateMetadata(ctx context.Context, conversationID string, update MetadataUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	if update.Title != nil {
		conv.Title = *update.Title
	}
	if update.LastMessagePreview != nil {
		conv.LastMessagePreview = *update.LastMessagePreview
	}
	conv.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]models.ConversationSummary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		if conv.UserID != userID {
			continue
		}
		summaries = append(summaries, conv.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func cloneConversation(conv *models.Conversation) *models.Conversation {
	clone := *conv
	clone.Messages = make([]models.Message, len(conv.Messages))
	copy(clone.Messages, conv.Messages)
	return &clone
}
