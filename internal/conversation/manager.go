package conversation

import (
	"context"
	"sync"

	"github.com/procureflow/agent/internal/config"
	"github.com/procureflow/agent/internal/observability"
	"github.com/procureflow/agent/pkg/models"
)

// CartProvider fetches a live cart snapshot for cart-context injection.
// Cart/catalog are external domain services (spec.md §1); this is the
// narrow interface the Conversation Manager calls through.
type CartProvider interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
}

// Manager implements the Conversation Manager (C1): it builds the
// token-budgeted message sequence handed to the model for a turn, and
// persists the turn's output back to Store.
type Manager struct {
	store   Store
	carts   CartProvider
	logger  *observability.Logger
	metrics *observability.Metrics
	loop    config.LoopConfig
	model   string

	locksMu sync.Mutex
	locks   map[string]*convLock
}

// NewManager builds a Conversation Manager over the given Store and
// CartProvider. loop supplies the token/message budget defaults
// (internal/config.LoopConfig); model is the default tokenizer model ID
// used when a caller doesn't override it.
func NewManager(store Store, carts CartProvider, logger *observability.Logger, metrics *observability.Metrics, loop config.LoopConfig, model string) *Manager {
	return &Manager{
		store:   store,
		carts:   carts,
		logger:  logger,
		metrics: metrics,
		loop:    loop,
		model:   model,
		locks:   make(map[string]*convLock),
	}
}

// convLock is a per-conversation mutex, reference-counted so the map
// entry is reclaimed once no turn holds it.
type convLock struct {
	mu   sync.Mutex
	refs int
}

// lockConversation serializes appends to a single conversation without
// holding a process-wide lock across unrelated conversations.
func (m *Manager) lockConversation(conversationID string) func() {
	if conversationID == "" {
		return func() {}
	}

	m.locksMu.Lock()
	lock := m.locks[conversationID]
	if lock == nil {
		lock = &convLock{}
		m.locks[conversationID] = lock
	}
	lock.refs++
	m.locksMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		m.locksMu.Lock()
		lock.refs--
		if lock.refs <= 0 {
			delete(m.locks, conversationID)
		}
		m.locksMu.Unlock()
	}
}
