package provider

import (
	"context"
	"sync"
	"time"
)

// UsageRecord is the per-call token-usage record spec.md §4.2 asks the
// adapter to persist best-effort after every successful invocation.
type UsageRecord struct {
	UserID         string
	ConversationID string
	Provider       string
	Model          string
	PromptTokens   int
	CompletionTokens int
	TotalTokens    int
	CostUSD        float64
	Endpoint       string
	ToolCalls      int
	Cached         bool
	CreatedAt      time.Time
}

// UsageStore persists UsageRecords. Persistence failures are logged by
// the caller and never affect the invocation's outcome.
type UsageStore interface {
	RecordUsage(ctx context.Context, rec UsageRecord) error
}

// MemoryUsageStore is an in-memory UsageStore, the reference
// implementation used until a durable one is wired in.
type MemoryUsageStore struct {
	mu      sync.Mutex
	records []UsageRecord
}

// NewMemoryUsageStore returns an empty MemoryUsageStore.
func NewMemoryUsageStore() *MemoryUsageStore {
	return &MemoryUsageStore{}
}

// RecordUsage appends rec. It never fails.
func (s *MemoryUsageStore) RecordUsage(ctx context.Context, rec UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of every recorded UsageRecord, for tests and
// admin inspection.
func (s *MemoryUsageStore) Records() []UsageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UsageRecord, len(s.records))
	copy(out, s.records)
	return out
}
