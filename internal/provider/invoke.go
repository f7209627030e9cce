package provider

import (
	"context"
	"time"

	"github.com/procureflow/agent/internal/observability"
	"github.com/procureflow/agent/internal/reliability"
)

// Invoker is the entry point the Orchestrator (C5) calls: it resolves
// a Provider via Registry.Select, runs the call through the
// reliability stack (C3), and records metrics and a best-effort usage
// record after every invocation.
type Invoker struct {
	registry *Registry
	stack    *reliability.Stack
	usage    UsageStore
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// NewInvoker wires a Registry, reliability Stack, UsageStore, Metrics,
// and Logger into an Invoker.
func NewInvoker(registry *Registry, stack *reliability.Stack, usage UsageStore, metrics *observability.Metrics, logger *observability.Logger) *Invoker {
	return &Invoker{registry: registry, stack: stack, usage: usage, metrics: metrics, logger: logger}
}

// InvokeChat resolves a provider (explicitProvider, if non-empty, wins
// over the registry's configured precedence), invokes it through the
// reliability stack, and records telemetry. userID/conversationID are
// only used to label the best-effort usage record; both may be empty.
func (iv *Invoker) InvokeChat(ctx context.Context, req ChatRequest, explicitProvider, userID, conversationID string) (*AIResponse, error) {
	p, err := iv.registry.Select(explicitProvider)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.DefaultModel()
	}

	start := time.Now()
	resp, callErr := reliability.Invoke(ctx, iv.stack, p.Name(), model, func(ctx context.Context) (*AIResponse, error) {
		return p.InvokeChat(ctx, req)
	})
	duration := time.Since(start).Seconds()

	status := "success"
	if callErr != nil {
		status = "error"
	}

	var inputTokens, outputTokens int
	var costUSD float64
	var toolCallCount int
	if resp != nil {
		toolCallCount = len(resp.ToolCalls)
		if resp.Usage != nil {
			inputTokens = resp.Usage.InputTokens
			outputTokens = resp.Usage.OutputTokens
			costUSD = estimateCostUSD(p.Name(), model, inputTokens, outputTokens)
		}
	}

	iv.metrics.RecordLLMCall(p.Name(), model, status, duration, inputTokens, outputTokens, costUSD)

	if callErr == nil {
		iv.recordUsage(ctx, p.Name(), model, userID, conversationID, inputTokens, outputTokens, costUSD, toolCallCount)
	}

	return resp, callErr
}

func (iv *Invoker) recordUsage(ctx context.Context, providerName, model, userID, conversationID string, inputTokens, outputTokens int, costUSD float64, toolCalls int) {
	rec := UsageRecord{
		UserID:           userID,
		ConversationID:   conversationID,
		Provider:         providerName,
		Model:            model,
		PromptTokens:     inputTokens,
		CompletionTokens: outputTokens,
		TotalTokens:      inputTokens + outputTokens,
		CostUSD:          costUSD,
		Endpoint:         "invokeChat",
		ToolCalls:        toolCalls,
		Cached:           false,
		CreatedAt:        time.Now(),
	}
	if err := iv.usage.RecordUsage(ctx, rec); err != nil {
		iv.logger.Warn(ctx, "usage record persistence failed", "provider", providerName, "model", model, "error", err)
	}
}
