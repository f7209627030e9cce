// Package provider implements the Provider Adapter (C2, spec.md §4.2):
// a single invokeChat interface over multiple LLM backends, with
// provider selection, usage/cost accounting, and result normalization.
package provider

import (
	"context"
	"encoding/json"

	"github.com/procureflow/agent/internal/tokenizer"
	"github.com/procureflow/agent/pkg/models"
)

// ToolDefinition describes one tool available to the model, in the
// backend-neutral shape the Tool Executor's registry produces.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// ChatRequest is the backend-neutral request passed to invokeChat.
type ChatRequest struct {
	Messages []models.Message
	System   string
	Tools    []ToolDefinition
	Model    string
}

// Usage reports token accounting for one invocation. Estimated is set
// when the backend did not report usage and the tokenizer was used to
// approximate it instead.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	Estimated    bool
}

// AIResponse is the normalized result of one invokeChat call. Both the
// native "single function call" and "parallel tool calls" shapes of
// each backend flatten into ToolCalls.
type AIResponse struct {
	Content   string
	ToolCalls []models.ToolCall
	Usage     *Usage
	Provider  string
	Model     string
}

// Capability names reported by Descriptor.Capabilities.
const (
	CapabilityTools  = "tools"
	CapabilityVision = "vision"
)

// Descriptor describes a provider's identity and capabilities, used by
// getProviderInfo/getAllProviders.
type Descriptor struct {
	Provider     string
	Model        string
	Capabilities []string
}

// Provider is a single LLM backend behind the normalized invokeChat
// contract.
type Provider interface {
	// InvokeChat sends req to the backend and returns a normalized
	// response. Implementations classify transient failures as
	// *reliability.TransientError so the reliability stack can retry.
	InvokeChat(ctx context.Context, req ChatRequest) (*AIResponse, error)

	// Name is the stable provider identifier ("anthropic", "openai").
	Name() string

	// DefaultModel is used when ChatRequest.Model is empty.
	DefaultModel() string

	// Descriptor reports this provider's identity and capabilities.
	Descriptor() Descriptor
}

// estimateUsage builds a tokenizer-derived Usage for adapters whose
// backend omitted usage accounting on a response, per §4.2's "SHOULD
// estimate via the tokenizer and set usage.estimated=true" fallback.
func estimateUsage(model string, req ChatRequest, responseContent string) *Usage {
	contents := make([]string, 0, len(req.Messages)+1)
	if req.System != "" {
		contents = append(contents, req.System)
	}
	for _, msg := range req.Messages {
		contents = append(contents, msg.Content)
	}
	input := tokenizer.CountMessages(model, contents)
	output := tokenizer.CountText(model, responseContent)
	return &Usage{
		InputTokens:  input.Tokens,
		OutputTokens: output.Tokens,
		TotalTokens:  input.Tokens + output.Tokens,
		Estimated:    true,
	}
}
