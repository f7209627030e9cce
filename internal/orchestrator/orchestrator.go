// Package orchestrator implements the Orchestrator (C5, spec.md §4.5):
// the bounded reason-act loop that ties the Conversation Manager (C1),
// Provider Adapter (C2, wrapped by the Reliability Stack C3), and Tool
// Executor (C4) together into a single turn.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/procureflow/agent/internal/config"
	"github.com/procureflow/agent/internal/conversation"
	"github.com/procureflow/agent/internal/observability"
	"github.com/procureflow/agent/internal/orcherr"
	"github.com/procureflow/agent/internal/provider"
	"github.com/procureflow/agent/internal/safety"
	"github.com/procureflow/agent/internal/toolexec"
	"github.com/procureflow/agent/pkg/models"
)

const (
	tooManyToolCallsMessage = "This request needs too many operations to complete safely. Please try a narrower request."
	outOfIterationsMessage  = "I need more time to finish this — could you break it into smaller steps?"
)

// TurnRequest is the Orchestrator's entry point (spec.md §4.5 signature).
type TurnRequest struct {
	UserMessage    string
	ConversationID string
	UserID         string
	Provider       string // optional explicit provider override
	MaxTokens      int    // optional override of the conversation manager's input-token budget
}

// TurnResult is what OrchestrateTurn returns.
type TurnResult struct {
	Content              string
	Iterations           int
	ToolCallsCount       int
	Messages             []models.Message
	MaxIterationsReached bool
	Metadata             *models.MessageMetadata
	ConversationID       string
}

// Orchestrator composes the Conversation Manager, Provider Adapter
// (already wrapped by the reliability stack inside invoker), the safety
// gate, and the Tool Executor into the bounded per-turn loop.
type Orchestrator struct {
	conv     *conversation.Manager
	invoker  *provider.Invoker
	tools    *toolexec.ToolRegistry
	executor *toolexec.Executor
	gate     *safety.Gate
	loop     config.LoopConfig
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// New builds an Orchestrator from its five collaborators.
func New(
	conv *conversation.Manager,
	invoker *provider.Invoker,
	tools *toolexec.ToolRegistry,
	executor *toolexec.Executor,
	gate *safety.Gate,
	loop config.LoopConfig,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Orchestrator {
	return &Orchestrator{
		conv:     conv,
		invoker:  invoker,
		tools:    tools,
		executor: executor,
		gate:     gate,
		loop:     loop,
		logger:   logger,
		metrics:  metrics,
	}
}

// OrchestrateTurn runs the full pre-flight → loop → post-flight pipeline
// for one user turn (spec.md §4.5).
func (o *Orchestrator) OrchestrateTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	start := time.Now()

	sanitized := safety.Sanitize(req.UserMessage)
	if err := validateMessage(sanitized); err != nil {
		o.metrics.RecordValidationError("schema")
		return nil, err
	}

	if findings := safety.DetectInjection(sanitized); safety.HighestSeverity(findings) == safety.SeverityHigh {
		o.metrics.RecordValidationError("prompt_injection")
		o.logger.Info(ctx, "rejected turn on prompt-injection heuristic", "user_id", req.UserID)
		return nil, orcherr.New(orcherr.CodePromptInjectionRejected, "this message was rejected by our safety policy")
	}

	if o.gate != nil {
		if flagged, categories := o.gate.Check(ctx, sanitized); flagged {
			reason := strings.Join(categories, ",")
			if reason == "" {
				reason = "flagged"
			}
			o.metrics.RecordModerationRejection(reason)
			return nil, orcherr.New(orcherr.CodeContentModerated, "this message was rejected by content moderation")
		}
	}

	conv, err := o.conv.GetOrCreate(ctx, req.ConversationID, req.UserID, sanitized)
	if err != nil {
		o.recordOutcome(start, "error", 0)
		return nil, err
	}

	built, err := o.conv.BuildMessageHistory(ctx, conv, sanitized, req.UserID, req.MaxTokens)
	if err != nil {
		o.recordOutcome(start, "error", 0)
		return nil, err
	}

	systemPrompt, working := splitSystemPrompt(built.Messages)
	toolDefs := toToolDefinitions(o.tools.Descriptors())

	result, err := o.runLoop(ctx, runState{
		conversationID: conv.ID,
		userID:         req.UserID,
		provider:       req.Provider,
		system:         systemPrompt,
		working:        working,
		tools:          toolDefs,
	})
	if err != nil {
		o.recordOutcome(start, "error", result.iterations)
		return nil, err
	}

	userMsg := models.Message{
		ID:        uuid.NewString(),
		Sender:    models.SenderUser,
		Content:   sanitized,
		CreatedAt: time.Now(),
	}
	if err := o.conv.AppendTurn(ctx, conv.ID, userMsg, result.messages, result.metadata); err != nil {
		o.recordOutcome(start, "error", result.iterations)
		return nil, err
	}

	o.recordOutcome(start, "success", result.iterations)

	return &TurnResult{
		Content:              result.finalContent,
		Iterations:           result.iterations,
		ToolCallsCount:       result.toolCallsCount,
		Messages:             result.messages,
		MaxIterationsReached: result.maxIterationsReached,
		Metadata:             result.metadata,
		ConversationID:       conv.ID,
	}, nil
}

func (o *Orchestrator) recordOutcome(start time.Time, status string, iterations int) {
	o.metrics.RecordAgentRequest(status, time.Since(start).Seconds(), iterations)
}

// splitSystemPrompt pulls the leading system message BuildMessageHistory
// always produces out of the sequence, leaving the rest to be sent as
// ChatRequest.Messages.
func splitSystemPrompt(messages []models.Message) (string, []models.Message) {
	if len(messages) == 0 || messages[0].Sender != models.SenderSystem {
		return "", append([]models.Message(nil), messages...)
	}
	return messages[0].Content, append([]models.Message(nil), messages[1:]...)
}

func toToolDefinitions(descriptors []toolexec.Descriptor) []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, len(descriptors))
	for i, d := range descriptors {
		defs[i] = provider.ToolDefinition{Name: d.Name, Description: d.Description, Schema: d.Schema}
	}
	return defs
}
