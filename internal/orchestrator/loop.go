package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/procureflow/agent/internal/provider"
	"github.com/procureflow/agent/internal/toolexec"
	"github.com/procureflow/agent/pkg/models"
)

// runState carries the inputs the iteration loop needs, built once by
// OrchestrateTurn's pre-flight.
type runState struct {
	conversationID string
	userID         string
	provider       string
	system         string
	working        []models.Message
	tools          []provider.ToolDefinition
}

// loopResult carries what the loop produced, regardless of how it
// terminated (no tool calls, tool-call cap, or max iterations).
type loopResult struct {
	finalContent         string
	iterations           int
	toolCallsCount       int
	messages             []models.Message
	maxIterationsReached bool
	metadata             *models.MessageMetadata
}

// runLoop executes the bounded reason-act loop (spec.md §4.5). It
// always terminates because both iterations and toolCallsCount are
// strictly increasing and bounded by o.loop.MaxIterations/
// MaxToolCallsPerTurn.
func (o *Orchestrator) runLoop(ctx context.Context, st runState) (loopResult, error) {
	var (
		turnMessages   []models.Message
		toolCallsCount int
		lastContent    string
		acc            accumulator
	)

	maxIterations := o.loop.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 10
	}
	maxToolCalls := o.loop.MaxToolCallsPerTurn
	if maxToolCalls <= 0 {
		maxToolCalls = 15
	}

	iteration := 0
	for ; iteration < maxIterations; iteration++ {
		resp, err := o.invoker.InvokeChat(ctx, provider.ChatRequest{
			Messages: st.working,
			System:   st.system,
			Tools:    st.tools,
		}, st.provider, st.userID, st.conversationID)
		if err != nil {
			return loopResult{iterations: iteration, toolCallsCount: toolCallsCount}, err
		}

		if len(resp.ToolCalls) == 0 {
			if strings.TrimSpace(resp.Content) != "" {
				agentMsg := newAgentMessage(resp.Content, nil)
				turnMessages = append(turnMessages, agentMsg)
				lastContent = resp.Content
			}
			iteration++
			return loopResult{
				finalContent:         lastContent,
				iterations:           iteration,
				toolCallsCount:       toolCallsCount,
				messages:             turnMessages,
				maxIterationsReached: false,
				metadata:             acc.result(),
			}, nil
		}

		toolCallsCount += len(resp.ToolCalls)
		if toolCallsCount > maxToolCalls {
			agentMsg := newAgentMessage(tooManyToolCallsMessage, nil)
			turnMessages = append(turnMessages, agentMsg)
			iteration++
			return loopResult{
				finalContent:         tooManyToolCallsMessage,
				iterations:           iteration,
				toolCallsCount:       toolCallsCount,
				messages:             turnMessages,
				maxIterationsReached: false,
				metadata:             acc.result(),
			}, nil
		}

		agentMsg := newAgentMessage(resp.Content, resp.ToolCalls)
		turnMessages = append(turnMessages, agentMsg)
		st.working = append(st.working, agentMsg)
		if strings.TrimSpace(resp.Content) != "" {
			lastContent = resp.Content
		}

		nameByCallID := make(map[string]string, len(resp.ToolCalls))
		execReqs := make([]toolexec.Request, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			nameByCallID[tc.ID] = tc.Name
			execReqs[i] = toolexec.Request{
				ToolName:       tc.Name,
				Args:           tc.Arguments,
				ToolCallID:     tc.ID,
				UserID:         st.userID,
				ConversationID: st.conversationID,
			}
		}

		results := o.executor.ExecuteAll(ctx, execReqs)
		for _, r := range results {
			turnMessages = append(turnMessages, r.Message)
			st.working = append(st.working, r.Message)
			if r.Success {
				acc.absorb(nameByCallID[r.Message.ToolCallID], []byte(r.Message.Content))
			}
		}
	}

	finalContent := lastContent
	if finalContent == "" {
		finalContent = outOfIterationsMessage
		turnMessages = append(turnMessages, newAgentMessage(outOfIterationsMessage, nil))
	}

	return loopResult{
		finalContent:         finalContent,
		iterations:           iteration,
		toolCallsCount:       toolCallsCount,
		messages:             turnMessages,
		maxIterationsReached: true,
		metadata:             acc.result(),
	}, nil
}

func newAgentMessage(content string, toolCalls []models.ToolCall) models.Message {
	return models.Message{
		ID:        uuid.NewString(),
		Sender:    models.SenderAgent,
		Content:   content,
		CreatedAt: time.Now(),
		ToolCalls: toolCalls,
	}
}
