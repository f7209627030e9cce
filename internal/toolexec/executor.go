package toolexec

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/agent/internal/observability"
	"github.com/procureflow/agent/internal/orcherr"
	"github.com/procureflow/agent/pkg/models"
)

// defaultTimeout is used when a Request doesn't specify one (spec.md
// §4.4's documented default).
const defaultTimeout = 5000 * time.Millisecond

// Request is one tool call to execute.
type Request struct {
	ToolName       string
	Args           json.RawMessage
	ToolCallID     string
	UserID         string
	ConversationID string
	Timeout        time.Duration
}

// Result envelopes the outcome of one Execute call. Message is always
// populated, even on failure, so the conversation can continue with
// the model able to see what went wrong.
type Result struct {
	Message    models.Message
	DurationMs int64
	Success    bool
	Error      string
}

// Executor validates, authorizes, and executes registered tool calls
// within a per-call timeout.
type Executor struct {
	registry       *ToolRegistry
	defaultTimeout time.Duration
	metrics        *observability.Metrics
	logger         *observability.Logger
}

// NewExecutor wires a ToolRegistry, default timeout, Metrics, and
// Logger into an Executor. A non-positive defaultTimeout falls back to
// the documented 5000ms default.
func NewExecutor(registry *ToolRegistry, defaultTimeoutMs int, metrics *observability.Metrics, logger *observability.Logger) *Executor {
	timeout := defaultTimeout
	if defaultTimeoutMs > 0 {
		timeout = time.Duration(defaultTimeoutMs) * time.Millisecond
	}
	return &Executor{registry: registry, defaultTimeout: timeout, metrics: metrics, logger: logger}
}

// Execute validates req against the tool's schema, checks
// authorization, runs the tool within its timeout, and returns a
// Result. It never returns an error of its own; every failure mode is
// enveloped in the returned Result so the conversation can proceed.
func (e *Executor) Execute(ctx context.Context, req Request) Result {
	start := time.Now()

	rt, ok := e.registry.get(req.ToolName)
	if !ok {
		return e.fail(req, start, "tool_not_found", fmt.Sprintf("tool not found: %s", req.ToolName))
	}

	if rt.tool.RequiresUser() && req.UserID == "" {
		return e.fail(req, start, "unauthorized", "this action requires a signed-in user")
	}

	var decoded any
	if len(req.Args) == 0 {
		decoded = map[string]any{}
	} else if err := json.Unmarshal(req.Args, &decoded); err != nil {
		return e.fail(req, start, "invalid_arguments", "arguments must be valid JSON")
	}

	if err := rt.schema.Validate(decoded); err != nil {
		return e.fail(req, start, "invalid_arguments", err.Error())
	}
	if cv, ok := rt.tool.(CrossFieldValidator); ok {
		if err := cv.ValidateCrossFields(req.Args); err != nil {
			return e.fail(req, start, "invalid_arguments", err.Error())
		}
	}

	timeout := e.defaultTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	value, err := e.runWithTimeout(ctx, rt.tool, req, timeout)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	e.metrics.RecordToolCall(req.ToolName, status, duration.Seconds())

	if err != nil {
		e.logger.Warn(ctx, "tool execution failed", "tool", req.ToolName, "error", err)
		errType := orcherr.CodeToolExecutionFailed
		if code := orcherr.CodeOf(err); code == orcherr.CodeToolTimeout {
			errType = code
		}
		return Result{
			Message:    e.envelope(req.ToolCallID, errorPayload(req.ToolName, string(errType), err.Error())),
			DurationMs: duration.Milliseconds(),
			Success:    false,
			Error:      err.Error(),
		}
	}

	content, err := json.Marshal(value)
	if err != nil {
		e.logger.Warn(ctx, "tool result encoding failed", "tool", req.ToolName, "error", err)
		return Result{
			Message:    e.envelope(req.ToolCallID, errorPayload(req.ToolName, string(orcherr.CodeInternal), "result encoding failed")),
			DurationMs: duration.Milliseconds(),
			Success:    false,
			Error:      err.Error(),
		}
	}

	return Result{
		Message:    e.envelope(req.ToolCallID, content),
		DurationMs: duration.Milliseconds(),
		Success:    true,
	}
}

// ExecuteAll runs every request concurrently and returns results in
// the same order as the input.
func (e *Executor) ExecuteAll(ctx context.Context, reqs []Request) []Result {
	if len(reqs) == 0 {
		return nil
	}
	results := make([]Result, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(idx int, r Request) {
			defer wg.Done()
			results[idx] = e.Execute(ctx, r)
		}(i, req)
	}
	wg.Wait()
	return results
}

func (e *Executor) runWithTimeout(ctx context.Context, tool Tool, req Request, timeout time.Duration) (any, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic during tool execution: %v", r)}
			}
		}()
		value, err := tool.Execute(execCtx, req.Args, ExecContext{UserID: req.UserID, ConversationID: req.ConversationID})
		ch <- outcome{value: value, err: err}
	}()

	select {
	case out := <-ch:
		return out.value, out.err
	case <-execCtx.Done():
		return nil, orcherr.New(orcherr.CodeToolTimeout, fmt.Sprintf("tool %s timed out after %s", req.ToolName, timeout))
	}
}

func (e *Executor) fail(req Request, start time.Time, reason, message string) Result {
	e.metrics.RecordToolCall(req.ToolName, "error", time.Since(start).Seconds())
	return Result{
		Message:    e.envelope(req.ToolCallID, errorPayload(req.ToolName, reason, message)),
		DurationMs: time.Since(start).Milliseconds(),
		Success:    false,
		Error:      reason + ": " + message,
	}
}

// errorResult is the structured failure payload handed back to the
// model so it can self-correct (retry with different arguments, ask
// the user for authorization, or give up on a missing tool).
type errorResult struct {
	Error     string `json:"error"`
	ErrorType string `json:"errorType"`
	ToolName  string `json:"toolName"`
}

func errorPayload(toolName, errorType, message string) []byte {
	data, _ := json.Marshal(errorResult{Error: message, ErrorType: errorType, ToolName: toolName})
	return data
}

func (e *Executor) envelope(toolCallID string, content []byte) models.Message {
	return models.Message{
		ID:         uuid.NewString(),
		Sender:     models.SenderTool,
		Content:    string(content),
		CreatedAt:  time.Now(),
		ToolCallID: toolCallID,
	}
}
