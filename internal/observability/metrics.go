package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting the
// orchestration core's Prometheus metrics.
//
// The metrics system tracks:
//   - Turn-level outcomes and iteration counts for the orchestrator
//   - LLM request performance, token usage, and estimated cost
//   - Tool execution outcomes and latencies
//   - History truncation events
//   - Reliability-stack state: circuit breaker, rate limiter queue depth
//   - Input validation and moderation rejections
//
// Usage:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.RecordAgentRequest("success")
//	defer metrics.LLMCallDuration.WithLabelValues("anthropic", "claude-3-5-sonnet").Observe(time.Since(start).Seconds())
type Metrics struct {
	// AgentRequests counts completed turns by outcome.
	// Labels: status (success|error)
	AgentRequests *prometheus.CounterVec

	// AgentRequestDuration measures end-to-end turn latency in seconds.
	AgentRequestDuration *prometheus.HistogramVec

	// AgentIterations counts orchestrator loop iterations consumed per turn.
	AgentIterations *prometheus.CounterVec

	// LLMCalls counts model invocations by provider, model, and outcome.
	// Labels: provider, model, status (success|error)
	LLMCalls *prometheus.CounterVec

	// LLMCallDuration measures model call latency in seconds, after the
	// reliability stack (rate limit, retry, circuit breaker, timeout).
	// Labels: provider, model
	LLMCallDuration *prometheus.HistogramVec

	// LLMTokens tracks token consumption.
	// Labels: provider, model, kind (input|output)
	LLMTokens *prometheus.CounterVec

	// LLMCostUSD tracks estimated cost in USD from the static cost-rate table.
	// Labels: provider, model
	LLMCostUSD *prometheus.CounterVec

	// ToolCalls counts tool executions by tool name and outcome.
	// Labels: tool, status (success|error|timeout)
	ToolCalls *prometheus.CounterVec

	// ToolCallDuration measures tool execution latency in seconds.
	// Labels: tool
	ToolCallDuration *prometheus.HistogramVec

	// ConversationTruncations counts history-truncation events by reason.
	// Labels: reason (message_count|token_budget)
	ConversationTruncations *prometheus.CounterVec

	// CircuitBreakerState reports breaker state per provider: 0 closed,
	// 0.5 half-open, 1 open.
	// Labels: provider
	CircuitBreakerState *prometheus.GaugeVec

	// RateLimiterQueueDepth reports the current admission-queue depth per provider.
	// Labels: provider
	RateLimiterQueueDepth *prometheus.GaugeVec

	// ValidationErrors counts request/tool-argument validation failures.
	// Labels: reason
	ValidationErrors *prometheus.CounterVec

	// ModerationRejections counts turns rejected by the moderation gate.
	// Labels: reason
	ModerationRejections *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics against the
// given registry. Tests should pass an isolated prometheus.NewRegistry()
// rather than relying on the global default, so metric state does not
// leak between test cases.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		AgentRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_requests_total",
				Help: "Total number of orchestrator turns by outcome",
			},
			[]string{"status"},
		),

		AgentRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_request_duration_seconds",
				Help:    "End-to-end duration of an orchestrator turn in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{},
		),

		AgentIterations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_iterations_total",
				Help: "Total number of reason-act loop iterations consumed",
			},
			[]string{},
		),

		LLMCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_calls_total",
				Help: "Total number of LLM provider calls by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		LLMCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_call_duration_seconds",
				Help:    "Duration of LLM provider calls in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		LLMTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total number of tokens consumed by provider, model, and kind",
			},
			[]string{"provider", "model", "kind"},
		),

		LLMCostUSD: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_cost_usd_total",
				Help: "Estimated LLM API cost in USD by provider and model",
			},
			[]string{"provider", "model"},
		),

		ToolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_calls_total",
				Help: "Total number of tool executions by tool and status",
			},
			[]string{"tool", "status"},
		),

		ToolCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_call_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"tool"},
		),

		ConversationTruncations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conversation_truncations_total",
				Help: "Total number of history-truncation events by reason",
			},
			[]string{"reason"},
		),

		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state per provider: 0 closed, 0.5 half-open, 1 open",
			},
			[]string{"provider"},
		),

		RateLimiterQueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rate_limiter_queue_depth",
				Help: "Current admission-queue depth per provider",
			},
			[]string{"provider"},
		),

		ValidationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "validation_errors_total",
				Help: "Total number of request/tool-argument validation failures by reason",
			},
			[]string{"reason"},
		),

		ModerationRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moderation_rejections_total",
				Help: "Total number of turns rejected by the moderation gate, by reason",
			},
			[]string{"reason"},
		),
	}
}

// RecordAgentRequest records the outcome of a completed turn.
func (m *Metrics) RecordAgentRequest(status string, durationSeconds float64, iterations int) {
	m.AgentRequests.WithLabelValues(status).Inc()
	m.AgentRequestDuration.WithLabelValues().Observe(durationSeconds)
	m.AgentIterations.WithLabelValues().Add(float64(iterations))
}

// RecordLLMCall records metrics for a single LLM provider invocation.
func (m *Metrics) RecordLLMCall(provider, model, status string, durationSeconds float64, inputTokens, outputTokens int, costUSD float64) {
	m.LLMCalls.WithLabelValues(provider, model, status).Inc()
	m.LLMCallDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if inputTokens > 0 {
		m.LLMTokens.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.LLMTokens.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
	if costUSD > 0 {
		m.LLMCostUSD.WithLabelValues(provider, model).Add(costUSD)
	}
}

// RecordLLMRetry records one transient-error retry attempt for a
// provider/model pair, distinct from the final success|error
// observation RecordLLMCall makes once the call settles.
func (m *Metrics) RecordLLMRetry(provider, model string) {
	m.LLMCalls.WithLabelValues(provider, model, "retry").Inc()
}

// RecordToolCall records metrics for a single tool execution.
func (m *Metrics) RecordToolCall(tool, status string, durationSeconds float64) {
	m.ToolCalls.WithLabelValues(tool, status).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(durationSeconds)
}

// RecordTruncation records a history-truncation event.
func (m *Metrics) RecordTruncation(reason string) {
	m.ConversationTruncations.WithLabelValues(reason).Inc()
}

// SetCircuitBreakerState sets the breaker gauge for a provider. state
// must be 0 (closed), 0.5 (half-open), or 1 (open).
func (m *Metrics) SetCircuitBreakerState(provider string, state float64) {
	m.CircuitBreakerState.WithLabelValues(provider).Set(state)
}

// SetRateLimiterQueueDepth sets the current admission-queue depth for a provider.
func (m *Metrics) SetRateLimiterQueueDepth(provider string, depth int) {
	m.RateLimiterQueueDepth.WithLabelValues(provider).Set(float64(depth))
}

// RecordValidationError records a request or tool-argument validation failure.
func (m *Metrics) RecordValidationError(reason string) {
	m.ValidationErrors.WithLabelValues(reason).Inc()
}

// RecordModerationRejection records a turn rejected by the moderation gate.
func (m *Metrics) RecordModerationRejection(reason string) {
	m.ModerationRejections.WithLabelValues(reason).Inc()
}
