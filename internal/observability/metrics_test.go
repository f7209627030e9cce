package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsRegistersAgainstGivenRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if metrics == nil {
		t.Fatal("NewMetrics returned nil")
	}

	metrics.RecordAgentRequest("success", 1.5, 3)

	expected := `
		# HELP agent_requests_total Total number of orchestrator turns by outcome
		# TYPE agent_requests_total counter
		agent_requests_total{status="success"} 1
	`
	if err := testutil.CollectAndCompare(metrics.AgentRequests, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected agent_requests_total value: %v", err)
	}
}

func TestTwoRegistriesAreIsolated(t *testing.T) {
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())

	a.RecordAgentRequest("success", 0.2, 1)

	if got := testutil.ToFloat64(b.AgentRequests.WithLabelValues("success")); got != 0 {
		t.Errorf("expected second registry's metrics.AgentRequests to start at 0, got %v", got)
	}
}

func TestRecordLLMCall(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.RecordLLMCall("anthropic", "claude-3-5-sonnet", "success", 0.8, 120, 340, 0.0042)

	if got := testutil.ToFloat64(metrics.LLMCalls.WithLabelValues("anthropic", "claude-3-5-sonnet", "success")); got != 1 {
		t.Errorf("LLMCalls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.LLMTokens.WithLabelValues("anthropic", "claude-3-5-sonnet", "input")); got != 120 {
		t.Errorf("input tokens = %v, want 120", got)
	}
	if got := testutil.ToFloat64(metrics.LLMTokens.WithLabelValues("anthropic", "claude-3-5-sonnet", "output")); got != 340 {
		t.Errorf("output tokens = %v, want 340", got)
	}
	if got := testutil.ToFloat64(metrics.LLMCostUSD.WithLabelValues("anthropic", "claude-3-5-sonnet")); got != 0.0042 {
		t.Errorf("cost = %v, want 0.0042", got)
	}
}

func TestRecordToolCall(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.RecordToolCall("search_catalog", "success", 0.05)
	metrics.RecordToolCall("search_catalog", "error", 0.01)

	if got := testutil.ToFloat64(metrics.ToolCalls.WithLabelValues("search_catalog", "success")); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ToolCalls.WithLabelValues("search_catalog", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestRecordTruncation(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.RecordTruncation("token_budget")
	metrics.RecordTruncation("token_budget")
	metrics.RecordTruncation("message_count")

	if got := testutil.ToFloat64(metrics.ConversationTruncations.WithLabelValues("token_budget")); got != 2 {
		t.Errorf("token_budget truncations = %v, want 2", got)
	}
}

func TestCircuitBreakerStateGauge(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.SetCircuitBreakerState("anthropic", 1)
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("anthropic")); got != 1 {
		t.Errorf("state = %v, want 1 (open)", got)
	}

	metrics.SetCircuitBreakerState("anthropic", 0.5)
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("anthropic")); got != 0.5 {
		t.Errorf("state = %v, want 0.5 (half-open)", got)
	}
}

func TestValidationAndModerationCounters(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.RecordValidationError("schema_mismatch")
	metrics.RecordModerationRejection("flagged")

	if got := testutil.ToFloat64(metrics.ValidationErrors.WithLabelValues("schema_mismatch")); got != 1 {
		t.Errorf("validation errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ModerationRejections.WithLabelValues("flagged")); got != 1 {
		t.Errorf("moderation rejections = %v, want 1", got)
	}
}
