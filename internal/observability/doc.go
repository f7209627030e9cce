// Package observability provides the orchestration core's metrics and
// structured logging.
//
// # Metrics
//
// Metrics are implemented with Prometheus client libraries and track:
//   - Orchestrator turn outcomes and iteration counts
//   - LLM call latency, token usage, and estimated cost
//   - Tool execution outcomes and latencies
//   - Conversation history truncation events
//   - Reliability-stack state (circuit breaker, rate limiter queue depth)
//   - Input validation and moderation rejections
//
// Example usage:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//
//	start := time.Now()
//	// ... run orchestrator turn ...
//	metrics.RecordAgentRequest("success", time.Since(start).Seconds(), iterations)
//
//	metrics.RecordLLMCall("anthropic", "claude-3-5-sonnet", "success",
//	    callDuration, inputTokens, outputTokens, costUSD)
//
//	metrics.RecordToolCall("search_catalog", "success", toolDuration)
//
// # Logging
//
// Logging is built on Go's slog package with:
//   - Automatic request/conversation/user/provider ID correlation from context
//   - Redaction of secrets (API keys, tokens, passwords) and PII (emails,
//     phone numbers, SSN/credit-card-shaped digit runs, IPv4 addresses)
//   - Field-name-based redaction driven by LOG_REDACT_KEYS
//   - JSON output for production, text for development
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:      "info",
//	    Format:     "json",
//	    RedactKeys: cfg.Logging.RedactKeys,
//	})
//
//	ctx = observability.AddRequestID(ctx, requestID)
//	ctx = observability.AddConversationID(ctx, conversationID)
//
//	logger.Info(ctx, "processing turn", "user_id", userID)
//	logger.Error(ctx, "llm call failed", "error", err, "api_key", apiKey) // redacted
package observability
