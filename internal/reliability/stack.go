// Package reliability implements the Reliability Stack (C3): the
// rate-limit → retry → circuit-breaker → timeout composition wrapped
// around every provider call (spec.md §4.3).
package reliability

import (
	"context"
	"time"

	"github.com/procureflow/agent/internal/config"
	"github.com/procureflow/agent/internal/observability"
	"github.com/procureflow/agent/internal/orcherr"
)

// Stack composes the reliability layers for every configured provider.
// Construct one Stack per process and share it across all provider
// calls; per-provider state (rate limit bucket, breaker) is created
// lazily on first use.
type Stack struct {
	limiter  *RateLimiter
	breakers *BreakerRegistry
	cfg      config.ReliabilityConfig
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// NewStack builds a Stack from the reliability section of the loaded
// config.
func NewStack(cfg config.ReliabilityConfig, metrics *observability.Metrics, logger *observability.Logger) *Stack {
	rpm := make(map[string]int, len(cfg.Providers))
	maxDepth := make(map[string]int, len(cfg.Providers))
	for name, p := range cfg.Providers {
		rpm[name] = p.RPMLimit
		maxDepth[name] = p.MaxQueueDepth
	}
	return &Stack{
		limiter:  NewRateLimiter(rpm, maxDepth),
		breakers: NewBreakerRegistry(cfg.CircuitBreakerThreshold, time.Duration(cfg.CircuitBreakerResetMs)*time.Millisecond),
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// Invoke runs fn for provider through the full reliability stack:
// admission (rate limit), then up to MaxRetries+1 attempts, each gated
// by the provider's circuit breaker and a per-attempt timeout.
//
// Cancellation is cooperative throughout: a canceled ctx aborts queued
// rate-limit waits, in-flight attempts, and pending retry sleeps
// (spec.md §4.3 "Cancellation semantics").
func Invoke[T any](ctx context.Context, s *Stack, provider, model string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := s.limiter.Wait(ctx, provider); err != nil {
		if orcherr.CodeOf(err) == orcherr.CodeRateLimited {
			return zero, err
		}
		return zero, orcherr.Wrap(orcherr.CodeRateLimited, "rate limiter wait canceled", err)
	}
	s.reportQueueDepth(provider)

	pr := s.cfg.Providers[provider]
	maxAttempts := pr.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	timeout := time.Duration(pr.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	brk := s.breakers.get(provider)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		if err := brk.allow(); err != nil {
			s.reportBreakerState(provider)
			return zero, err
		}

		value, err := withTimeout(ctx, timeout, fn)
		brk.record(err == nil)
		s.reportBreakerState(provider)

		if err == nil {
			return value, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		delay := computeBackoff(defaultBackoffPolicy, attempt)
		s.logger.Warn(ctx, "retrying provider call after transient error",
			"provider", provider, "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", err)
		if s.metrics != nil {
			s.metrics.RecordLLMRetry(provider, model)
		}
		if sleepErr := sleepWithContext(ctx, delay); sleepErr != nil {
			return zero, sleepErr
		}
	}

	return zero, orcherr.Wrap(orcherr.CodeProviderUnavailable, "exhausted retries", lastErr)
}

// State returns the current circuit breaker state for provider.
func (s *Stack) State(provider string) BreakerState {
	return s.breakers.State(provider)
}

// ForceOpen manually opens the breaker for provider (operator hook,
// spec.md §4.3).
func (s *Stack) ForceOpen(provider string) {
	s.breakers.ForceOpen(provider)
	s.reportBreakerState(provider)
}

// ForceClose manually closes the breaker for provider (operator hook).
func (s *Stack) ForceClose(provider string) {
	s.breakers.ForceClose(provider)
	s.reportBreakerState(provider)
}

func (s *Stack) reportBreakerState(provider string) {
	if s.metrics != nil {
		s.metrics.SetCircuitBreakerState(provider, float64(s.breakers.State(provider)))
	}
}

func (s *Stack) reportQueueDepth(provider string) {
	if s.metrics != nil {
		s.metrics.SetRateLimiterQueueDepth(provider, s.limiter.QueueDepth(provider))
	}
}
