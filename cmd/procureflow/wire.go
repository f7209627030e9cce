package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/procureflow/agent/internal/config"
	"github.com/procureflow/agent/internal/conversation"
	"github.com/procureflow/agent/internal/observability"
	"github.com/procureflow/agent/internal/orchestrator"
	"github.com/procureflow/agent/internal/provider"
	"github.com/procureflow/agent/internal/reliability"
	"github.com/procureflow/agent/internal/safety"
	"github.com/procureflow/agent/internal/tools/commerce"
	"github.com/procureflow/agent/internal/toolexec"
)

// app bundles the Orchestrator with the collaborators its callers
// (the HTTP server and the chat REPL) need direct access to.
type app struct {
	orchestrator *orchestrator.Orchestrator
	logger       *observability.Logger
	metrics      *observability.Metrics
}

// buildApp wires every component (C1-C5) from a loaded Config, the way
// runServe/runPrompt wire the gateway in the teacher's CLI.
func buildApp(cfg config.Config) (*app, error) {
	logger := observability.NewLogger(observability.LogConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		RedactKeys: cfg.Logging.RedactKeys,
	})
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	commerceStore := commerce.NewSeededStore()

	defaultModel := cfg.Provider.DefaultModel["anthropic"]
	convMgr := conversation.NewManager(conversation.NewMemoryStore(), commerceStore, logger, metrics, cfg.Loop, defaultModel)

	providers, err := buildProviders(cfg.Provider)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no provider credentials configured: set ANTHROPIC_API_KEY or OPENAI_API_KEY")
	}

	stack := reliability.NewStack(cfg.Reliability, metrics, logger)
	registry := provider.NewRegistry(providers, cfg.Provider.Forced)
	usage := provider.NewMemoryUsageStore()
	invoker := provider.NewInvoker(registry, stack, usage, metrics, logger)

	toolRegistry := toolexec.NewToolRegistry()
	for _, tool := range []toolexec.Tool{
		commerce.NewSearchCatalogTool(commerceStore),
		commerce.NewAddToCartTool(commerceStore),
		commerce.NewRemoveFromCartTool(commerceStore),
		commerce.NewGetCartTool(commerceStore),
		commerce.NewCheckoutTool(commerceStore),
	} {
		if err := toolRegistry.Register(tool); err != nil {
			return nil, fmt.Errorf("register tool %s: %w", tool.Name(), err)
		}
	}
	executor := toolexec.NewExecutor(toolRegistry, cfg.Tool.TimeoutMs, metrics, logger)

	// No external moderation backend is wired; the gate stays fail-open
	// closed (never flags) until one is configured. See DESIGN.md.
	gate := safety.NewGate(nil, cfg.Safety.ModerationEnabled, logger)

	orch := orchestrator.New(convMgr, invoker, toolRegistry, executor, gate, cfg.Loop, logger, metrics)
	return &app{orchestrator: orch, logger: logger, metrics: metrics}, nil
}

func buildProviders(cfg config.ProviderConfig) ([]provider.Provider, error) {
	var providers []provider.Provider

	if key, ok := cfg.Credentials["anthropic"]; ok && key != "" {
		p, err := provider.NewAnthropicProvider(provider.AnthropicConfig{
			APIKey:       key,
			DefaultModel: cfg.DefaultModel["anthropic"],
			MaxTokens:    cfg.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("init anthropic provider: %w", err)
		}
		providers = append(providers, p)
	}

	if key, ok := cfg.Credentials["openai"]; ok && key != "" {
		p, err := provider.NewOpenAIProvider(key, cfg.DefaultModel["openai"], cfg.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("init openai provider: %w", err)
		}
		providers = append(providers, p)
	}

	return providers, nil
}
