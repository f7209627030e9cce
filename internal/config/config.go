// Package config loads the orchestration core's configuration: an
// optional YAML file overlaid with environment variables, producing a
// typed Config with documented defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the orchestration core.
type Config struct {
	Loop        LoopConfig        `yaml:"loop"`
	Reliability ReliabilityConfig `yaml:"reliability"`
	Tool        ToolConfig        `yaml:"tool"`
	Provider    ProviderConfig    `yaml:"provider"`
	Safety      SafetyConfig      `yaml:"safety"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoopConfig bounds the orchestrator's reason-act loop and the
// conversation manager's history budget (C1, C5).
type LoopConfig struct {
	MaxInputTokens      int `yaml:"max_input_tokens"`
	MaxTotalTokens       int `yaml:"max_total_tokens"`
	MaxIterations        int `yaml:"max_iterations"`
	MaxToolCallsPerTurn  int `yaml:"max_tool_calls_per_turn"`
	MaxHistoryMessages   int `yaml:"max_history_messages"`
}

// ReliabilityConfig holds the per-provider rate/retry/circuit-breaker
// settings consumed by the reliability stack (C3).
type ReliabilityConfig struct {
	Providers               map[string]ProviderReliability `yaml:"providers"`
	CircuitBreakerThreshold float64                         `yaml:"circuit_breaker_error_threshold"`
	CircuitBreakerResetMs   int                             `yaml:"circuit_breaker_reset_timeout_ms"`
}

// ProviderReliability is the per-provider slice of ReliabilityConfig.
type ProviderReliability struct {
	RPMLimit      int `yaml:"rpm_limit"`
	MaxRetries    int `yaml:"max_retries"`
	TimeoutMs     int `yaml:"timeout_ms"`
	MaxQueueDepth int `yaml:"max_queue_depth"`
}

// ToolConfig bounds tool execution (C4).
type ToolConfig struct {
	TimeoutMs int `yaml:"timeout_ms"`
}

// ProviderConfig carries provider selection and credentials (C2).
type ProviderConfig struct {
	Forced       string            `yaml:"forced"`
	DefaultModel map[string]string `yaml:"default_model"`
	MaxTokens    int               `yaml:"max_tokens"`
	Credentials  map[string]string `yaml:"-"`
}

// SafetyConfig controls the validation/safety cross-cutting concern (§4.6).
type SafetyConfig struct {
	ModerationEnabled bool `yaml:"moderation_enabled"`
}

// LoggingConfig controls the observability logger.
type LoggingConfig struct {
	Level      string   `yaml:"level"`
	Format     string   `yaml:"format"`
	RedactKeys []string `yaml:"redact_keys"`
}

// Default returns a Config populated with the documented defaults.
func Default() Config {
	return Config{
		Loop: LoopConfig{
			MaxInputTokens:      3000,
			MaxTotalTokens:      4000,
			MaxIterations:       10,
			MaxToolCallsPerTurn: 15,
			MaxHistoryMessages:  50,
		},
		Reliability: ReliabilityConfig{
			Providers:               map[string]ProviderReliability{},
			CircuitBreakerThreshold: 50,
			CircuitBreakerResetMs:   30000,
		},
		Tool: ToolConfig{
			TimeoutMs: 5000,
		},
		Provider: ProviderConfig{
			DefaultModel: map[string]string{
				"anthropic": "claude-3-5-sonnet-20241022",
				"openai":    "gpt-4o",
			},
			MaxTokens:   4096,
			Credentials: map[string]string{},
		},
		Safety: SafetyConfig{
			ModerationEnabled: false,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			RedactKeys: []string{"password", "token", "authorization", "cookie", "secret"},
		},
	}
}

// knownProviders lists the provider name prefixes consulted for
// per-provider env overrides (<PROVIDER>_RPM_LIMIT etc).
var knownProviders = []string{"anthropic", "openai"}

// Load builds a Config starting from Default, overlaying an optional
// YAML file at path (skipped if path is empty or missing), then
// overlaying environment variables, which always win.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := envInt("AGENT_MAX_INPUT_TOKENS"); ok {
		cfg.Loop.MaxInputTokens = v
	}
	if v, ok := envInt("AGENT_MAX_TOTAL_TOKENS"); ok {
		cfg.Loop.MaxTotalTokens = v
	}
	if v, ok := envInt("AGENT_MAX_ITERATIONS"); ok {
		cfg.Loop.MaxIterations = v
	}
	if v, ok := envInt("AGENT_MAX_TOOL_CALLS_PER_TURN"); ok {
		cfg.Loop.MaxToolCallsPerTurn = v
	}
	if v, ok := envInt("AGENT_TOOL_TIMEOUT_MS"); ok {
		cfg.Tool.TimeoutMs = v
	}
	if v, ok := envInt("AGENT_MAX_HISTORY_MESSAGES"); ok {
		cfg.Loop.MaxHistoryMessages = v
	}
	if v, ok := envFloat("CIRCUIT_BREAKER_ERROR_THRESHOLD"); ok {
		cfg.Reliability.CircuitBreakerThreshold = v
	}
	if v, ok := envInt("CIRCUIT_BREAKER_RESET_TIMEOUT_MS"); ok {
		cfg.Reliability.CircuitBreakerResetMs = v
	}
	if v, ok := os.LookupEnv("AI_PROVIDER"); ok {
		cfg.Provider.Forced = v
	}
	if v, ok := envInt("AI_PROVIDER_MAX_TOKENS"); ok {
		cfg.Provider.MaxTokens = v
	}
	if v, ok := os.LookupEnv("MODERATION_ENABLED"); ok {
		cfg.Safety.ModerationEnabled = v == "true" || v == "1"
	}
	if v, ok := os.LookupEnv("LOG_REDACT_KEYS"); ok {
		cfg.Logging.RedactKeys = splitNonEmpty(v, ",")
	}

	if cfg.Reliability.Providers == nil {
		cfg.Reliability.Providers = map[string]ProviderReliability{}
	}
	if cfg.Provider.DefaultModel == nil {
		cfg.Provider.DefaultModel = map[string]string{}
	}
	for _, name := range knownProviders {
		upper := strings.ToUpper(name)
		pr := cfg.Reliability.Providers[name]
		if v, ok := envInt(upper + "_RPM_LIMIT"); ok {
			pr.RPMLimit = v
		}
		if v, ok := envInt(upper + "_MAX_RETRIES"); ok {
			pr.MaxRetries = v
		}
		if v, ok := envInt(upper + "_TIMEOUT_MS"); ok {
			pr.TimeoutMs = v
		}
		if v, ok := envInt(upper + "_MAX_QUEUE_DEPTH"); ok {
			pr.MaxQueueDepth = v
		}
		cfg.Reliability.Providers[name] = pr

		if key, ok := os.LookupEnv(upper + "_API_KEY"); ok {
			cfg.Provider.Credentials[name] = key
		}
		if v, ok := os.LookupEnv(upper + "_DEFAULT_MODEL"); ok {
			cfg.Provider.DefaultModel[name] = v
		}
	}
}

func envInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func splitNonEmpty(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
