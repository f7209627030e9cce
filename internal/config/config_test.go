package config

import "testing"

func TestDefaultMatchesDocumentedDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Loop.MaxInputTokens != 3000 {
		t.Errorf("MaxInputTokens = %d, want 3000", cfg.Loop.MaxInputTokens)
	}
	if cfg.Loop.MaxTotalTokens != 4000 {
		t.Errorf("MaxTotalTokens = %d, want 4000", cfg.Loop.MaxTotalTokens)
	}
	if cfg.Loop.MaxIterations != 10 {
		t.Errorf("MaxIterations = %d, want 10", cfg.Loop.MaxIterations)
	}
	if cfg.Loop.MaxToolCallsPerTurn != 15 {
		t.Errorf("MaxToolCallsPerTurn = %d, want 15", cfg.Loop.MaxToolCallsPerTurn)
	}
	if cfg.Tool.TimeoutMs != 5000 {
		t.Errorf("TimeoutMs = %d, want 5000", cfg.Tool.TimeoutMs)
	}
	if cfg.Loop.MaxHistoryMessages != 50 {
		t.Errorf("MaxHistoryMessages = %d, want 50", cfg.Loop.MaxHistoryMessages)
	}
	if cfg.Reliability.CircuitBreakerThreshold != 50 {
		t.Errorf("CircuitBreakerThreshold = %v, want 50", cfg.Reliability.CircuitBreakerThreshold)
	}
	if cfg.Reliability.CircuitBreakerResetMs != 30000 {
		t.Errorf("CircuitBreakerResetMs = %d, want 30000", cfg.Reliability.CircuitBreakerResetMs)
	}
	if cfg.Safety.ModerationEnabled {
		t.Error("ModerationEnabled should default to false")
	}
	want := []string{"password", "token", "authorization", "cookie", "secret"}
	if len(cfg.Logging.RedactKeys) != len(want) {
		t.Fatalf("RedactKeys = %v, want %v", cfg.Logging.RedactKeys, want)
	}
	for i, k := range want {
		if cfg.Logging.RedactKeys[i] != k {
			t.Errorf("RedactKeys[%d] = %s, want %s", i, cfg.Logging.RedactKeys[i], k)
		}
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load returned error for missing file: %v", err)
	}
	if cfg.Loop.MaxIterations != 10 {
		t.Errorf("expected defaults to apply, got MaxIterations=%d", cfg.Loop.MaxIterations)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("AGENT_MAX_ITERATIONS", "7")
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("MODERATION_ENABLED", "true")
	t.Setenv("LOG_REDACT_KEYS", "ssn, api_key")
	t.Setenv("ANTHROPIC_RPM_LIMIT", "50")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Loop.MaxIterations != 7 {
		t.Errorf("MaxIterations = %d, want 7", cfg.Loop.MaxIterations)
	}
	if cfg.Provider.Forced != "openai" {
		t.Errorf("Forced = %s, want openai", cfg.Provider.Forced)
	}
	if !cfg.Safety.ModerationEnabled {
		t.Error("ModerationEnabled should be true")
	}
	if len(cfg.Logging.RedactKeys) != 2 || cfg.Logging.RedactKeys[0] != "ssn" || cfg.Logging.RedactKeys[1] != "api_key" {
		t.Errorf("RedactKeys = %v, want [ssn api_key]", cfg.Logging.RedactKeys)
	}
	if cfg.Reliability.Providers["anthropic"].RPMLimit != 50 {
		t.Errorf("anthropic RPMLimit = %d, want 50", cfg.Reliability.Providers["anthropic"].RPMLimit)
	}
	if cfg.Provider.Credentials["anthropic"] != "sk-test" {
		t.Errorf("anthropic credential = %s, want sk-test", cfg.Provider.Credentials["anthropic"])
	}
}
