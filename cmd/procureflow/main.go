// Package main provides the CLI entry point for the shopping assistant
// agent: a bounded reason-act loop over a small commerce tool set,
// fronted by an HTTP turn API and a local chat REPL for development.
//
// # Basic Usage
//
// Start the HTTP server:
//
//	procureflow serve --config config.yaml
//
// Chat with the agent from a terminal:
//
//	procureflow chat
//
// # Environment Variables
//
//   - ANTHROPIC_API_KEY: Anthropic API key for Claude models
//   - OPENAI_API_KEY: OpenAI API key for GPT models
//   - AI_PROVIDER: force a specific provider instead of auto-selecting
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "procureflow",
		Short:        "A bounded, tool-using shopping assistant agent",
		Version:      version + " (commit: " + commit + ", built: " + date + ")",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(buildServeCmd(), buildChatCmd())
	return rootCmd
}
