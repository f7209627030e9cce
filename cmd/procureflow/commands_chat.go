package main

import (
	"bufio"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/procureflow/agent/internal/config"
	"github.com/procureflow/agent/internal/orchestrator"
)

// buildChatCmd creates the "chat" command: a local REPL that runs
// turns in-process against the same Orchestrator the server uses,
// useful for development and manual testing without an HTTP hop.
func buildChatCmd() *cobra.Command {
	var (
		configPath string
		userID     string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, configPath, userID)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&userID, "user", "local-user", "User ID to chat as")
	return cmd
}

func runChat(cmd *cobra.Command, configPath, userID string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := buildApp(cfg)
	if err != nil {
		return fmt.Errorf("failed to wire agent: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Type a message and press enter. Ctrl+D to exit.")

	conversationID := ""
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		result, err := a.orchestrator.OrchestrateTurn(context.Background(), orchestrator.TurnRequest{
			UserMessage:    line,
			ConversationID: conversationID,
			UserID:         userID,
		})
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		conversationID = result.ConversationID
		fmt.Fprintln(out, result.Content)
	}
	return scanner.Err()
}
