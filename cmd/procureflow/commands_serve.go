package main

import (
	"github.com/spf13/cobra"
)

// buildServeCmd creates the "serve" command that starts the HTTP turn API.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP turn API",
		Long: `Start the HTTP server exposing POST /v1/turns.

Each request runs one bounded turn of the reason-act loop: validation
and safety checks, message-history assembly, provider calls, tool
execution, and conversation persistence.

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		Example: `  procureflow serve
  procureflow serve --config config.yaml --addr :9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	return cmd
}
