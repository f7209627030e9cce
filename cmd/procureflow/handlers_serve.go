package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/procureflow/agent/internal/config"
	"github.com/procureflow/agent/internal/orcherr"
	"github.com/procureflow/agent/internal/orchestrator"
)

// runServe implements the serve command logic: load config, wire the
// agent, and run an HTTP server until a shutdown signal arrives.
func runServe(cmd *cobra.Command, configPath, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := buildApp(cfg)
	if err != nil {
		return fmt.Errorf("failed to wire agent: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealthz)
	mux.HandleFunc("/v1/turns", handleTurn(a))

	server := &http.Server{Addr: addr, Handler: mux}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("procureflow server started", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	slog.Info("shutdown signal received, initiating graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	slog.Info("procureflow server stopped gracefully")
	return nil
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type turnHTTPRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Provider       string `json:"provider,omitempty"`
}

type turnHTTPResponse struct {
	Content              string `json:"content"`
	ConversationID       string `json:"conversationId"`
	Iterations           int    `json:"iterations"`
	ToolCallsCount       int    `json:"toolCallsCount"`
	MaxIterationsReached bool   `json:"maxIterationsReached"`
	Metadata             any    `json:"metadata,omitempty"`
}

func handleTurn(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req turnHTTPRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := a.orchestrator.OrchestrateTurn(r.Context(), orchestrator.TurnRequest{
			UserMessage:    req.Message,
			ConversationID: req.ConversationID,
			UserID:         req.UserID,
			Provider:       req.Provider,
		})
		if err != nil {
			writeJSONError(w, statusForCode(orcherr.CodeOf(err)), err.Error())
			return
		}

		resp := turnHTTPResponse{
			Content:              result.Content,
			ConversationID:       result.ConversationID,
			Iterations:           result.Iterations,
			ToolCallsCount:       result.ToolCallsCount,
			MaxIterationsReached: result.MaxIterationsReached,
		}
		if result.Metadata != nil {
			resp.Metadata = result.Metadata
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func statusForCode(code orcherr.Code) int {
	switch code {
	case orcherr.CodeValidationFailed, orcherr.CodePromptInjectionRejected, orcherr.CodeContentModerated:
		return http.StatusBadRequest
	case orcherr.CodeUnauthorized:
		return http.StatusUnauthorized
	case orcherr.CodeRateLimited:
		return http.StatusTooManyRequests
	case orcherr.CodeCircuitOpen, orcherr.CodeProviderUnavailable:
		return http.StatusServiceUnavailable
	case orcherr.CodeTimeout, orcherr.CodeToolTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
