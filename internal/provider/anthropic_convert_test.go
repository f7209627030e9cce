package provider

import (
	"encoding/json"
	"testing"

	"github.com/procureflow/agent/pkg/models"
)

func TestConvertMessagesToAnthropicMapsSendersToRoles(t *testing.T) {
	msgs, err := convertMessagesToAnthropic([]models.Message{
		{Sender: models.SenderUser, Content: "hi"},
		{Sender: models.SenderAgent, Content: "hello"},
		{Sender: models.SenderTool, ToolCallID: "tc1", Content: `{"items":[]}`},
	})
	if err != nil {
		t.Fatalf("convertMessagesToAnthropic: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
}

func TestConvertMessagesToAnthropicRejectsInvalidToolCallArguments(t *testing.T) {
	_, err := convertMessagesToAnthropic([]models.Message{
		{Sender: models.SenderAgent, ToolCalls: []models.ToolCall{
			{ID: "tc1", Name: "search_catalog", Arguments: json.RawMessage(`not json`)},
		}},
	})
	if err == nil {
		t.Fatal("expected an error for invalid tool call arguments")
	}
}

func TestConvertMessagesToAnthropicSkipsEmptyMessages(t *testing.T) {
	msgs, err := convertMessagesToAnthropic([]models.Message{
		{Sender: models.SenderAgent, Content: ""},
	})
	if err != nil {
		t.Fatalf("convertMessagesToAnthropic: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages, want 0 (empty content, no tool calls/results)", len(msgs))
	}
}

func TestConvertToolsToAnthropicRejectsInvalidSchema(t *testing.T) {
	_, err := convertToolsToAnthropic([]ToolDefinition{
		{Name: "broken", Schema: json.RawMessage(`not json`)},
	})
	if err == nil {
		t.Fatal("expected an error for invalid schema JSON")
	}
}

func TestConvertToolsToAnthropicMapsNameAndDescription(t *testing.T) {
	tools, err := convertToolsToAnthropic([]ToolDefinition{
		{Name: "search_catalog", Description: "search the catalog", Schema: json.RawMessage(`{"type":"object"}`)},
	})
	if err != nil {
		t.Fatalf("convertToolsToAnthropic: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("got %d tools, want 1", len(tools))
	}
}

func TestIsTransientStatusClassification(t *testing.T) {
	for _, status := range []int{429, 500, 502, 503, 504} {
		if !isTransientStatus(status) {
			t.Errorf("status %d should be transient", status)
		}
	}
	for _, status := range []int{400, 401, 403, 404, 422} {
		if isTransientStatus(status) {
			t.Errorf("status %d should not be transient", status)
		}
	}
}
