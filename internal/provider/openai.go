package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/procureflow/agent/internal/reliability"
	"github.com/procureflow/agent/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider against the Chat Completions API.
type OpenAIProvider struct {
	client       *openai.Client
	defaultModel string
	maxTokens    int
}

// NewOpenAIProvider builds an OpenAIProvider. apiKey is required.
func NewOpenAIProvider(apiKey, defaultModel string, maxTokens int) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o"
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &OpenAIProvider{
		client:       openai.NewClient(apiKey),
		defaultModel: defaultModel,
		maxTokens:    maxTokens,
	}, nil
}

func (p *OpenAIProvider) Name() string         { return "openai" }
func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

func (p *OpenAIProvider) Descriptor() Descriptor {
	return Descriptor{
		Provider:     "openai",
		Model:        p.defaultModel,
		Capabilities: []string{CapabilityTools, CapabilityVision},
	}
}

// InvokeChat converts req to OpenAI's wire format, sends a single
// non-streaming CreateChatCompletion request, and normalizes the
// response.
func (p *OpenAIProvider) InvokeChat(ctx context.Context, req ChatRequest) (*AIResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := convertMessagesToOpenAI(req.Messages, req.System)

	chatReq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: p.maxTokens,
	}
	if len(req.Tools) > 0 {
		tools, err := convertToolsToOpenAI(req.Tools)
		if err != nil {
			return nil, err
		}
		chatReq.Tools = tools
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, p.classifyError(err)
	}

	return openaiResponseToAIResponse(&resp, model, req), nil
}

func convertMessagesToOpenAI(messages []models.Message, system string) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}

	for _, msg := range messages {
		switch msg.Sender {
		case models.SenderTool:
			result = append(result, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		case models.SenderAgent:
			oaiMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: msg.Content}
			for _, tc := range msg.ToolCalls {
				oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			result = append(result, oaiMsg)
		default:
			result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: msg.Content})
		}
	}
	return result
}

func convertToolsToOpenAI(tools []ToolDefinition) ([]openai.Tool, error) {
	result := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		var params map[string]any
		if err := json.Unmarshal(tool.Schema, &params); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", tool.Name, err)
		}
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return result, nil
}

func openaiResponseToAIResponse(resp *openai.ChatCompletionResponse, model string, req ChatRequest) *AIResponse {
	out := &AIResponse{Provider: "openai", Model: model}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0].Message
		out.Content = choice.Content
		for _, tc := range choice.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, models.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			})
		}
	}
	if resp.Usage.PromptTokens == 0 && resp.Usage.CompletionTokens == 0 {
		out.Usage = estimateUsage(model, req, out.Content)
	} else {
		out.Usage = &Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
	}
	return out
}

func (p *OpenAIProvider) classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && isTransientStatus(apiErr.HTTPStatusCode) {
		return reliability.NewTransientError(apiErr.HTTPStatusCode, err)
	}
	return err
}
