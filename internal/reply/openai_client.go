package reply

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// chatCompleter is the slice of go-openai used here, kept narrow so tests
// can stub it.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient adapts the flagship hosted provider to LLMClient.
type OpenAIClient struct {
	client chatCompleter
	model  string
}

// NewOpenAIClient builds the flagship provider adapter.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("reply: openai api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{client: openai.NewClient(apiKey), model: model}, nil
}

var _ LLMClient = (*OpenAIClient)(nil)

// Complete sends one chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	resp, err := c.client.CreateChatCompletion(ctx, buildOpenAIRequest(model, req))
	if err != nil {
		return LLMResponse{}, fmt.Errorf("reply: openai completion failed: %w", err)
	}
	return openAIResponse(resp)
}

// buildOpenAIRequest converts the provider-neutral request into the
// go-openai shape, shared with the gateway adapter.
func buildOpenAIRequest(model string, req LLMRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	for _, sys := range req.System {
		if strings.TrimSpace(sys) == "" {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: sys,
		})
	}
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	out := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = int(req.MaxTokens)
	}
	if req.Temperature > 0 {
		out.Temperature = req.Temperature
	}
	if req.TopP > 0 {
		out.TopP = req.TopP
	}
	return out
}

func openAIResponse(resp openai.ChatCompletionResponse) (LLMResponse, error) {
	if len(resp.Choices) == 0 {
		return LLMResponse{}, errors.New("reply: provider returned no choices")
	}
	choice := resp.Choices[0]
	return LLMResponse{
		Text:       strings.TrimSpace(choice.Message.Content),
		StopReason: string(choice.FinishReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}, nil
}
