package reply

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wambo-ai/wambo/pkg/logging"
)

// scriptedCompleter returns one scripted outcome per call, recording the
// model asked for each time.
type scriptedCompleter struct {
	outcomes []error
	models   []string
}

func (s *scriptedCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.models = append(s.models, req.Model)
	idx := len(s.models) - 1
	if idx < len(s.outcomes) && s.outcomes[idx] != nil {
		return openai.ChatCompletionResponse{}, s.outcomes[idx]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: `{"response": "ok"}`}}},
		Usage:   openai.Usage{TotalTokens: 10},
	}, nil
}

func rateLimitErr() error {
	return &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "rate limited"}
}

func newTestGateway(stub chatCompleter, models []string) (*GatewayClient, *[]time.Duration) {
	var slept []time.Duration
	c := &GatewayClient{
		client: stub,
		models: models,
		logger: logging.NewWithWriter("error", &strings.Builder{}),
		sleep:  func(d time.Duration) { slept = append(slept, d) },
	}
	return c, &slept
}

func TestGatewayClient_RotatesOnRateLimit(t *testing.T) {
	stub := &scriptedCompleter{outcomes: []error{rateLimitErr(), rateLimitErr(), nil}}
	c, slept := newTestGateway(stub, []string{"model-a", "model-b", "model-c"})

	resp, err := c.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, `{"response": "ok"}`, resp.Text)

	assert.Equal(t, []string{"model-a", "model-b", "model-c"}, stub.models)
	// Incremental backoff between rotation attempts.
	assert.Equal(t, []time.Duration{gatewayRetryBackoff, 2 * gatewayRetryBackoff}, *slept)
}

func TestGatewayClient_NonRateLimitFailsFast(t *testing.T) {
	stub := &scriptedCompleter{outcomes: []error{errors.New("upstream exploded")}}
	c, slept := newTestGateway(stub, []string{"model-a", "model-b"})

	_, err := c.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.Len(t, stub.models, 1, "no rotation for non-rate-limit errors")
	assert.Empty(t, *slept)
}

func TestGatewayClient_PathQualifiedModelTriedFirst(t *testing.T) {
	stub := &scriptedCompleter{}
	c, _ := newTestGateway(stub, []string{"model-a"})

	_, err := c.Complete(context.Background(), LLMRequest{
		Model:    "mistralai/mistral-small",
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"mistralai/mistral-small"}, stub.models)
}

func TestGatewayClient_ExhaustionReturnsLastError(t *testing.T) {
	stub := &scriptedCompleter{outcomes: []error{rateLimitErr(), rateLimitErr()}}
	c, _ := newTestGateway(stub, []string{"model-a", "model-b"})

	_, err := c.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway models exhausted")
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited(rateLimitErr()))
	assert.True(t, isRateLimited(errors.New("429 rate limit exceeded")))
	assert.False(t, isRateLimited(errors.New("connection refused")))
	assert.False(t, isRateLimited(&openai.APIError{HTTPStatusCode: http.StatusInternalServerError}))
}

func TestBuildOpenAIRequest(t *testing.T) {
	req := buildOpenAIRequest("gpt-4o-mini", LLMRequest{
		System:      []string{"regles", ""},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "bonjour"}},
		MaxTokens:   300,
		Temperature: 0.7,
	})

	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.Len(t, req.Messages, 2, "blank system prompts dropped")
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, "bonjour", req.Messages[1].Content)
	assert.Equal(t, 300, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 0.001)
}
