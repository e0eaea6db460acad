package reply

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wambo-ai/wambo/pkg/logging"
)

const (
	defaultGatewayBaseURL = "https://openrouter.ai/api/v1"

	gatewayRetryBackoff = 250 * time.Millisecond
)

// defaultGatewayModels are interchangeable gateway models tried in order on
// rate-limit signals.
var defaultGatewayModels = []string{
	"meta-llama/llama-3.1-70b-instruct",
	"mistralai/mistral-small",
	"google/gemma-2-27b-it",
}

// GatewayClient adapts the multi-model gateway (OpenRouter-compatible API)
// to LLMClient. On a rate-limit signal it rotates through a short list of
// interchangeable models with incremental backoff before giving up.
type GatewayClient struct {
	client chatCompleter
	models []string
	logger *logging.Logger
	sleep  func(time.Duration)
}

// NewGatewayClient builds the gateway adapter.
func NewGatewayClient(apiKey, baseURL string, models []string, logger *logging.Logger) (*GatewayClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("reply: gateway api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultGatewayBaseURL
	}
	if len(models) == 0 {
		models = defaultGatewayModels
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	return &GatewayClient{
		client: openai.NewClientWithConfig(cfg),
		models: models,
		logger: logger,
		sleep:  time.Sleep,
	}, nil
}

var _ LLMClient = (*GatewayClient)(nil)

// Complete calls the gateway, rotating models on rate-limit responses. A
// path-qualified req.Model is tried first, then the configured rotation.
func (c *GatewayClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	models := c.models
	if strings.Contains(req.Model, "/") && (len(models) == 0 || models[0] != req.Model) {
		models = append([]string{req.Model}, models...)
	}

	var lastErr error
	for attempt, model := range models {
		if attempt > 0 {
			// Incremental backoff between rotation attempts.
			select {
			case <-ctx.Done():
				return LLMResponse{}, ctx.Err()
			default:
			}
			c.sleep(time.Duration(attempt) * gatewayRetryBackoff)
		}

		resp, err := c.client.CreateChatCompletion(ctx, buildOpenAIRequest(model, req))
		if err == nil {
			return openAIResponse(resp)
		}
		lastErr = err
		if !isRateLimited(err) {
			return LLMResponse{}, fmt.Errorf("reply: gateway completion failed: %w", err)
		}
		c.logger.Warn("gateway model rate limited, rotating", "model", model, "error", err)
	}
	return LLMResponse{}, fmt.Errorf("reply: gateway models exhausted: %w", lastErr)
}

// isRateLimited recognizes HTTP 429 style responses from the gateway.
func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}
