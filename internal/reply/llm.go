// Package reply orchestrates AI reply generation: provider selection,
// prompt assembly, breaker-guarded invocation with failover, structured
// output parsing and moderation, and credit metering.
package reply

import "context"

// Chat roles shared by every provider adapter.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one conversation turn in the provider-neutral shape the
// orchestrator assembles and the adapters translate.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage carries the provider-metered token counts for one completion;
// all zero when the provider reported nothing.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMRequest is one completion request. Model may be empty; the adapter
// then runs on its own configured default.
type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// LLMResponse is the raw completion before parsing and moderation.
type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// LLMClient is the single surface a provider adapter exposes.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
