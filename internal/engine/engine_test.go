package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wambo-ai/wambo/internal/analysis"
	"github.com/wambo-ai/wambo/internal/catalog"
	"github.com/wambo-ai/wambo/internal/credits"
	"github.com/wambo-ai/wambo/internal/reply"
	"github.com/wambo-ai/wambo/pkg/breaker"
	"github.com/wambo-ai/wambo/pkg/logging"
)

type stubLLM struct {
	text  string
	calls int
}

func (s *stubLLM) Complete(context.Context, reply.LLMRequest) (reply.LLMResponse, error) {
	s.calls++
	return reply.LLMResponse{Text: s.text, Usage: reply.TokenUsage{TotalTokens: 100}}, nil
}

type memRecorder struct {
	turns map[string][]string
}

func (m *memRecorder) AppendTurn(_ context.Context, conversationID, text string) error {
	if m.turns == nil {
		m.turns = make(map[string][]string)
	}
	m.turns[conversationID] = append(m.turns[conversationID], text)
	return nil
}

func newTestEngine(t *testing.T, llm reply.LLMClient, recorder TurnRecorder) *Engine {
	t.Helper()
	logger := logging.NewWithWriter("error", &strings.Builder{})

	cat := catalog.NewStaticAccessor(map[string][]catalog.Product{
		"t1": {{ID: "p1", Name: "Poulet rôti", SKU: "PLT-001", PriceCents: 350000, Stock: 2}},
	})
	analyzer := analysis.New(cat, nil, logger)

	registry := reply.NewRegistry(breaker.Config{}, nil)
	registry.Register(reply.KindFlagship, "openai", llm, 20, 3000)
	orchestrator := reply.NewOrchestrator(registry, credits.UnlimitedLedger{}, logger)

	var opts []Option
	if recorder != nil {
		opts = append(opts, WithTurnRecorder(recorder))
	}
	return New(analyzer, orchestrator, cat, logger, opts...)
}

func TestEngine_HandleFullPipeline(t *testing.T) {
	llm := &stubLLM{text: `{"response": "Il reste 2 poulets rôtis, je previens un collegue pour le troisieme.", "needHuman": true}`}
	recorder := &memRecorder{}
	e := newTestEngine(t, llm, recorder)

	res, err := e.Handle(context.Background(),
		reply.AgentConfig{TenantID: "t1", Model: "gpt-4o-mini"},
		nil,
		analysis.InboundMessage{TenantID: "t1", ConversationID: "c1", Text: "je veux commander 3 poulets rôtis"},
	)
	require.NoError(t, err)

	assert.Equal(t, analysis.IntentOrder, res.Analysis.Intent.Primary)
	require.Len(t, res.Analysis.Products.Matched, 1)
	assert.Equal(t, analysis.StockInsufficient, res.Analysis.Products.Matched[0].StockStatus)

	require.NotNil(t, res.Reply)
	assert.Equal(t, "openai", res.Reply.Provider)
	assert.True(t, res.Reply.NeedHuman)
	assert.Equal(t, 1, llm.calls)

	turns := recorder.turns["c1"]
	require.Len(t, turns, 2)
	assert.True(t, strings.HasPrefix(turns[0], "client: "))
	assert.True(t, strings.HasPrefix(turns[1], "assistant: "))
}

func TestEngine_IgnoredMessageSkipsGeneration(t *testing.T) {
	llm := &stubLLM{text: `{"response": "ok"}`}
	recorder := &memRecorder{}
	e := newTestEngine(t, llm, recorder)

	res, err := e.Handle(context.Background(),
		reply.AgentConfig{TenantID: "t1"},
		nil,
		analysis.InboundMessage{TenantID: "t1", ConversationID: "c1", Text: "k"},
	)
	require.NoError(t, err)

	assert.True(t, res.Analysis.Ignore)
	assert.Nil(t, res.Reply)
	assert.Zero(t, llm.calls)
	assert.Empty(t, recorder.turns)
}

func TestEngine_InvalidAgentSurfacesError(t *testing.T) {
	e := newTestEngine(t, &stubLLM{text: `{"response": "ok"}`}, nil)

	_, err := e.Handle(context.Background(),
		reply.AgentConfig{},
		nil,
		analysis.InboundMessage{TenantID: "t1", Text: "je veux du poulet"},
	)
	assert.ErrorIs(t, err, reply.ErrInvalidInput)
}
