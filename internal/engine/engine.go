// Package engine chains message analysis and reply orchestration into the
// single entry point host systems call per inbound message.
package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wambo-ai/wambo/internal/analysis"
	"github.com/wambo-ai/wambo/internal/catalog"
	"github.com/wambo-ai/wambo/internal/reply"
	"github.com/wambo-ai/wambo/pkg/logging"
)

// TurnRecorder persists conversation turns after a generation. Optional.
type TurnRecorder interface {
	AppendTurn(ctx context.Context, conversationID, text string) error
}

// Result is the combined outcome for one inbound message. Reply is nil when
// the message was ignored and no generation was attempted.
type Result struct {
	Analysis analysis.AnalysisResult
	Reply    *reply.OrchestratedResponse
}

// Engine runs the full pipeline for one message.
type Engine struct {
	analyzer     *analysis.Analyzer
	orchestrator *reply.Orchestrator
	catalog      catalog.Accessor
	recorder     TurnRecorder
	logger       *logging.Logger
	tracer       trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithTurnRecorder persists customer and assistant turns after each reply.
func WithTurnRecorder(r TurnRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// New wires the engine. Analyzer, orchestrator and catalog are required.
func New(analyzer *analysis.Analyzer, orchestrator *reply.Orchestrator, cat catalog.Accessor, logger *logging.Logger, opts ...Option) *Engine {
	if analyzer == nil {
		panic("engine: analyzer cannot be nil")
	}
	if orchestrator == nil {
		panic("engine: orchestrator cannot be nil")
	}
	if cat == nil {
		panic("engine: catalog accessor cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		analyzer:     analyzer,
		orchestrator: orchestrator,
		catalog:      cat,
		logger:       logger,
		tracer:       otel.Tracer("wambo.internal.engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle analyzes one inbound message and, unless analysis says to ignore
// it, generates the moderated reply and records both turns.
func (e *Engine) Handle(ctx context.Context, agent reply.AgentConfig, history []reply.ChatMessage, msg analysis.InboundMessage) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "engine.handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("engine.tenant_id", msg.TenantID),
		attribute.String("engine.conversation_id", msg.ConversationID),
	)

	res := e.analyzer.Analyze(ctx, msg)
	if res.Ignore {
		// Short or malformed input never reaches a provider.
		return Result{Analysis: res}, nil
	}

	items, err := e.catalog.ListActiveProducts(ctx, msg.TenantID)
	if err != nil {
		e.logger.Error("catalog read for prompt context failed",
			"tenant_id", msg.TenantID, "error", err)
		items = nil
	}

	out, err := e.orchestrator.Generate(ctx, agent, history, msg, items, res)
	if err != nil {
		return Result{Analysis: res}, fmt.Errorf("engine: generation failed: %w", err)
	}

	e.recordTurns(ctx, msg, out.Content)

	return Result{Analysis: res, Reply: &out}, nil
}

// recordTurns best-effort persists the exchange; failures are logged, the
// reply is already committed to the caller.
func (e *Engine) recordTurns(ctx context.Context, msg analysis.InboundMessage, replyText string) {
	if e.recorder == nil || msg.ConversationID == "" {
		return
	}
	if err := e.recorder.AppendTurn(ctx, msg.ConversationID, "client: "+msg.Text); err != nil {
		e.logger.Error("failed to record customer turn", "conversation_id", msg.ConversationID, "error", err)
	}
	if err := e.recorder.AppendTurn(ctx, msg.ConversationID, "assistant: "+replyText); err != nil {
		e.logger.Error("failed to record assistant turn", "conversation_id", msg.ConversationID, "error", err)
	}
}
