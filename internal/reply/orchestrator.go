package reply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wambo-ai/wambo/internal/analysis"
	"github.com/wambo-ai/wambo/internal/catalog"
	"github.com/wambo-ai/wambo/internal/credits"
	"github.com/wambo-ai/wambo/internal/observability/metrics"
	"github.com/wambo-ai/wambo/pkg/breaker"
	"github.com/wambo-ai/wambo/pkg/logging"
)

// ErrInvalidInput is the only error Generate raises: structurally invalid
// arguments. Provider-side failures degrade to the fallback response.
var ErrInvalidInput = errors.New("reply: invalid input")

// ProviderFallback tags responses produced without any provider call.
const ProviderFallback = "fallback"

// actionReply is the ledger action metered for one generation.
const actionReply = "ai_reply"

// OrchestratedResponse is the caller-facing result of one generation. It is
// never partially populated: either a full provider success or a fallback
// with Provider set to "fallback".
type OrchestratedResponse struct {
	Content          string
	NeedHuman        bool
	TokensUsed       int
	Provider         string
	Model            string
	PromptDigest     string
	CreditsDeducted  int64
	CreditsRemaining int64
	// CreditWarning signals the operator-facing layer that the tenant was
	// out of credits and got the free fallback.
	CreditWarning bool
}

// Orchestrator selects a provider, assembles the prompt, invokes providers
// through their breakers with failover, parses and moderates the reply, and
// meters credits.
type Orchestrator struct {
	registry *Registry
	ledger   credits.Ledger
	prompts  *PromptBuilder
	logger   *logging.Logger
	tracer   trace.Tracer
	metrics  *metrics.PipelineMetrics
	estimate TokenEstimator
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorMetrics attaches pipeline metrics.
func WithOrchestratorMetrics(m *metrics.PipelineMetrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTokenEstimator overrides the token estimator used when a provider
// reports no usage.
func WithTokenEstimator(fn TokenEstimator) OrchestratorOption {
	return func(o *Orchestrator) { o.estimate = fn }
}

// NewOrchestrator wires the reply pipeline.
func NewOrchestrator(registry *Registry, ledger credits.Ledger, logger *logging.Logger, opts ...OrchestratorOption) *Orchestrator {
	if registry == nil {
		panic("reply: registry cannot be nil")
	}
	if ledger == nil {
		panic("reply: credit ledger cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	o := &Orchestrator{
		registry: registry,
		ledger:   ledger,
		prompts:  NewPromptBuilder(),
		logger:   logger,
		tracer:   otel.Tracer("wambo.internal.reply"),
		estimate: EstimateTokens,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate produces one moderated reply. Provider-side failures are never
// surfaced; the caller always gets some text.
func (o *Orchestrator) Generate(ctx context.Context, agent AgentConfig, history []ChatMessage, msg analysis.InboundMessage, items []catalog.Product, res analysis.AnalysisResult) (OrchestratedResponse, error) {
	if strings.TrimSpace(agent.TenantID) == "" {
		return OrchestratedResponse{}, fmt.Errorf("%w: agent config missing tenant id", ErrInvalidInput)
	}
	if strings.TrimSpace(msg.Text) == "" {
		return OrchestratedResponse{}, fmt.Errorf("%w: empty inbound message", ErrInvalidInput)
	}

	ctx, span := o.tracer.Start(ctx, "reply.generate")
	defer span.End()

	generationID := uuid.NewString()
	log := o.logger.With("tenant_id", agent.TenantID, "generation_id", generationID)

	prompt := o.prompts.Build(agent, res, items, HasGreeted(history))
	if len(prompt.InjectionFindings) > 0 {
		log.Warn("tenant system prompt contains injection phrasing",
			"findings", strings.Join(prompt.InjectionFindings, ","))
	}
	span.SetAttributes(
		attribute.String("reply.prompt_digest", prompt.Digest),
		attribute.String("reply.model", agent.Model),
	)

	chain := o.registry.Chain(o.registry.KindForModel(agent.Model))
	if len(chain) == 0 {
		log.Warn("no provider configured, serving fallback")
		return o.fallback(res.Language, prompt.Digest, false), nil
	}

	// Credit gate before any billable call. A ledger lookup failure is
	// logged and fails open; an explicit "no balance" short-circuits to
	// the free fallback.
	hasBalance, err := o.ledger.HasBalance(ctx, agent.TenantID, actionReply)
	if err != nil {
		log.Error("credit balance check failed, allowing call", "error", err)
	} else if !hasBalance {
		log.Warn("insufficient credits, serving fallback")
		o.metrics.ObserveDeduction("insufficient")
		return o.fallback(res.Language, prompt.Digest, true), nil
	}

	history = Compress(history)

	for i, p := range chain {
		// The chosen provider always goes through its breaker, which does
		// its own open-check; later providers are skipped when already
		// open to avoid doomed calls.
		if i > 0 && p.Breaker.State() == breaker.StateOpen {
			log.Info("skipping provider with open breaker", "provider", p.Name)
			continue
		}

		req := o.buildRequest(agent, p, prompt.Text, history, msg)

		start := time.Now()
		resp, err := breaker.Do(ctx, p.Breaker, func(ctx context.Context) (LLMResponse, error) {
			return p.Client.Complete(ctx, req)
		})
		elapsed := time.Since(start).Seconds()
		if err != nil {
			o.metrics.ObserveProviderCall(p.Name, callStatus(err), elapsed)
			log.Warn("provider call failed, trying next",
				"provider", p.Name, "status", callStatus(err), "error", err)
			span.RecordError(err)
			continue
		}
		o.metrics.ObserveProviderCall(p.Name, "success", elapsed)

		return o.finish(ctx, log, span, agent, p, prompt, resp, res.Language, req.Model), nil
	}

	log.Error("all providers failed, serving fallback")
	o.metrics.ObserveFallback()
	return o.fallback(res.Language, prompt.Digest, false), nil
}

// buildRequest reduces history through the provider's memory window and
// appends the inbound message, explicitly labeled as the one to answer.
func (o *Orchestrator) buildRequest(agent AgentConfig, p *Provider, systemPrompt string, history []ChatMessage, msg analysis.InboundMessage) LLMRequest {
	window := SelectWindow(history, p.MaxMessages, p.MaxTokens, true, o.estimate)
	messages := make([]ChatMessage, 0, len(window)+1)
	messages = append(messages, window...)
	messages = append(messages, ChatMessage{
		Role:    ChatRoleUser,
		Content: "[Message du client a traiter maintenant] " + msg.Text,
	})

	temperature := agent.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	maxTokens := agent.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 600
	}

	// The configured model name goes only to the provider class it names;
	// a failover provider called with another class's model would reject
	// it, so the others run on their own configured defaults.
	model := ""
	if modelKind(agent.Model) == p.Kind {
		model = agent.Model
	}
	return LLMRequest{
		Model:       model,
		System:      []string{systemPrompt},
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// finish parses, moderates and meters one successful provider response.
func (o *Orchestrator) finish(ctx context.Context, log *logging.Logger, span trace.Span, agent AgentConfig, p *Provider, prompt AssembledPrompt, resp LLMResponse, language, reqModel string) OrchestratedResponse {
	reply, strategy, parseErr := ParseStructuredReply(resp.Text)
	if parseErr != nil {
		// The provider answered but not in contract; serve the safe text
		// and flag a human. The call happened, so it is still metered.
		log.Warn("structured reply unparseable, forcing handoff", "provider", p.Name)
		o.metrics.ObserveParse("failed")
		reply = StructuredReply{Response: FallbackText(language), NeedHuman: true}
	} else {
		o.metrics.ObserveParse(strategy)
	}

	reply = Moderate(reply, language)

	tokens := int(resp.Usage.TotalTokens)
	if tokens == 0 {
		tokens = o.estimate(prompt.Text) + o.estimate(reply.Response)
	}

	out := OrchestratedResponse{
		Content:          reply.Response,
		NeedHuman:        reply.NeedHuman,
		TokensUsed:       tokens,
		Provider:         p.Name,
		Model:            modelLabel(reqModel, p.Name),
		PromptDigest:     prompt.Digest,
		CreditsRemaining: -1,
	}

	deduction, err := o.ledger.Deduct(ctx, agent.TenantID, actionReply, credits.Usage{
		Tokens:   tokens,
		Model:    out.Model,
		Provider: p.Name,
	})
	switch {
	case err != nil:
		// Never unwind an already-produced response over metering.
		log.Error("credit deduction failed", "error", err)
		o.metrics.ObserveDeduction("error")
	case !deduction.OK:
		log.Warn("credit deduction rejected", "remaining", deduction.Remaining)
		o.metrics.ObserveDeduction("rejected")
		out.CreditWarning = true
		out.CreditsRemaining = deduction.Remaining
	default:
		o.metrics.ObserveDeduction("ok")
		out.CreditsDeducted = deduction.Deducted
		out.CreditsRemaining = deduction.Remaining
	}

	span.SetAttributes(
		attribute.String("reply.provider", p.Name),
		attribute.Int("reply.tokens_used", tokens),
		attribute.Bool("reply.need_human", out.NeedHuman),
	)
	return out
}

func (o *Orchestrator) fallback(language, digest string, creditWarning bool) OrchestratedResponse {
	return OrchestratedResponse{
		Content:          FallbackText(language),
		NeedHuman:        true,
		TokensUsed:       0,
		Provider:         ProviderFallback,
		Model:            "",
		PromptDigest:     digest,
		CreditsRemaining: -1,
		CreditWarning:    creditWarning,
	}
}

// modelLabel names the model actually requested, falling back to the
// provider name when the adapter ran on its own default.
func modelLabel(requested, provider string) string {
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	return provider
}

// callStatus maps a provider error to a metrics label.
func callStatus(err error) string {
	switch {
	case errors.Is(err, breaker.ErrOpen):
		return "breaker_open"
	case errors.Is(err, breaker.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
