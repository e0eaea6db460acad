// Package analysis pre-processes inbound customer chat messages: security
// screening, intent classification, product and stock resolution, quantity
// and delivery extraction, and the human-handoff recommendation.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wambo-ai/wambo/internal/catalog"
	"github.com/wambo-ai/wambo/internal/observability/metrics"
	"github.com/wambo-ai/wambo/pkg/logging"
)

// Config tunes the analyzer pipeline. Zero values fall back to defaults.
type Config struct {
	MinMessageLength  int
	MaxMessageLength  int
	LowStockThreshold int
	Quantity          QuantityConfig
	ContextTurns      int
	IndexTTL          time.Duration
	NegationWindow    int
}

const (
	defaultMinMessageLength  = 2
	defaultMaxMessageLength  = 2000
	defaultLowStockThreshold = 5
	defaultContextTurns      = 5
	defaultNegationWindow    = 3

	engagementHighThreshold   = 20
	engagementMediumThreshold = 5
)

// negationWords suppress a product match when they appear shortly before
// its first name token ("pas de poulet", "sans riz").
var negationWords = map[string]struct{}{
	"pas": {}, "non": {}, "sans": {}, "aucun": {}, "aucune": {}, "jamais": {},
	"not": {}, "no": {}, "without": {}, "none": {}, "never": {},
}

// Analyzer runs the message pre-analysis pipeline. It never returns an
// error: malformed input yields an explicit ignore result.
type Analyzer struct {
	cfg      Config
	security *SecurityLexicon
	quantity *QuantityExtractor
	index    *CatalogIndex
	reader   ConversationReader
	logger   *logging.Logger
	tracer   trace.Tracer
	metrics  *metrics.PipelineMetrics
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithConfig overrides pipeline tuning.
func WithConfig(cfg Config) Option {
	return func(a *Analyzer) { a.cfg = cfg }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// New wires a full analyzer over a catalog accessor and a conversation
// reader. The reader may be nil; customer history and context fallback are
// then skipped.
func New(cat catalog.Accessor, reader ConversationReader, logger *logging.Logger, opts ...Option) *Analyzer {
	if cat == nil {
		panic("analysis: catalog accessor cannot be nil")
	}
	a := newBase(reader, logger, opts...)
	a.index = NewCatalogIndex(cat, a.cfg.IndexTTL)
	return a
}

// NewBase wires the catalog-less variant: length guard, security pass,
// language detection, intent classification and confirmation detection
// only.
func NewBase(logger *logging.Logger, opts ...Option) *Analyzer {
	return newBase(nil, logger, opts...)
}

func newBase(reader ConversationReader, logger *logging.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = logging.Default()
	}
	a := &Analyzer{
		reader: reader,
		logger: logger,
		tracer: otel.Tracer("wambo.internal.analysis"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cfg.MinMessageLength <= 0 {
		a.cfg.MinMessageLength = defaultMinMessageLength
	}
	if a.cfg.MaxMessageLength <= 0 {
		a.cfg.MaxMessageLength = defaultMaxMessageLength
	}
	if a.cfg.LowStockThreshold <= 0 {
		a.cfg.LowStockThreshold = defaultLowStockThreshold
	}
	if a.cfg.ContextTurns <= 0 {
		a.cfg.ContextTurns = defaultContextTurns
	}
	if a.cfg.NegationWindow <= 0 {
		a.cfg.NegationWindow = defaultNegationWindow
	}
	a.security = NewSecurityLexicon()
	a.quantity = NewQuantityExtractor(a.cfg.Quantity)
	return a
}

// InvalidateCatalog drops the tenant's cached product index. The catalog
// owner calls this on any product mutation.
func (a *Analyzer) InvalidateCatalog(tenantID string) {
	if a.index != nil {
		a.index.Invalidate(tenantID)
	}
}

// Analyze runs the full pipeline over one inbound message.
func (a *Analyzer) Analyze(ctx context.Context, msg InboundMessage) AnalysisResult {
	ctx, span := a.tracer.Start(ctx, "analysis.analyze")
	defer span.End()

	res := a.analyzeBase(ctx, msg)
	if res.Ignore {
		a.metrics.ObserveAnalysis(res.Intent.Primary, string(res.RiskLevel))
		return res
	}

	text := truncate(msg.Text, a.cfg.MaxMessageLength)
	normalized := NormalizeText(text)

	if a.index != nil {
		a.resolveProducts(ctx, &res, msg, normalized)
	}
	res.Delivery = ExtractDelivery(normalized)
	res.CustomerHistory = a.customerHistory(ctx, msg)
	a.decideHandoff(&res)

	res.IsLikelyOrder = res.Intent.Primary == IntentOrder ||
		(res.IsConfirmation && len(res.Products.Matched) > 0)

	span.SetAttributes(
		attribute.String("analysis.intent", res.Intent.Primary),
		attribute.String("analysis.risk", string(res.RiskLevel)),
		attribute.Int("analysis.products_matched", len(res.Products.Matched)),
		attribute.Bool("analysis.needs_human", res.NeedsHuman.Needed),
	)
	a.metrics.ObserveAnalysis(res.Intent.Primary, string(res.RiskLevel))
	return res
}

// AnalyzeBase runs steps that need no catalog: length guard, security,
// language, intent and confirmation. The result is structurally compatible
// with Analyze's, with product, delivery and history fields empty.
func (a *Analyzer) AnalyzeBase(ctx context.Context, msg InboundMessage) AnalysisResult {
	ctx, span := a.tracer.Start(ctx, "analysis.analyze_base")
	defer span.End()
	return a.analyzeBase(ctx, msg)
}

func (a *Analyzer) analyzeBase(_ context.Context, msg InboundMessage) AnalysisResult {
	res := AnalysisResult{
		Intent:    Intent{Primary: IntentUnknown, Confidence: ConfidenceLow},
		RiskLevel: RiskLow,
		Timestamp: time.Now().UTC(),
	}

	trimmed := strings.TrimSpace(msg.Text)
	if len([]rune(trimmed)) < a.cfg.MinMessageLength {
		res.Ignore = true
		return res
	}

	text := truncate(trimmed, a.cfg.MaxMessageLength)
	normalized := NormalizeText(text)

	scan := a.security.Scan(text)
	if scan.InjectionDetected {
		res.RiskLevel = RiskHigh
		res.Escalate = true
		a.logger.Warn("prompt injection attempt in inbound message",
			"tenant_id", msg.TenantID,
			"conversation_id", msg.ConversationID,
			"reasons", strings.Join(scan.InjectionReasons, ","),
		)
	}
	if scan.InsultDetected {
		res.NeedsHuman.Needed = true
		res.NeedsHuman.Reasons = append(res.NeedsHuman.Reasons, "offensive_language")
	}

	res.Language = DetectLanguage(text)
	res.Intent = ClassifyIntent(normalized)
	res.IsConfirmation = IsConfirmation(normalized)
	return res
}

// resolveProducts matches catalog products against the message, falling
// back to recent conversation turns when a bare confirmation carries no
// product of its own.
func (a *Analyzer) resolveProducts(ctx context.Context, res *AnalysisResult, msg InboundMessage, normalized string) {
	idx, err := a.index.get(ctx, msg.TenantID)
	if err != nil {
		a.logger.Error("catalog lookup failed, skipping product resolution",
			"tenant_id", msg.TenantID, "error", err)
		return
	}
	if len(idx.products) == 0 {
		return
	}

	matches := a.matchAgainst(idx, normalized, MatchFromMessage)

	if len(matches) == 0 && res.IsConfirmation && a.reader != nil && msg.ConversationID != "" {
		turns, err := a.reader.RecentTurns(ctx, msg.ConversationID, a.cfg.ContextTurns)
		if err != nil {
			a.logger.Error("context fallback failed", "conversation_id", msg.ConversationID, "error", err)
		} else if len(turns) > 0 {
			contextText := NormalizeText(strings.Join(turns, " \n "))
			matches = a.matchAgainst(idx, contextText, MatchFromContext)
		}
	}

	for _, m := range matches {
		res.Products.Matched = append(res.Products.Matched, m)
		res.Products.TotalRequested += m.RequestedQuantity
		res.Quantities = append(res.Quantities, m.RequestedQuantity)
		if issue := stockIssueFor(m); issue != nil {
			res.Products.StockIssues = append(res.Products.StockIssues, *issue)
		}
	}
}

// matchAgainst runs one matching pass of the index against a text.
func (a *Analyzer) matchAgainst(idx *tenantIndex, text string, source MatchSource) []ProductMatch {
	msgTokens := Tokenize(text)
	if len(msgTokens) == 0 {
		return nil
	}
	tokenSet := make(map[string]struct{}, len(msgTokens))
	for _, t := range msgTokens {
		tokenSet[singularize(t)] = struct{}{}
	}
	words := strings.Fields(text)

	var out []ProductMatch
	for _, pos := range idx.candidates(msgTokens) {
		p := idx.products[pos]
		nameNorm := NormalizeText(p.Name)
		nameTokens := Tokenize(p.Name)
		if len(nameTokens) == 0 {
			continue
		}

		accepted := strings.Contains(text, nameNorm) ||
			a.enoughTokensPresent(nameTokens, tokenSet) ||
			skuPresent(p.SKU, tokenSet)
		if !accepted {
			continue
		}

		anchor := singularize(nameTokens[0])
		if a.negatedBefore(words, anchor) {
			continue
		}

		qty := a.quantity.Extract(text, anchor)
		out = append(out, ProductMatch{
			ID:                p.ID,
			Name:              p.Name,
			SKU:               p.SKU,
			PriceCents:        p.PriceCents,
			Stock:             p.Stock,
			RequestedQuantity: qty,
			StockStatus:       a.stockStatus(p.Stock, qty),
			MatchedFrom:       source,
		})
	}
	return out
}

// enoughTokensPresent applies the min(2, wordCount) name-token rule.
func (a *Analyzer) enoughTokensPresent(nameTokens []string, tokenSet map[string]struct{}) bool {
	needed := 2
	if len(nameTokens) < needed {
		needed = len(nameTokens)
	}
	found := 0
	for _, t := range nameTokens {
		if _, ok := tokenSet[singularize(t)]; ok {
			found++
			if found >= needed {
				return true
			}
		}
	}
	return false
}

func skuPresent(sku string, tokenSet map[string]struct{}) bool {
	sku = NormalizeText(sku)
	if sku == "" {
		return false
	}
	_, ok := tokenSet[singularize(sku)]
	return ok
}

// negatedBefore reports whether a negation word appears within the
// configured word window before the anchor's first occurrence.
func (a *Analyzer) negatedBefore(words []string, anchor string) bool {
	anchorAt := -1
	for i, w := range words {
		if singularize(strings.Trim(w, ".,;:!?'\"")) == anchor {
			anchorAt = i
			break
		}
	}
	if anchorAt < 0 {
		return false
	}
	start := anchorAt - a.cfg.NegationWindow
	if start < 0 {
		start = 0
	}
	for _, w := range words[start:anchorAt] {
		if _, ok := negationWords[strings.Trim(w, ".,;:!?'\"")]; ok {
			return true
		}
	}
	return false
}

func (a *Analyzer) stockStatus(stock, requested int) StockStatus {
	switch {
	case stock == 0:
		return StockOut
	case stock < requested:
		return StockInsufficient
	case stock <= a.cfg.LowStockThreshold:
		return StockLow
	default:
		return StockAvailable
	}
}

func stockIssueFor(m ProductMatch) *StockIssue {
	switch m.StockStatus {
	case StockOut:
		return &StockIssue{
			Type:        IssueOutOfStock,
			ProductID:   m.ID,
			ProductName: m.Name,
			Message:     fmt.Sprintf("%s is out of stock", m.Name),
		}
	case StockInsufficient:
		return &StockIssue{
			Type:        IssueInsufficient,
			ProductID:   m.ID,
			ProductName: m.Name,
			Message:     fmt.Sprintf("only %d of %s in stock, %d requested", m.Stock, m.Name, m.RequestedQuantity),
		}
	case StockLow:
		return &StockIssue{
			Type:        IssueLowStock,
			ProductID:   m.ID,
			ProductName: m.Name,
			Message:     fmt.Sprintf("%s is low on stock (%d left)", m.Name, m.Stock),
		}
	default:
		return nil
	}
}

// customerHistory aggregates prior orders and engagement for the
// conversation. Returns nil without a conversation reference or reader.
func (a *Analyzer) customerHistory(ctx context.Context, msg InboundMessage) *CustomerHistory {
	if a.reader == nil || msg.ConversationID == "" {
		return nil
	}
	summary, err := a.reader.CustomerOrderSummary(ctx, msg.TenantID, msg.ConversationID)
	if err != nil {
		a.logger.Error("customer history lookup failed",
			"tenant_id", msg.TenantID, "conversation_id", msg.ConversationID, "error", err)
		return nil
	}

	h := &CustomerHistory{
		TotalOrders:  len(summary.Orders),
		MessageCount: summary.MessageCount,
	}
	for _, o := range summary.Orders {
		switch o.Status {
		case "validated", "delivered", "completed":
			h.ValidatedOrders++
			h.LifetimeSpend += o.TotalCents
		case "pending":
			h.PendingOrders++
		}
	}
	switch {
	case h.MessageCount >= engagementHighThreshold:
		h.Engagement = EngagementHigh
	case h.MessageCount >= engagementMediumThreshold:
		h.Engagement = EngagementMedium
	default:
		h.Engagement = EngagementLow
	}
	return h
}

// decideHandoff accumulates the reasons a human should take over.
func (a *Analyzer) decideHandoff(res *AnalysisResult) {
	addReason := func(reason string) {
		res.NeedsHuman.Needed = true
		res.NeedsHuman.Reasons = append(res.NeedsHuman.Reasons, reason)
	}

	switch res.Intent.Primary {
	case IntentHumanRequest:
		addReason("customer_requested_human")
	case IntentComplaint:
		addReason("complaint_detected")
	}

	orderish := res.Intent.Primary == IntentOrder || res.IsConfirmation
	for _, m := range res.Products.Matched {
		switch m.StockStatus {
		case StockOut:
			if orderish {
				addReason("ordered_product_out_of_stock")
			}
		case StockInsufficient:
			addReason("requested_quantity_exceeds_stock")
		}
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
