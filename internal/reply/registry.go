package reply

import (
	"strings"

	"github.com/wambo-ai/wambo/internal/observability/metrics"
	"github.com/wambo-ai/wambo/pkg/breaker"
)

// ProviderKind identifies a provider class. Routing is a small decision
// table over this enum rather than ad-hoc string matching at call sites.
type ProviderKind int

const (
	KindFallback ProviderKind = iota
	KindFlagship
	KindSecondary
	KindGateway
)

func (k ProviderKind) String() string {
	switch k {
	case KindFlagship:
		return "flagship"
	case KindSecondary:
		return "secondary"
	case KindGateway:
		return "gateway"
	default:
		return "fallback"
	}
}

// flagshipModelPrefixes route a model name to the flagship provider.
var flagshipModelPrefixes = []string{"gpt-", "o1-", "o3-"}

// Provider is one registered provider class with its breaker and history
// budgets.
type Provider struct {
	Kind        ProviderKind
	Name        string
	Client      LLMClient
	Breaker     *breaker.Breaker
	MaxMessages int
	MaxTokens   int
}

// Registry owns the provider instances and their circuit breakers, one per
// provider class, constructed once at process start.
type Registry struct {
	providers  map[ProviderKind]*Provider
	breakerCfg breaker.Config
	metrics    *metrics.PipelineMetrics
}

// NewRegistry builds an empty registry. Breakers for registered providers
// share cfg; their transitions feed the breaker-state gauge.
func NewRegistry(cfg breaker.Config, m *metrics.PipelineMetrics) *Registry {
	return &Registry{
		providers:  make(map[ProviderKind]*Provider),
		breakerCfg: cfg,
		metrics:    m,
	}
}

// Register adds a provider class. The registry creates and owns its
// breaker. History budgets must be positive.
func (r *Registry) Register(kind ProviderKind, name string, client LLMClient, maxMessages, maxTokens int) {
	if client == nil {
		panic("reply: provider client cannot be nil")
	}
	if maxMessages <= 0 {
		maxMessages = 20
	}
	if maxTokens <= 0 {
		maxTokens = 3000
	}
	br := breaker.New(name, r.breakerCfg, breaker.WithTransitionHook(func(name string, _, to breaker.State) {
		r.metrics.SetBreakerState(name, float64(to))
	}))
	r.providers[kind] = &Provider{
		Kind:        kind,
		Name:        name,
		Client:      client,
		Breaker:     br,
		MaxMessages: maxMessages,
		MaxTokens:   maxTokens,
	}
}

// Provider returns the registered provider of a kind, if any.
func (r *Registry) Provider(kind ProviderKind) (*Provider, bool) {
	p, ok := r.providers[kind]
	return p, ok
}

// modelKind classifies a model name by shape alone: path-qualified names
// are gateway models, known flagship prefixes are flagship, "gemini" names
// are secondary. Unknown names belong to no provider class.
func modelKind(model string) ProviderKind {
	model = strings.ToLower(strings.TrimSpace(model))
	switch {
	case model == "":
		return KindFallback
	case strings.Contains(model, "/"):
		return KindGateway
	case hasFlagshipPrefix(model):
		return KindFlagship
	case strings.HasPrefix(model, "gemini"):
		return KindSecondary
	default:
		return KindFallback
	}
}

// KindForModel applies the routing decision table: the model's shape wins
// when that provider class is configured; anything else falls back to
// availability order.
func (r *Registry) KindForModel(model string) ProviderKind {
	if kind := modelKind(model); kind != KindFallback {
		if _, ok := r.providers[kind]; ok {
			return kind
		}
	}
	for _, kind := range []ProviderKind{KindFlagship, KindSecondary, KindGateway} {
		if _, ok := r.providers[kind]; ok {
			return kind
		}
	}
	return KindFallback
}

func hasFlagshipPrefix(model string) bool {
	for _, prefix := range flagshipModelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// Chain returns the failover order for an attempt: the preferred provider
// first, then the remaining configured providers in fixed preference order.
func (r *Registry) Chain(preferred ProviderKind) []*Provider {
	var out []*Provider
	if p, ok := r.providers[preferred]; ok {
		out = append(out, p)
	}
	for _, kind := range []ProviderKind{KindFlagship, KindSecondary, KindGateway} {
		if kind == preferred {
			continue
		}
		if p, ok := r.providers[kind]; ok {
			out = append(out, p)
		}
	}
	return out
}
