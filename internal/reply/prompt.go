package reply

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"strings"

	"github.com/wambo-ai/wambo/internal/analysis"
	"github.com/wambo-ai/wambo/internal/catalog"
)

// AgentConfig is the tenant's reply-agent configuration.
type AgentConfig struct {
	TenantID string
	// Name of the business, used in context rendering only. The assistant
	// never introduces itself by name or role.
	BusinessName string
	// SystemPrompt is the tenant's custom behavior prompt. Optional; the
	// built-in default applies when empty.
	SystemPrompt string
	// KnowledgeSnippets are free-form knowledge-base extracts, each capped
	// in length before inclusion.
	KnowledgeSnippets []string
	Model             string
	Temperature       float32
	MaxTokens         int32
}

const (
	maxCustomPromptLength = 4000
	maxSnippetLength      = 800

	catalogSnippetMarker = "[catalogue]"
)

const defaultSystemPrompt = `Tu es l'assistant commercial d'une boutique en ligne. Reponds de facon breve, chaleureuse et utile, dans la langue du client. Aide le client a choisir ses produits, verifier la disponibilite et completer sa commande (produit, quantite, ville, quartier, telephone).`

const fixedRules = `
REGLES NON NEGOCIABLES:
- Ne te presente jamais par un nom ou un role.
- Si un salut a deja eu lieu dans la conversation, n'en refais pas un autre.
- Formule les citations du catalogue positivement: ne laisse jamais entendre qu'une information manque quand elle est fournie ci-dessous.`

const noGreetingRule = `
- Un salut a deja ete echange: reponds directement sans nouvelle salutation.`

const policyBlock = `
CADRE LEGAL ET SECURITE:
- Aucune garantie absolue, aucun prix invente, aucun delai de livraison promis sans confirmation du vendeur.
- Transfert humain approprie: reclamation, litige, demande explicite d'un humain, stock insuffisant pour une commande.
- Transfert humain inapproprie: simple question sur un produit ou un prix deja present dans le contexte.
- Reponds UNIQUEMENT avec un objet JSON de la forme {"response": "...", "needHuman": false, "confidence": 0.0}.`

// PromptBuilder assembles the three-block system prompt. Tenant prompts are
// scanned for injection phrasing; findings are logged by the orchestrator
// but never rejected outright.
type PromptBuilder struct {
	security *analysis.SecurityLexicon
}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{security: analysis.NewSecurityLexicon()}
}

// AssembledPrompt is the prompt text plus its traceability digest.
type AssembledPrompt struct {
	Text string
	// Digest is a stable short hash of the text, for tracing and prompt
	// versioning.
	Digest string
	// InjectionFindings are suspicious phrasings found in the tenant's
	// custom prompt. Informational only.
	InjectionFindings []string
}

// Build renders global behavior, business context and policy blocks into
// one system prompt.
func (b *PromptBuilder) Build(agent AgentConfig, res analysis.AnalysisResult, items []catalog.Product, hasGreeted bool) AssembledPrompt {
	var out AssembledPrompt
	var sb strings.Builder

	// Block 1: global behavior.
	custom := strings.TrimSpace(html.UnescapeString(agent.SystemPrompt))
	if custom != "" {
		if len([]rune(custom)) > maxCustomPromptLength {
			custom = string([]rune(custom)[:maxCustomPromptLength])
		}
		out.InjectionFindings = b.security.ScanPromptInjection(custom)
		sb.WriteString(custom)
	} else {
		sb.WriteString(defaultSystemPrompt)
	}
	sb.WriteString("\n")
	sb.WriteString(fixedRules)
	if hasGreeted {
		sb.WriteString(noGreetingRule)
	}

	// Block 2: business context.
	sb.WriteString("\n\n")
	sb.WriteString(renderBusinessContext(agent, res, items))

	// Block 3: policy.
	sb.WriteString("\n")
	sb.WriteString(policyBlock)

	out.Text = sb.String()
	out.Digest = PromptDigest(out.Text)
	return out
}

// PromptDigest returns the stable short digest used for prompt tracing.
func PromptDigest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:12]
}

func renderBusinessContext(agent AgentConfig, res analysis.AnalysisResult, items []catalog.Product) string {
	var sb strings.Builder
	sb.WriteString("CONTEXTE COMMERCIAL:\n")
	if agent.BusinessName != "" {
		fmt.Fprintf(&sb, "- Boutique: %s\n", agent.BusinessName)
	}
	fmt.Fprintf(&sb, "- Intention detectee: %s (confiance %s)\n", res.Intent.Primary, res.Intent.Confidence)
	fmt.Fprintf(&sb, "- Langue du client: %s\n", res.Language)

	if len(res.Products.Matched) > 0 {
		sb.WriteString("- Produits mentionnes:\n")
		for _, m := range res.Products.Matched {
			fmt.Fprintf(&sb, "  * %s: prix %d FCFA, stock %d, quantite demandee %d (%s)\n",
				m.Name, m.PriceCents/100, m.Stock, m.RequestedQuantity, m.StockStatus)
		}
	}
	for _, issue := range res.Products.StockIssues {
		fmt.Fprintf(&sb, "- Alerte stock: %s\n", issue.Message)
	}

	if h := res.CustomerHistory; h != nil {
		fmt.Fprintf(&sb, "- Client connu: %d commandes (%d validees), engagement %s\n",
			h.TotalOrders, h.ValidatedOrders, h.Engagement)
	}

	if d := res.Delivery; d.City != "" || d.Neighborhood != "" || d.Phone != "" {
		fmt.Fprintf(&sb, "- Livraison deja connue: ville=%q quartier=%q tel=%q\n",
			d.City, d.Neighborhood, d.Phone)
	}
	if missing := res.Delivery.MissingFields(); len(missing) > 0 && res.IsLikelyOrder {
		fmt.Fprintf(&sb, "- Informations de livraison a demander: %s\n", strings.Join(missing, ", "))
	}

	if res.NeedsHuman.Needed {
		fmt.Fprintf(&sb, "- Transfert humain recommande (%s)\n", strings.Join(res.NeedsHuman.Reasons, ", "))
	}

	if len(items) > 0 && len(res.Products.Matched) == 0 {
		sb.WriteString("- Catalogue actif (extrait):\n")
		for i, p := range items {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&sb, "  * %s: %d FCFA, stock %d\n", p.Name, p.PriceCents/100, p.Stock)
		}
	}

	for _, snippet := range agent.KnowledgeSnippets {
		snippet = strings.TrimSpace(snippet)
		if snippet == "" {
			continue
		}
		if len([]rune(snippet)) > maxSnippetLength {
			snippet = string([]rune(snippet)[:maxSnippetLength]) + "…"
		}
		if strings.HasPrefix(strings.ToLower(snippet), catalogSnippetMarker) {
			sb.WriteString("- Extrait catalogue (source de verite produit):\n")
			fmt.Fprintf(&sb, "  %s\n", snippet)
			sb.WriteString("  Limite tes affirmations produit a cet extrait. N'invente aucune caracteristique. Ne mentionne un lien d'image que s'il figure dans l'extrait.\n")
			continue
		}
		fmt.Fprintf(&sb, "- Info: %s\n", snippet)
	}

	return sb.String()
}
