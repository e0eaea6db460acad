package reply

import (
	"strings"

	"github.com/wambo-ai/wambo/internal/analysis"
)

const (
	maxReplyLength      = 1200
	confidenceThreshold = 0.6
)

// Static safe fallbacks, keyed by analysis language.
const (
	fallbackFR = "Merci pour votre message. Un membre de notre equipe va vous repondre tres rapidement."
	fallbackEN = "Thanks for your message. A member of our team will get back to you shortly."
)

// FallbackText returns the localized static fallback reply.
func FallbackText(language string) string {
	if language == "en" {
		return fallbackEN
	}
	return fallbackFR
}

// forbiddenPhrases force a human handoff when the model over-promises:
// absolute guarantees and delivery-delay commitments the business never
// authorized.
var forbiddenPhrases = []string{
	// French
	"garanti a 100", "garantie a 100", "100% garanti", "je vous garantis",
	"rembourse integralement sans condition", "livraison garantie",
	"dans exactement", "je promets",
	// English
	"100% guaranteed", "i guarantee", "guaranteed delivery",
	"money back guaranteed", "i promise",
}

// Moderate applies output policy regardless of how the reply was parsed:
// length truncation with an ellipsis, a safe fallback for empty text, and
// a forced human handoff on forbidden phrases or low model confidence.
func Moderate(r StructuredReply, language string) StructuredReply {
	r.Response = strings.TrimSpace(r.Response)

	if r.Response == "" {
		r.Response = FallbackText(language)
		r.NeedHuman = true
		return r
	}

	if len([]rune(r.Response)) > maxReplyLength {
		runes := []rune(r.Response)
		r.Response = string(runes[:maxReplyLength]) + "…"
	}

	// Accent-insensitive so "garanti à 100%" still trips the filter.
	lowered := analysis.NormalizeText(r.Response)
	for _, phrase := range forbiddenPhrases {
		if strings.Contains(lowered, phrase) {
			r.NeedHuman = true
			break
		}
	}

	if r.Confidence != nil && *r.Confidence < confidenceThreshold {
		r.NeedHuman = true
	}
	return r
}
