package analysis

import (
	"regexp"
	"sort"
	"strings"
)

// Known intents.
const (
	IntentOrder        = "order"
	IntentInquiry      = "inquiry"
	IntentComplaint    = "complaint"
	IntentReturn       = "return"
	IntentGreeting     = "greeting"
	IntentDeliveryInfo = "delivery_info"
	IntentHumanRequest = "human_request"
	IntentModification = "modification"
	IntentCancellation = "cancellation"
	IntentGeneral      = "general"
	IntentUnknown      = "unknown"
)

type weightedKeyword struct {
	keyword string
	weight  int
}

// intentKeywords is scored against the normalized (lowercased,
// accent-stripped) text, so keywords are written without diacritics.
var intentKeywords = map[string][]weightedKeyword{
	IntentOrder: {
		{"commander", 3}, {"commande", 3}, {"acheter", 3}, {"achete", 3},
		{"je veux", 2}, {"je prends", 3}, {"je voudrais", 2}, {"donnez-moi", 2},
		{"buy", 3}, {"order", 3}, {"purchase", 3}, {"i want", 2}, {"i'll take", 3},
	},
	IntentInquiry: {
		{"prix", 2}, {"combien", 2}, {"coute", 2}, {"disponible", 2},
		{"est-ce que vous avez", 2}, {"avez-vous", 2}, {"c'est quoi", 1},
		{"price", 2}, {"how much", 2}, {"available", 2}, {"do you have", 2},
	},
	IntentComplaint: {
		{"probleme", 3}, {"plainte", 3}, {"mecontent", 3}, {"decu", 3},
		{"pas recu", 3}, {"jamais recu", 3}, {"arnaque", 3}, {"nul", 2},
		{"problem", 3}, {"complaint", 3}, {"disappointed", 3}, {"not received", 3},
		{"scam", 3},
	},
	IntentReturn: {
		{"retourner", 3}, {"rembourser", 3}, {"remboursement", 3}, {"echanger", 3},
		{"renvoyer", 3},
		{"return", 3}, {"refund", 3}, {"exchange", 3}, {"money back", 3},
	},
	IntentGreeting: {
		{"bonjour", 2}, {"bonsoir", 2}, {"salut", 2}, {"coucou", 2},
		{"hello", 2}, {"good morning", 2}, {"good evening", 2}, {"hey", 1},
	},
	IntentDeliveryInfo: {
		{"livraison", 3}, {"livrer", 3}, {"livre", 2}, {"adresse", 2},
		{"quartier", 2}, {"recevoir", 2},
		{"delivery", 3}, {"deliver", 3}, {"address", 2}, {"shipping", 3},
	},
	IntentHumanRequest: {
		{"parler a un humain", 4}, {"parler a quelqu'un", 3}, {"un agent", 3},
		{"un conseiller", 3}, {"une personne", 2}, {"vrai humain", 4},
		{"speak to a human", 4}, {"real person", 4}, {"an agent", 3},
		{"talk to someone", 3}, {"customer service", 2},
	},
	IntentModification: {
		{"modifier", 3}, {"changer", 3}, {"remplacer", 2}, {"plutot", 1},
		{"modify", 3}, {"change", 3}, {"instead", 1}, {"update", 2},
	},
	IntentCancellation: {
		{"annuler", 3}, {"annulation", 3}, {"annule", 3},
		{"cancel", 3}, {"cancellation", 3},
	},
}

// Confidence thresholds on the winning score.
const (
	intentScoreHigh   = 5
	intentScoreMedium = 3
)

// ClassifyIntent scores the normalized text against the keyword table and
// returns the winning intent with bucketed confidence.
func ClassifyIntent(normalized string) Intent {
	scores := make(map[string]int)
	padded := " " + normalized + " "
	for intent, keywords := range intentKeywords {
		for _, kw := range keywords {
			if containsKeyword(padded, kw.keyword) {
				scores[intent] += kw.weight
			}
		}
	}

	if len(scores) == 0 {
		return Intent{Primary: IntentGeneral, Confidence: ConfidenceLow, Scores: scores}
	}

	type scored struct {
		intent string
		score  int
	}
	ranked := make([]scored, 0, len(scores))
	for intent, score := range scores {
		ranked = append(ranked, scored{intent, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].intent < ranked[j].intent
	})

	out := Intent{Primary: ranked[0].intent, Scores: scores}
	if len(ranked) > 1 && ranked[1].score > 0 {
		out.Secondary = ranked[1].intent
	}

	switch {
	case ranked[0].score >= intentScoreHigh:
		out.Confidence = ConfidenceHigh
	case ranked[0].score >= intentScoreMedium:
		out.Confidence = ConfidenceMedium
	default:
		out.Confidence = ConfidenceLow
	}
	return out
}

// containsKeyword does whole-word containment for single words and plain
// substring containment for phrases.
func containsKeyword(padded, keyword string) bool {
	if strings.Contains(keyword, " ") {
		return strings.Contains(padded, keyword)
	}
	for start := 0; start < len(padded); {
		idx := strings.Index(padded[start:], keyword)
		if idx < 0 {
			return false
		}
		idx += start
		if idx > 0 && idx+len(keyword) < len(padded) {
			if !isWordByte(padded[idx-1]) && !isWordByte(padded[idx+len(keyword)]) {
				return true
			}
		}
		start = idx + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b >= 0x80
}

// confirmationOpeners flag a message as a likely confirmation of an earlier
// turn when one of them starts the text.
var confirmationOpeners = regexp.MustCompile(`^\s*(oui|ok|okay|d'accord|daccord|je confirme|c'est bon|je le prends|je les prends|je prends|parfait|vas-y|allez-y|yes|yep|yeah|sure|i confirm|confirmed|i'll take it|go ahead)\b`)

// IsConfirmation reports whether the normalized text opens with a
// confirmation phrase.
func IsConfirmation(normalized string) bool {
	return confirmationOpeners.MatchString(normalized)
}
