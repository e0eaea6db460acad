package reply

import "strings"

// Memory window defaults. Providers pass their own budgets; compression
// only kicks in well above any provider budget.
const (
	compressionThreshold = 30
	compressionKeepLast  = 10
)

// TokenEstimator approximates token counts for budget trimming.
type TokenEstimator func(s string) int

// EstimateTokens is the default chars/4 heuristic. Close enough for
// window trimming; exact counts come back from the provider.
func EstimateTokens(s string) int {
	return len(s)/4 + 1
}

// SelectWindow returns a bounded slice of history. A history that already
// fits maxMessages passes through whole. Longer histories keep the first
// message (durable context) plus the most recent maxMessages-1, trimmed
// further from the oldest end of the recent slice until the token budget
// holds, always preserving the first and last message. Pure and
// deterministic.
func SelectWindow(history []ChatMessage, maxMessages, maxTokens int, keepFirst bool, estimate TokenEstimator) []ChatMessage {
	if estimate == nil {
		estimate = EstimateTokens
	}
	if len(history) == 0 || maxMessages <= 0 {
		return nil
	}
	if len(history) <= maxMessages {
		return append([]ChatMessage(nil), history...)
	}

	var window []ChatMessage
	if keepFirst {
		window = append(window, history[0])
		window = append(window, history[len(history)-(maxMessages-1):]...)
	} else {
		window = append(window, history[len(history)-maxMessages:]...)
	}

	if maxTokens <= 0 {
		return window
	}

	total := 0
	for _, m := range window {
		total += estimate(m.Content)
	}
	// Drop from the oldest end of the kept recent slice, never the first
	// or last message.
	for total > maxTokens && len(window) > 2 {
		total -= estimate(window[1].Content)
		window = append(window[:1], window[2:]...)
	}
	return window
}

// Compress collapses everything but the last messages into one synthetic
// summary turn once history crosses the compression threshold. The summary
// is a placeholder for future real summarization.
func Compress(history []ChatMessage) []ChatMessage {
	if len(history) <= compressionThreshold {
		return history
	}
	kept := history[len(history)-compressionKeepLast:]
	out := make([]ChatMessage, 0, len(kept)+1)
	out = append(out, ChatMessage{
		Role:    ChatRoleSystem,
		Content: "[Resume de la conversation precedente: echanges anterieurs omis pour rester concis.]",
	})
	out = append(out, kept...)
	return out
}

// HasGreeted reports whether an assistant turn in the visible history
// already contains a greeting, so the prompt can forbid repeating one.
func HasGreeted(history []ChatMessage) bool {
	for _, m := range history {
		if m.Role != ChatRoleAssistant {
			continue
		}
		if containsGreeting(m.Content) {
			return true
		}
	}
	return false
}

var greetingMarkers = []string{"bonjour", "bonsoir", "salut", "hello", "good morning", "good evening", "welcome", "bienvenue"}

func containsGreeting(s string) bool {
	lowered := strings.ToLower(s)
	for _, g := range greetingMarkers {
		if strings.Contains(lowered, g) {
			return true
		}
	}
	return false
}
