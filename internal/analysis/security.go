package analysis

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SecurityScan is the outcome of the security pass over one message.
type SecurityScan struct {
	InjectionDetected bool
	InjectionReasons  []string
	InsultDetected    bool
	MatchedInsult     string
}

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeText lowercases the text and strips diacritics so lexicon
// matching is accent-insensitive.
func NormalizeText(s string) string {
	lowered := strings.ToLower(s)
	out, _, err := transform.String(stripDiacritics, lowered)
	if err != nil {
		return lowered
	}
	return out
}

// leetReplacer collapses the digit/symbol substitutions commonly used to
// slip insults past word filters.
var leetReplacer = strings.NewReplacer(
	"0", "o",
	"1", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"@", "a",
	"$", "s",
)

func collapseLeet(s string) string {
	return leetReplacer.Replace(s)
}

// injectionPattern flags prompt-injection intent in either supported
// language.
type injectionPattern struct {
	re     *regexp.Regexp
	reason string
}

var injectionPatterns = []injectionPattern{
	{regexp.MustCompile(`ignore\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?)`), "injection:ignore_instructions"},
	{regexp.MustCompile(`disregard\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?)`), "injection:disregard_instructions"},
	{regexp.MustCompile(`forget\s+(all\s+)?(previous|prior|your)\s+(instructions?|rules?|prompts?)`), "injection:forget_instructions"},
	{regexp.MustCompile(`you\s+are\s+now\s+(a|an|my)\s+`), "injection:role_reassignment"},
	{regexp.MustCompile(`system\s*prompt\s*:|new\s+instructions?\s*:`), "injection:new_role"},
	{regexp.MustCompile(`ignore\s+(toutes\s+)?(les\s+)?(instructions?|consignes?|regles?)\s+(precedentes?|anterieures?|ci-dessus)`), "injection:ignore_instructions_fr"},
	{regexp.MustCompile(`oublie\s+(tes|les|toutes\s+tes)\s+(instructions?|consignes?|regles?)`), "injection:forget_instructions_fr"},
	{regexp.MustCompile(`tu\s+es\s+(maintenant|desormais)\s+`), "injection:role_reassignment_fr"},
	{regexp.MustCompile(`nouvelles?\s+(instructions?|consignes?)\s*:`), "injection:new_role_fr"},
	{regexp.MustCompile(`revele\s+(ton|le)\s+(prompt|message)\s+(systeme|initial)`), "injection:exfiltration_fr"},
	{regexp.MustCompile(`(reveal|show|print|repeat)\s+(your\s+)?(system\s+prompt|initial\s+prompt|instructions)`), "injection:exfiltration"},
}

// offensiveWords are matched whole-word against the normalized text. The
// list is deliberately short: it gates human handoff, not censorship.
var offensiveWords = []string{
	// French
	"con", "connard", "connarde", "conne", "idiot", "idiote", "imbecile",
	"abruti", "abrutie", "cretin", "cretine", "debile", "salaud", "salope",
	"encule", "merde", "pute", "batard",
	// English
	"asshole", "bastard", "bitch", "moron", "dumbass", "idiot", "stupid",
	"fuck", "shit",
}

// SecurityLexicon matches injection intent and offensive language against a
// normalized message.
type SecurityLexicon struct {
	injections []injectionPattern
	exact      []*regexp.Regexp
	obfuscated []*regexp.Regexp
	words      []string
}

// NewSecurityLexicon compiles the built-in pattern tables.
func NewSecurityLexicon() *SecurityLexicon {
	l := &SecurityLexicon{injections: injectionPatterns, words: offensiveWords}
	for _, w := range offensiveWords {
		l.exact = append(l.exact, regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`\b`))
		l.obfuscated = append(l.obfuscated, compileObfuscated(w))
	}
	return l
}

// compileObfuscated builds a pattern matching the word's letters optionally
// separated by punctuation or spaces ("c.o.n", "c o n"). Word boundaries
// keep it from firing inside longer legitimate words.
func compileObfuscated(word string) *regexp.Regexp {
	letters := strings.Split(word, "")
	for i, l := range letters {
		letters[i] = regexp.QuoteMeta(l)
	}
	return regexp.MustCompile(`\b` + strings.Join(letters, `[\s\p{P}]*`) + `\b`)
}

// Scan runs the full security pass over raw message text.
func (l *SecurityLexicon) Scan(text string) SecurityScan {
	normalized := NormalizeText(text)

	var scan SecurityScan
	for _, p := range l.injections {
		if p.re.MatchString(normalized) {
			scan.InjectionDetected = true
			scan.InjectionReasons = append(scan.InjectionReasons, p.reason)
		}
	}

	// Insult matching additionally tolerates leetspeak and spaced-out
	// obfuscation.
	collapsed := collapseLeet(normalized)
	for i, re := range l.exact {
		if re.MatchString(collapsed) {
			scan.InsultDetected = true
			scan.MatchedInsult = l.words[i]
			return scan
		}
	}
	for i, re := range l.obfuscated {
		if re.MatchString(collapsed) {
			scan.InsultDetected = true
			scan.MatchedInsult = l.words[i]
			return scan
		}
	}
	return scan
}

// ScanPromptInjection reports injection pattern labels found in text. Used
// by the reply orchestrator to audit tenant-supplied system prompts.
func (l *SecurityLexicon) ScanPromptInjection(text string) []string {
	normalized := NormalizeText(text)
	var reasons []string
	for _, p := range l.injections {
		if p.re.MatchString(normalized) {
			reasons = append(reasons, p.reason)
		}
	}
	return reasons
}
