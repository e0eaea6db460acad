package analysis

import (
	"strings"
	"unicode"
)

// Supported languages.
const (
	LangFrench  = "fr"
	LangEnglish = "en"
)

// Closed lists of common function words; scoring these is cheap and good
// enough for a two-language router.
var frenchFunctionWords = map[string]struct{}{
	"le": {}, "la": {}, "les": {}, "un": {}, "une": {}, "des": {}, "du": {},
	"je": {}, "tu": {}, "il": {}, "elle": {}, "nous": {}, "vous": {},
	"est": {}, "et": {}, "ne": {}, "pas": {}, "pour": {}, "avec": {},
	"que": {}, "qui": {}, "dans": {}, "sur": {}, "au": {}, "aux": {},
	"bonjour": {}, "bonsoir": {}, "merci": {}, "veux": {}, "voudrais": {},
	"combien": {}, "oui": {}, "non": {},
}

var englishFunctionWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "i": {}, "you": {}, "he": {}, "she": {},
	"we": {}, "is": {}, "are": {}, "and": {}, "not": {}, "for": {},
	"with": {}, "that": {}, "who": {}, "of": {}, "on": {}, "in": {},
	"hello": {}, "hi": {}, "thanks": {}, "want": {}, "would": {},
	"how": {}, "much": {}, "yes": {}, "no": {},
}

// French diacritics that almost never appear in English text.
const frenchDiacritics = "àâäéèêëîïôöùûüçœ"

// DetectLanguage picks the supported language whose function words score
// highest, breaking ties with diacritic density.
func DetectLanguage(text string) string {
	lowered := strings.ToLower(text)

	var frScore, enScore int
	for _, word := range strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	}) {
		word = strings.Trim(word, "'")
		if _, ok := frenchFunctionWords[word]; ok {
			frScore++
		}
		if _, ok := englishFunctionWords[word]; ok {
			enScore++
		}
	}

	if frScore > enScore {
		return LangFrench
	}
	if enScore > frScore {
		return LangEnglish
	}

	// Tied (often zero-zero): fall back to diacritic density.
	if diacriticRatio(lowered) > 0.005 {
		return LangFrench
	}
	return LangEnglish
}

func diacriticRatio(lowered string) float64 {
	var letters, accented int
	for _, r := range lowered {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if strings.ContainsRune(frenchDiacritics, r) {
			accented++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(accented) / float64(letters)
}
