package analysis

import (
	"regexp"
	"strings"
)

// Delivery extraction works on normalized text, so patterns are written
// without diacritics ("à" arrives as "a").
var (
	// "je suis a douala, akwa 699123456" style: place, sub-place, phone in
	// one utterance.
	combinedDeliveryRe = regexp.MustCompile(`\b(?:a|in|at)\s+([a-z][a-z-]{2,})\s*,\s*([a-z][a-z0-9' -]{1,30}?)\s+(\+?\d[\d\s.-]{7,14}\d)\b`)

	cityRes = []*regexp.Regexp{
		regexp.MustCompile(`\bville\s*(?:de|:)?\s*([a-z][a-z-]{2,})\b`),
		regexp.MustCompile(`\b(?:j'habite|je suis|habite|livrer|livraison|me trouve)\s+a\s+([a-z][a-z-]{2,})\b`),
		regexp.MustCompile(`\b(?:city|town)\s*:?\s*([a-z][a-z-]{2,})\b`),
		regexp.MustCompile(`\bi(?:'m| am| live)\s+in\s+([a-z][a-z-]{2,})\b`),
	}

	neighborhoodRes = []*regexp.Regexp{
		regexp.MustCompile(`\bquartier\s+([a-z][a-z0-9' -]{1,30}?)(?:[,.]|$|\s+\d)`),
		regexp.MustCompile(`\b(?:neighborhood|district)\s+([a-z][a-z0-9' -]{1,30}?)(?:[,.]|$|\s+\d)`),
	}

	phoneRes = []*regexp.Regexp{
		// International prefix for the target region, e.g. +237 6XXXXXXXX.
		regexp.MustCompile(`\+\d{1,3}[\s.-]?\d[\d\s.-]{6,11}\d`),
		// Local format: 8 or 9 contiguous digits.
		regexp.MustCompile(`\b\d{8,9}\b`),
	}
)

// ExtractDelivery pulls delivery fields from normalized message text. The
// combined pattern runs first; each remaining field falls back to its own
// family, first match winning.
func ExtractDelivery(normalized string) DeliveryInfo {
	var info DeliveryInfo

	if m := combinedDeliveryRe.FindStringSubmatch(normalized); m != nil {
		info.City = strings.TrimSpace(m[1])
		info.Neighborhood = strings.TrimSpace(m[2])
		info.Phone = compactPhone(m[3])
	}

	if info.City == "" {
		for _, re := range cityRes {
			if m := re.FindStringSubmatch(normalized); m != nil {
				info.City = strings.TrimSpace(m[1])
				break
			}
		}
	}

	if info.Neighborhood == "" {
		for _, re := range neighborhoodRes {
			if m := re.FindStringSubmatch(normalized); m != nil {
				info.Neighborhood = strings.TrimSpace(m[1])
				break
			}
		}
	}

	if info.Phone == "" {
		for _, re := range phoneRes {
			if m := re.FindString(normalized); m != "" {
				info.Phone = compactPhone(m)
				break
			}
		}
	}

	return info
}

// MissingFields lists delivery fields still needed before an order can
// ship.
func (d DeliveryInfo) MissingFields() []string {
	var missing []string
	if d.City == "" {
		missing = append(missing, "city")
	}
	if d.Neighborhood == "" {
		missing = append(missing, "neighborhood")
	}
	if d.Phone == "" {
		missing = append(missing, "phone")
	}
	return missing
}

func compactPhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '+' || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
