package reply

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// StructuredReply is the only output contract a model call may satisfy.
type StructuredReply struct {
	Response   string   `json:"response"`
	NeedHuman  bool     `json:"needHuman"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// rawReply tolerates the legacy "need_human" alias during decoding.
type rawReply struct {
	Response        string   `json:"response"`
	NeedHuman       *bool    `json:"needHuman"`
	NeedHumanLegacy *bool    `json:"need_human"`
	Confidence      *float64 `json:"confidence"`
}

// ErrUnparseable reports that no salvage strategy produced a schema-valid
// reply.
var ErrUnparseable = errors.New("reply: model output could not be parsed")

// Parse strategy labels, reported for metrics.
const (
	ParseDirect     = "direct"
	ParseKeyedBlock = "keyed_block"
	ParseFenced     = "fenced_block"
	ParseFirstBrace = "first_brace"
	ParseSalvage    = "salvage"
)

var (
	// A {...} block that visibly carries a "response" key. Non-greedy so
	// trailing prose after the object does not swallow the match.
	keyedBlockRe = regexp.MustCompile(`(?s)\{[^{}]*"response"\s*:.*?\}`)

	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

	// Last resort: pull the "response" string value even out of truncated
	// JSON (missing closing quote and brace tolerated).
	salvageResponseRe = regexp.MustCompile(`"response"\s*:\s*"((?:[^"\\]|\\.)*)`)
)

// ParseStructuredReply recovers a StructuredReply from raw model output,
// trying progressively more forgiving strategies. The returned strategy
// label identifies which one succeeded. The salvage path always forces
// NeedHuman because the structure could not be fully trusted.
func ParseStructuredReply(text string) (StructuredReply, string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return StructuredReply{}, "", ErrUnparseable
	}

	if r, ok := decodeReply(trimmed); ok {
		return r, ParseDirect, nil
	}

	if m := keyedBlockRe.FindString(trimmed); m != "" {
		if r, ok := decodeReply(m); ok {
			return r, ParseKeyedBlock, nil
		}
	}

	if m := fencedBlockRe.FindStringSubmatch(trimmed); m != nil {
		if obj := firstBraceObject(m[1]); obj != "" {
			if r, ok := decodeReply(obj); ok {
				return r, ParseFenced, nil
			}
		}
	}

	// Handles unterminated code fences too: brace-match from the first '{'
	// anywhere in the text.
	if obj := firstBraceObject(trimmed); obj != "" {
		if r, ok := decodeReply(obj); ok {
			return r, ParseFirstBrace, nil
		}
	}

	if m := salvageResponseRe.FindStringSubmatch(trimmed); m != nil {
		if value := unescapeJSONString(m[1]); strings.TrimSpace(value) != "" {
			return StructuredReply{Response: value, NeedHuman: true}, ParseSalvage, nil
		}
	}

	return StructuredReply{}, "", ErrUnparseable
}

// decodeReply parses and schema-validates one candidate JSON object.
func decodeReply(candidate string) (StructuredReply, bool) {
	var raw rawReply
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return StructuredReply{}, false
	}
	if strings.TrimSpace(raw.Response) == "" {
		return StructuredReply{}, false
	}
	if raw.Confidence != nil && (*raw.Confidence < 0 || *raw.Confidence > 1) {
		return StructuredReply{}, false
	}

	out := StructuredReply{Response: raw.Response, Confidence: raw.Confidence}
	switch {
	case raw.NeedHuman != nil:
		out.NeedHuman = *raw.NeedHuman
	case raw.NeedHumanLegacy != nil:
		out.NeedHuman = *raw.NeedHumanLegacy
	}
	return out, true
}

// firstBraceObject returns the first complete top-level {...} object in s,
// tracking string/escape state so braces inside values do not miscount.
func firstBraceObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// unescapeJSONString best-effort decodes a salvaged JSON string fragment.
func unescapeJSONString(fragment string) string {
	var decoded string
	if err := json.Unmarshal([]byte(`"`+fragment+`"`), &decoded); err == nil {
		return decoded
	}
	r := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\t`, "\t")
	return r.Replace(fragment)
}
