package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructuredReply_Direct(t *testing.T) {
	r, strategy, err := ParseStructuredReply(`{"response": "Bonjour !", "needHuman": false, "confidence": 0.9}`)
	require.NoError(t, err)
	assert.Equal(t, ParseDirect, strategy)
	assert.Equal(t, "Bonjour !", r.Response)
	assert.False(t, r.NeedHuman)
	require.NotNil(t, r.Confidence)
	assert.InDelta(t, 0.9, *r.Confidence, 0.001)
}

func TestParseStructuredReply_LegacyAlias(t *testing.T) {
	r, _, err := ParseStructuredReply(`{"response": "ok", "need_human": true}`)
	require.NoError(t, err)
	assert.True(t, r.NeedHuman)
}

func TestParseStructuredReply_KeyedBlockInProse(t *testing.T) {
	text := `Voici ma reponse: {"response": "Le poulet est disponible.", "needHuman": false} j'espere que ca aide`
	r, strategy, err := ParseStructuredReply(text)
	require.NoError(t, err)
	assert.Equal(t, ParseKeyedBlock, strategy)
	assert.Equal(t, "Le poulet est disponible.", r.Response)
}

func TestParseStructuredReply_FencedBlock(t *testing.T) {
	text := "```json\n{\"response\": \"Oui, en stock.\", \"needHuman\": false}\n```"
	r, strategy, err := ParseStructuredReply(text)
	require.NoError(t, err)
	// The keyed-block pass already recovers simple fenced objects; either
	// strategy is acceptable as long as the object decodes.
	assert.Contains(t, []string{ParseKeyedBlock, ParseFenced}, strategy)
	assert.Equal(t, "Oui, en stock.", r.Response)
}

func TestParseStructuredReply_UnterminatedFence(t *testing.T) {
	text := "```json\n{\"response\": \"Bien recu\", \"needHuman\": false, \"meta\": {\"a\": 1}}"
	r, strategy, err := ParseStructuredReply(text)
	require.NoError(t, err)
	assert.Contains(t, []string{ParseFirstBrace, ParseKeyedBlock}, strategy)
	assert.Equal(t, "Bien recu", r.Response)
}

func TestParseStructuredReply_NestedBracesInsideStrings(t *testing.T) {
	text := `garbage {"response": "exemple: {\"a\": 1}", "needHuman": false} trailing`
	r, _, err := ParseStructuredReply(text)
	require.NoError(t, err)
	assert.Equal(t, `exemple: {"a": 1}`, r.Response)
}

func TestParseStructuredReply_TruncatedSalvageForcesHuman(t *testing.T) {
	r, strategy, err := ParseStructuredReply(`{"response": "Bonjour, voici l`)
	require.NoError(t, err)
	assert.Equal(t, ParseSalvage, strategy)
	assert.Equal(t, "Bonjour, voici l", r.Response)
	assert.True(t, r.NeedHuman, "salvaged structure cannot be trusted")
}

func TestParseStructuredReply_Rejections(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"plain prose without response key", "Bonjour, comment puis-je aider ?"},
		{"empty response value", `{"response": "   "}`},
		{"missing response key", `{"text": "hello"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseStructuredReply(tt.text)
			assert.ErrorIs(t, err, ErrUnparseable)
		})
	}
}

func TestParseStructuredReply_ConfidenceOutOfRange(t *testing.T) {
	// Out-of-range confidence fails validation; the salvage pass still
	// recovers the text but flags a human.
	r, strategy, err := ParseStructuredReply(`{"response": "ok merci", "confidence": 1.8}`)
	require.NoError(t, err)
	assert.Equal(t, ParseSalvage, strategy)
	assert.Equal(t, "ok merci", r.Response)
	assert.True(t, r.NeedHuman)
}
