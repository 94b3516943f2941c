package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/seo-cli/internal/model"
	"github.com/sells-group/seo-cli/internal/taskcfg"
)

func TestParseDirectObject(t *testing.T) {
	res := Parse(taskcfg.StageTeamLead, `{"is_valid": true, "overall_score": 85}`, nil)

	require.Equal(t, model.SourceParsed, res.Source)
	assert.Equal(t, true, res.Data["is_valid"])
	assert.Equal(t, 85.0, res.Data["overall_score"])
}

func TestParseLabeledFenceEqualsUnwrapped(t *testing.T) {
	body := `{"detected_language": "en", "language_confidence": 0.9, "language_reasoning": "latin script"}`
	fenced := "Here is the result:\n```json\n" + body + "\n```\nLet me know if you need more."

	direct := Parse(taskcfg.StageLanguageDetector, body, nil)
	wrapped := Parse(taskcfg.StageLanguageDetector, fenced, nil)

	require.Equal(t, model.SourceParsed, wrapped.Source)
	assert.Equal(t, direct.Data, wrapped.Data)
}

func TestParseUnlabeledFence(t *testing.T) {
	res := Parse(taskcfg.StageTeamLead, "```\n{\"overall_score\": 42}\n```", nil)

	require.Equal(t, model.SourceParsed, res.Source)
	assert.Equal(t, 42.0, res.Data["overall_score"])
}

func TestParseBraceSpanWithLeadMarker(t *testing.T) {
	text := `Response: {"overall_score": 55, "nested": {"ok": true}} and some trailing prose.`

	res := Parse(taskcfg.StageTeamLead, text, nil)

	require.Equal(t, model.SourceParsed, res.Source)
	assert.Equal(t, 55.0, res.Data["overall_score"])
}

func TestParseBraceSpanControlCharRetry(t *testing.T) {
	// A raw newline inside a string literal breaks the first decode; the
	// retry collapses it to a space.
	text := "{\"reason\": \"line one\nline two\", \"overall_score\": 10}"

	res := Parse(taskcfg.StageTeamLead, text, nil)

	require.Equal(t, model.SourceParsed, res.Source)
	assert.Equal(t, "line one line two", res.Data["reason"])
}

func TestParseRefusalFallsBack(t *testing.T) {
	req := &model.WorkRequest{Topic: "coffee grinders"}

	res := Parse(taskcfg.StageTextGenerator, "I'm sorry, but I can't help with that request.", req)

	require.Equal(t, model.SourceFallback, res.Source)
	assert.NotEmpty(t, res.Data["content"])
}

func TestParseGarbageLinkStageFallsBack(t *testing.T) {
	text := "The domains spam.example.test and junk.example.test look toxic to me."

	res := Parse(taskcfg.StageLinkBuilder, text, &model.WorkRequest{})

	require.Equal(t, model.SourceFallback, res.Source)
	al, ok := res.Data["analyzed_links"].(map[string]any)
	require.True(t, ok)
	details, ok := al["link_details"].([]any)
	require.True(t, ok)
	require.Len(t, details, 2)

	var got []string
	for _, d := range details {
		got = append(got, d.(map[string]any)["domain"].(string))
	}
	assert.ElementsMatch(t, []string{"spam.example.test", "junk.example.test"}, got)

	df, ok := res.Data["disavow_file"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, df["content"], "domain:spam.example.test")
	assert.Contains(t, df["content"], "domain:junk.example.test")
}

func TestParseBOMBeforeObject(t *testing.T) {
	res := Parse(taskcfg.StageTeamLead, "\uFEFF{\"overall_score\": 61}", nil)

	require.Equal(t, model.SourceParsed, res.Source)
	assert.Equal(t, 61.0, res.Data["overall_score"])
}

func TestParseEmptyResponseFallsBack(t *testing.T) {
	res := Parse(taskcfg.StageLanguageDetector, "", &model.WorkRequest{})

	require.Equal(t, model.SourceFallback, res.Source)
	assert.Equal(t, model.DefaultLanguage, res.Data["detected_language"])
}

func TestParseDeterministic(t *testing.T) {
	inputs := []string{
		`{"overall_score": 70}`,
		"```json\n{\"overall_score\": 70}\n```",
		"I'm sorry, I cannot do that.",
		"no structure here at all",
	}
	for _, in := range inputs {
		first := Parse(taskcfg.StageTeamLead, in, &model.WorkRequest{})
		second := Parse(taskcfg.StageTeamLead, in, &model.WorkRequest{})
		assert.Equal(t, first, second)
	}
}
