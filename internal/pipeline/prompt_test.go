package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/seo-cli/internal/model"
	"github.com/sells-group/seo-cli/internal/taskcfg"
)

func TestBuildPromptFillsRequestValues(t *testing.T) {
	task := taskcfg.Task{PromptTemplate: "Topic: {topic}\nLanguage: {language}\nAudience: {target_audience}"}
	req := &model.WorkRequest{Topic: "espresso machines", Language: "en"}

	prompt := BuildPrompt(taskcfg.StageTextGenerator, task, req, nil)

	assert.Contains(t, prompt, "Topic: espresso machines")
	assert.Contains(t, prompt, "Language: en")
	// Empty request fields resolve from the defaults table.
	assert.Contains(t, prompt, "Audience: general audience")
}

func TestBuildPromptUnresolvedSlotRendersPlaceholder(t *testing.T) {
	task := taskcfg.Task{PromptTemplate: "Value: {some_future_slot}"}

	prompt := BuildPrompt(taskcfg.StageTextGenerator, task, &model.WorkRequest{}, nil)

	assert.Contains(t, prompt, "Value: [some_future_slot]")
}

func TestBuildPromptLanguageDetectorKeywordFromTopic(t *testing.T) {
	task := taskcfg.Builtin().Get(taskcfg.StageLanguageDetector)
	req := &model.WorkRequest{Query: "detect", Topic: "кавові млинки"}

	prompt := BuildPrompt(taskcfg.StageLanguageDetector, task, req, nil)

	assert.Contains(t, prompt, "Keyword: кавові млинки")
}

func TestBuildPromptLinkStageIncludesPreview(t *testing.T) {
	path := writeExport(t, spamRows(3))
	task := taskcfg.Builtin().Get(taskcfg.StageLinkBuilder)
	req := &model.WorkRequest{Query: "audit", TablePath: path, Domain: "mysite.example.test"}

	prompt := BuildPrompt(taskcfg.StageLinkBuilder, task, req, nil)

	assert.Contains(t, prompt, "mysite.example.test")
	assert.Contains(t, prompt, "FILE STRUCTURE")
	assert.Contains(t, prompt, "Total links: 3")
	assert.Contains(t, prompt, "Minimum risk score for disavow: 50")
}

func TestBuildPromptLinkStageUnreadableTable(t *testing.T) {
	task := taskcfg.Builtin().Get(taskcfg.StageLinkBuilder)
	req := &model.WorkRequest{Query: "audit", TablePath: "/nonexistent/links.csv"}

	prompt := BuildPrompt(taskcfg.StageLinkBuilder, task, req, nil)

	assert.Contains(t, prompt, "table not readable")
}

func TestBuildPromptMergesPriorOutputs(t *testing.T) {
	task := taskcfg.Builtin().Get(taskcfg.StageSemanticClusterer)
	req := &model.WorkRequest{Query: "cluster", Keywords: []string{"grinder", "burr"}}
	prev := map[string]model.AgentResult{
		taskcfg.StageLanguageDetector: {
			Success: true,
			Data:    map[string]any{"detected_language": "ru"},
		},
	}

	prompt := BuildPrompt(taskcfg.StageSemanticClusterer, task, req, prev)

	assert.Contains(t, prompt, "for a ru page")
	assert.Contains(t, prompt, "grinder, burr")
}

func TestMergePriorOutputsStableAcrossConflicts(t *testing.T) {
	prev := map[string]model.AgentResult{
		taskcfg.StageTextGenerator: {
			Success: true,
			Data:    map[string]any{"title": "Draft Title", "word_count": 900.0},
		},
		taskcfg.StageMetaGenerator: {
			Success: true,
			Data:    map[string]any{"title": "Final Title"},
		},
	}

	// Map iteration order must not leak into the variable table: the later
	// pipeline stage wins every time.
	for i := 0; i < 50; i++ {
		vars := map[string]string{}
		mergePriorOutputs(vars, &model.WorkRequest{}, prev)

		require.Equal(t, "Final Title", vars["title"])
		require.Equal(t, "900", vars["target_word_count"])
	}
}

func TestBuildPromptTeamLeadEmbedsTrimmedResults(t *testing.T) {
	var details []any
	for i := 0; i < 10; i++ {
		details = append(details, map[string]any{"domain": "d.example.test", "risk_score": 50.0})
	}
	prev := map[string]model.AgentResult{
		taskcfg.StageTaskRouter: {
			Success: true,
			Data:    map[string]any{"task_type": "link_analysis"},
		},
		taskcfg.StageLinkBuilder: {
			Success: true,
			Data: map[string]any{
				"analyzed_links": map[string]any{"total_links": 10.0, "link_details": details},
			},
		},
	}
	task := taskcfg.Builtin().Get(taskcfg.StageTeamLead)

	prompt := BuildPrompt(taskcfg.StageTeamLead, task, &model.WorkRequest{Query: "audit"}, prev)

	assert.Contains(t, prompt, "for task link_analysis")
	assert.Contains(t, prompt, `"link_details_truncated":true`)
	assert.Contains(t, prompt, `"link_details_total_count":10`)
	// The detail list itself is capped at three entries.
	assert.Equal(t, 3, strings.Count(prompt, `"domain":"d.example.test"`))
}

func TestTrimLinkBuilderDataDisavowCap(t *testing.T) {
	lines := make([]string, 500)
	for i := range lines {
		lines[i] = "domain:spam.example.test"
	}
	data := map[string]any{
		"disavow_file": map[string]any{"content": strings.Join(lines, "\n")},
	}

	out := trimLinkBuilderData(data)

	df, ok := out["disavow_file"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, df["content_truncated"])
	content := df["content"].(string)
	assert.Equal(t, 200, len(strings.Split(content, "\n")))

	// Source map untouched.
	orig := data["disavow_file"].(map[string]any)
	_, touched := orig["content_truncated"]
	assert.False(t, touched)
}
