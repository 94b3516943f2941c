package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/seo-cli/internal/model"
)

func assessment(domain string, score float64, rec model.Recommendation) model.RiskAssessment {
	return model.RiskAssessment{
		Domain:         domain,
		URL:            "https://" + domain,
		RiskScore:      score,
		Reason:         "test assessment",
		Recommendation: rec,
	}
}

func TestMergeDeduplicatesCanonicalKeys(t *testing.T) {
	details := []model.RiskAssessment{
		assessment("spam.example.test", 90, model.RecommendDisavow),
		assessment("www.spam.example.test", 10, model.RecommendOK),
		assessment("SPAM.example.test", 40, model.RecommendAttention),
		assessment("good.example.test", 5, model.RecommendOK),
	}

	report := MergeAssessments(details, 4, 50, "")

	require.Len(t, report.Analysis.Details, 2)
	// First occurrence wins.
	assert.Equal(t, "spam.example.test", report.Analysis.Details[0].Domain)
	assert.Equal(t, 90.0, report.Analysis.Details[0].RiskScore)

	seen := map[string]bool{}
	for _, d := range report.Analysis.Details {
		assert.False(t, seen[d.Domain], "duplicate canonical key %s", d.Domain)
		seen[d.Domain] = true
	}
}

func TestMergeRecountsFromRetainedSet(t *testing.T) {
	details := []model.RiskAssessment{
		assessment("toxic1.example.test", 80, model.RecommendDisavow),
		assessment("toxic2.example.test", 20, model.RecommendDisavow),
		assessment("sus.example.test", 35, model.RecommendAttention),
		assessment("good.example.test", 0, model.RecommendOK),
	}

	report := MergeAssessments(details, 10, 50, "")

	assert.Equal(t, 10, report.Analysis.TotalLinks)
	assert.Equal(t, 2, report.Analysis.ToxicLinks)
	assert.Equal(t, 1, report.Analysis.SuspiciousLinks)
	assert.Equal(t, 1, report.Analysis.GoodLinks)
	assert.Equal(t, 2, report.Disavow.LinksCount)
}

func TestMergeIdempotent(t *testing.T) {
	one := []model.RiskAssessment{
		assessment("spam.example.test", 90, model.RecommendDisavow),
		assessment("good.example.test", 0, model.RecommendOK),
	}
	twice := append(append([]model.RiskAssessment{}, one...), one...)

	a := MergeAssessments(one, 5, 50, "")
	b := MergeAssessments(twice, 5, 50, "")

	assert.Equal(t, a.Analysis, b.Analysis)
	assert.Equal(t, a.Disavow, b.Disavow)
	assert.Equal(t, a.Summary, b.Summary)
}

func TestMergeRegeneratesSortedDisavow(t *testing.T) {
	details := []model.RiskAssessment{
		assessment("zeta.example.test", 95, model.RecommendDisavow),
		assessment("alpha.example.test", 90, model.RecommendDisavow),
	}

	report := MergeAssessments(details, 2, 50, "")

	lines := strings.Split(strings.TrimSpace(report.Disavow.Content), "\n")
	assert.Equal(t, "# Disavow file for Google Search Console", lines[0])
	assert.Contains(t, report.Disavow.Content, "# Generated from the analysis of 2 links")

	var entries []string
	for _, line := range lines {
		if strings.HasPrefix(line, "domain:") {
			entries = append(entries, line)
		}
	}
	require.Equal(t, []string{"domain:alpha.example.test", "domain:zeta.example.test"}, entries)
}

func TestMergeEmptyDisavow(t *testing.T) {
	report := MergeAssessments([]model.RiskAssessment{
		assessment("good.example.test", 0, model.RecommendOK),
	}, 1, 50, "")

	assert.Contains(t, report.Disavow.Content, "# No toxic domains found")
	assert.Equal(t, 0, report.Disavow.LinksCount)
}

func TestMergeAppendsDisavowReferencedDomains(t *testing.T) {
	details := []model.RiskAssessment{
		assessment("known.example.test", 90, model.RecommendDisavow),
	}
	prior := "# fragment\ndomain:orphan.example.test\ndomain:known.example.test\n"

	report := MergeAssessments(details, 3, 50, prior)

	require.Len(t, report.Analysis.Details, 2)
	appended := report.Analysis.Details[1]
	assert.Equal(t, "orphan.example.test", appended.Domain)
	assert.Equal(t, 50.0, appended.RiskScore)
	assert.Equal(t, model.RecommendDisavow, appended.Recommendation)
	assert.Equal(t, 2, report.Analysis.ToxicLinks)
	assert.Contains(t, report.Disavow.Content, "domain:orphan.example.test")
}

func TestMergeDropsEmptyKeys(t *testing.T) {
	details := []model.RiskAssessment{
		{RiskScore: 90, Recommendation: model.RecommendDisavow},
		assessment("kept.example.test", 10, model.RecommendOK),
	}

	report := MergeAssessments(details, 2, 50, "")

	require.Len(t, report.Analysis.Details, 1)
	assert.Equal(t, "kept.example.test", report.Analysis.Details[0].Domain)
}

func TestApplyReportWireShape(t *testing.T) {
	report := MergeAssessments([]model.RiskAssessment{
		assessment("spam.example.test", 90, model.RecommendDisavow),
	}, 3, 50, "")

	data := applyReport(nil, report, []model.AnchorStat{{Anchor: "buy pills", Count: 3}})

	al, ok := data["analyzed_links"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3.0, al["total_links"])
	details, ok := al["link_details"].([]any)
	require.True(t, ok)
	require.Len(t, details, 1)

	df, ok := data["disavow_file"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, df["content"], "domain:spam.example.test")

	rep, ok := data["report"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, rep["summary"], "3 links")
}
