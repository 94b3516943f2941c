package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sells-group/seo-cli/internal/model"
)

// LinkReport is the merged, deduplicated outcome of a link analysis run.
type LinkReport struct {
	Analysis model.LinkAnalysis
	Disavow  model.DisavowFile
	Summary  string
}

var disavowDirective = regexp.MustCompile(`domain:\s*([^\s\n]+)`)

// MergeAssessments collapses per-domain assessments onto canonical domain
// keys, keeping the first occurrence of each. Category totals are recounted
// from the merged set and the disavow file is regenerated from scratch, so
// stale per-chunk counters and fragments never leak into the final report.
// Domains referenced only by earlier disavow output are appended as
// mid-score disavow entries.
func MergeAssessments(details []model.RiskAssessment, totalRows int, minRisk float64, priorDisavow string) LinkReport {
	seen := make(map[string]struct{}, len(details))
	unique := make([]model.RiskAssessment, 0, len(details))
	for _, d := range details {
		key := model.CanonicalDomain(firstNonEmpty(d.Domain, d.URL))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		d.Domain = key
		unique = append(unique, d)
	}

	for _, m := range disavowDirective.FindAllStringSubmatch(priorDisavow, -1) {
		key := model.CanonicalDomain(m[1])
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, model.RiskAssessment{
			Domain:         key,
			URL:            "https://" + key,
			Title:          "N/A",
			Anchor:         "N/A",
			RiskScore:      50,
			Reason:         "listed for disavow without a matching assessment",
			Recommendation: model.RecommendDisavow,
		})
	}

	var toxic, suspicious, good int
	var disavowDomains []string
	for _, d := range unique {
		switch {
		case d.RiskScore >= minRisk || d.Recommendation == model.RecommendDisavow:
			toxic++
			disavowDomains = append(disavowDomains, d.Domain)
		case d.RiskScore >= 30:
			suspicious++
		default:
			good++
		}
	}
	sort.Strings(disavowDomains)

	content := renderDisavow(disavowDomains, totalRows, minRisk)
	summary := fmt.Sprintf(
		"Analyzed %d links across %d unique domains. Found %d toxic and %d suspicious domains. Disavow file contains %d domains.",
		totalRows, len(unique), toxic, suspicious, len(disavowDomains))

	return LinkReport{
		Analysis: model.LinkAnalysis{
			TotalLinks:      totalRows,
			ToxicLinks:      toxic,
			SuspiciousLinks: suspicious,
			GoodLinks:       good,
			Details:         unique,
		},
		Disavow: model.DisavowFile{
			Content:    content,
			Format:     "text/plain",
			LinksCount: len(disavowDomains),
		},
		Summary: summary,
	}
}

func renderDisavow(domains []string, totalRows int, minRisk float64) string {
	var b strings.Builder
	b.WriteString("# Disavow file for Google Search Console\n")
	if len(domains) == 0 {
		b.WriteString("# No toxic domains found\n")
		return b.String()
	}
	fmt.Fprintf(&b, "# Generated from the analysis of %d links\n", totalRows)
	fmt.Fprintf(&b, "# Minimum risk score for disavow: %.0f\n\n", minRisk)
	for _, d := range domains {
		b.WriteString("domain:")
		b.WriteString(d)
		b.WriteByte('\n')
	}
	return b.String()
}

// applyReport writes the merged report back into a stage data map using the
// wire field names, replacing whatever totals the reply carried.
func applyReport(data map[string]any, report LinkReport, anchors []model.AnchorStat) map[string]any {
	if data == nil {
		data = make(map[string]any)
	}
	data["analyzed_links"] = toMap(report.Analysis)
	data["disavow_file"] = toMap(report.Disavow)

	rep, ok := data["report"].(map[string]any)
	if !ok {
		rep = make(map[string]any)
	}
	rep["summary"] = report.Summary
	data["report"] = rep

	stats := make([]any, 0, len(anchors))
	for _, a := range anchors {
		stats = append(stats, toMap(a))
	}
	data["anchor_stats"] = stats
	return data
}

// detailsFromData extracts the per-domain assessments from a stage data map.
func detailsFromData(data map[string]any) []model.RiskAssessment {
	al, ok := data["analyzed_links"].(map[string]any)
	if !ok {
		return nil
	}
	raw, err := json.Marshal(al["link_details"])
	if err != nil {
		return nil
	}
	var details []model.RiskAssessment
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil
	}
	return details
}

// disavowContentFrom returns the disavow text a stage data map carries.
func disavowContentFrom(data map[string]any) string {
	df, ok := data["disavow_file"].(map[string]any)
	if !ok {
		return ""
	}
	content, _ := df["content"].(string)
	return content
}

// toMap renders a struct through its JSON tags into the generic map shape
// the validator and prompt encoder work with.
func toMap(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	return m
}
