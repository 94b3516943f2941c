package pipeline

import (
	"fmt"
	"strings"

	"github.com/sells-group/seo-cli/internal/model"
)

// insufficientDataPhrases force an "attention" verdict when they appear in a
// composed reason, overriding any score-based recommendation. The completion
// service phrases missing data several ways.
var insufficientDataPhrases = []string{
	"insufficient data",
	"missing key metrics",
	"no data provided",
	"no data available",
	"data not provided",
	"not enough data",
}

// HasInsufficientDataPhrase reports whether reason mentions missing data.
func HasInsufficientDataPhrase(reason string) bool {
	r := strings.ToLower(reason)
	for _, p := range insufficientDataPhrases {
		if strings.Contains(r, p) {
			return true
		}
	}
	return false
}

// ScoreRecord computes the deterministic fallback risk assessment for one
// domain from its export metrics. Used whenever the completion service
// omits a domain, corrupts its entry, or cannot be reached.
//
// The score starts at zero, accumulates weighted penalties and bonuses, and
// is clamped to [0,100]. Only penalties contribute to the reason list; a
// domain whose only contributions are bonuses reads as clean.
func ScoreRecord(rec model.DomainRecord, minRisk float64) model.RiskAssessment {
	score := 0.0
	var reasons []string

	missing := 0
	if rec.Rating == nil {
		missing++
	}
	if rec.Traffic == nil {
		missing++
	}

	switch {
	case missing >= 2:
		score += 25
		reasons = append(reasons, fmt.Sprintf("missing key metrics (%d of 2)", missing))
	case missing == 1:
		score += 10
		reasons = append(reasons, "one key metric missing")
	}

	if rec.Rating != nil {
		switch dr := *rec.Rating; {
		case dr < 10:
			score += 30
			reasons = append(reasons, fmt.Sprintf("DR < 10 (%g)", dr))
		case dr < 20:
			score += 15
			reasons = append(reasons, fmt.Sprintf("DR 10-20 (%g)", dr))
		case dr > 30:
			score -= 30
		}
	} else if missing == 0 {
		score += 15
		reasons = append(reasons, "DR not available")
	}

	if rec.Traffic != nil && *rec.Traffic == 0 {
		score += 25
		reasons = append(reasons, "domain traffic = 0")
	} else if rec.Traffic == nil && missing < 2 {
		score += 15
		reasons = append(reasons, "domain traffic not available")
	}

	if rec.AvgPageTraffic != nil && *rec.AvgPageTraffic == 0 {
		score += 10
		reasons = append(reasons, "page traffic = 0")
	}

	if rec.HasNofollow && rec.Rating != nil {
		if *rec.Rating > 30 {
			score -= 15
		} else if *rec.Rating < 10 {
			score += 5
			reasons = append(reasons, "nofollow with low DR")
		}
	}

	isDeadSite := (rec.Traffic != nil && *rec.Traffic == 0) ||
		(rec.Traffic == nil && rec.AvgPageTraffic != nil && *rec.AvgPageTraffic == 0)
	hasLowDR := (rec.Rating != nil && *rec.Rating < 10) ||
		(rec.Rating == nil && missing >= 1)

	var recommendation model.Recommendation
	switch {
	case isDeadSite && hasLowDR:
		recommendation = model.RecommendDisavow
		reasons = append(reasons, "dead site with low DR")
		if score < 85 {
			score = 85
		}
	case missing >= 2:
		recommendation = model.RecommendAttention
	case missing == 1:
		recommendation = model.RecommendAttention
		reasons = append(reasons, "insufficient data for analysis")
	case score >= minRisk:
		recommendation = model.RecommendDisavow
	case isDeadSite:
		recommendation = model.RecommendDisavow
		reasons = append(reasons, "dead site (zero traffic)")
	case score >= 30 || len(reasons) > 0:
		recommendation = model.RecommendAttention
	default:
		recommendation = model.RecommendOK
	}

	score = clamp(score, 0, 100)

	reason := strings.Join(reasons, ", ")
	if reason == "" {
		reason = "assessed from export metrics"
	}
	if HasInsufficientDataPhrase(reason) || missing >= 2 {
		recommendation = model.RecommendAttention
	}

	title, anchor := "N/A", "N/A"
	if len(rec.Titles) > 0 {
		title = rec.Titles[0]
	}
	if len(rec.Anchors) > 0 {
		anchor = rec.Anchors[0]
	}

	return model.RiskAssessment{
		Domain:           rec.Domain,
		URL:              rec.URL,
		Title:            title,
		Anchor:           anchor,
		RiskScore:        round1(score),
		Reason:           reason,
		Recommendation:   recommendation,
		Rating:           rec.Rating,
		Traffic:          rec.Traffic,
		PageTraffic:      rec.AvgPageTraffic,
		ReferringDomains: rec.ReferringDomains,
		Keywords:         rec.Keywords,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
