package model

import (
	"net/url"
	"strings"
)

// Recommendation is the final verdict for one referring domain.
type Recommendation string

const (
	RecommendDisavow   Recommendation = "disavow"
	RecommendAttention Recommendation = "attention"
	RecommendOK        Recommendation = "ok"
)

// DomainRecord holds the metrics gathered for one canonical domain from the
// tabular export. Nil metric pointers mean the export had no value.
type DomainRecord struct {
	Domain           string
	URL              string
	Rating           *float64 // DR
	Traffic          *float64 // domain-level organic traffic
	ReferringDomains *float64 // display only, never used for decisions
	Keywords         *float64
	Titles           []string
	Anchors          []string
	HasNofollow      bool
	AvgPageTraffic   *float64 // nil when no page-traffic values were present
	LinkCount        int
}

// RiskAssessment is the per-domain analysis outcome, whether produced by the
// completion service or by the heuristic scorer.
type RiskAssessment struct {
	Domain           string         `json:"domain"`
	URL              string         `json:"url,omitempty"`
	Title            string         `json:"title,omitempty"`
	Anchor           string         `json:"anchor,omitempty"`
	RiskScore        float64        `json:"risk_score"`
	Reason           string         `json:"reason"`
	Recommendation   Recommendation `json:"recommendation"`
	Rating           *float64       `json:"dr,omitempty"`
	Traffic          *float64       `json:"domain_traffic,omitempty"`
	PageTraffic      *float64       `json:"page_traffic,omitempty"`
	ReferringDomains *float64       `json:"referring_domains,omitempty"`
	Keywords         *float64       `json:"keywords,omitempty"`
}

// AnchorStat is one entry in the anchor frequency report.
type AnchorStat struct {
	Anchor  string `json:"anchor"`
	Count   int    `json:"count"`
	IsToxic bool   `json:"is_toxic"`
}

// LinkAnalysis is the merged link-analysis payload.
type LinkAnalysis struct {
	TotalLinks      int              `json:"total_links"`
	ToxicLinks      int              `json:"toxic_links"`
	SuspiciousLinks int              `json:"suspicious_links"`
	GoodLinks       int              `json:"good_links"`
	Details         []RiskAssessment `json:"link_details"`
}

// DisavowFile is the regenerated export artifact.
type DisavowFile struct {
	Content    string `json:"content"`
	Format     string `json:"format"`
	LinksCount int    `json:"links_count"`
}

// CanonicalDomain lowercases a host and strips exactly one leading "www.".
// Full URLs are reduced to their host first.
func CanonicalDomain(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			s = u.Host
		}
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if h, _, found := strings.Cut(s, ":"); found {
		s = h
	}
	s = strings.TrimPrefix(s, "www.")
	return s
}
