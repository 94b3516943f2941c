package tabular

import (
	"github.com/sells-group/seo-cli/internal/model"
)

// RecordLimits bounds how much example text a domain record carries. Larger
// totals get tighter limits so batch prompts stay inside the token budget.
type RecordLimits struct {
	MaxExamples  int // rows inspected per domain for titles/anchors
	MaxTitleLen  int
	MaxAnchorLen int
	MaxTitles    int
	MaxAnchors   int
}

// LimitsFor picks record limits by total domain count.
func LimitsFor(totalDomains int) RecordLimits {
	switch {
	case totalDomains > 500:
		return RecordLimits{MaxExamples: 2, MaxTitleLen: 40, MaxAnchorLen: 30, MaxTitles: 1, MaxAnchors: 1}
	case totalDomains > 200:
		return RecordLimits{MaxExamples: 3, MaxTitleLen: 60, MaxAnchorLen: 50, MaxTitles: 2, MaxAnchors: 2}
	default:
		return RecordLimits{MaxExamples: 5, MaxTitleLen: 60, MaxAnchorLen: 50, MaxTitles: 3, MaxAnchors: 3}
	}
}

// GroupDomains buckets rows by canonical domain of the URL column. Domains
// are returned in first-appearance order.
func GroupDomains(rows []Row, cols Columns) ([]string, map[string][]Row) {
	var order []string
	groups := make(map[string][]Row)
	if cols.URL == "" {
		return order, groups
	}
	for _, row := range rows {
		domain := model.CanonicalDomain(row[cols.URL])
		if domain == "" {
			continue
		}
		if _, seen := groups[domain]; !seen {
			order = append(order, domain)
		}
		groups[domain] = append(groups[domain], row)
	}
	return order, groups
}

// BuildRecord condenses a domain's rows into one DomainRecord. Metrics take
// the first parseable value across the rows; title and anchor examples are
// deduplicated and truncated per lim.
func BuildRecord(domain string, rows []Row, cols Columns, lim RecordLimits) model.DomainRecord {
	rec := model.DomainRecord{
		Domain:    domain,
		URL:       "https://" + domain,
		LinkCount: len(rows),
	}
	if len(rows) > 0 && cols.URL != "" {
		if u := rows[0][cols.URL]; u != "" {
			rec.URL = u
		}
	}

	for _, row := range rows {
		if rec.Rating == nil && cols.Rating != "" {
			rec.Rating = ParseMetric(row[cols.Rating])
		}
		if rec.Traffic == nil && cols.Traffic != "" {
			rec.Traffic = ParseMetric(row[cols.Traffic])
		}
		if rec.ReferringDomains == nil && cols.ReferringDomains != "" {
			rec.ReferringDomains = ParseMetric(row[cols.ReferringDomains])
		}
		if rec.Keywords == nil && cols.Keywords != "" {
			rec.Keywords = ParseMetric(row[cols.Keywords])
		}
		if rec.Rating != nil && rec.Traffic != nil {
			break
		}
	}

	var (
		titles, anchors []string
		pageTraffics    []float64
	)
	examples := rows
	if len(examples) > lim.MaxExamples {
		examples = examples[:lim.MaxExamples]
	}
	for _, row := range examples {
		if cols.Title != "" {
			if t := truncate(row[cols.Title], lim.MaxTitleLen); t != "" && !contains(titles, t) {
				titles = append(titles, t)
			}
		}
		if cols.Anchor != "" {
			if a := truncate(row[cols.Anchor], lim.MaxAnchorLen); a != "" && !contains(anchors, a) {
				anchors = append(anchors, a)
			}
		}
		if cols.Nofollow != "" && ParseNofollow(row[cols.Nofollow]) {
			rec.HasNofollow = true
		}
		if cols.PageTraffic != "" {
			if pt := ParseMetric(row[cols.PageTraffic]); pt != nil {
				pageTraffics = append(pageTraffics, *pt)
			}
		}
	}

	if len(titles) > lim.MaxTitles {
		titles = titles[:lim.MaxTitles]
	}
	if len(anchors) > lim.MaxAnchors {
		anchors = anchors[:lim.MaxAnchors]
	}
	rec.Titles = titles
	rec.Anchors = anchors

	if len(pageTraffics) > 0 {
		sum := 0.0
		for _, v := range pageTraffics {
			sum += v
		}
		avg := sum / float64(len(pageTraffics))
		rec.AvgPageTraffic = &avg
	}
	return rec
}

func truncate(s string, n int) string {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
