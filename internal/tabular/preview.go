package tabular

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/seo-cli/internal/model"
)

// statsSampleLimit caps the rows scanned for aggregate statistics so very
// large exports don't dominate prompt-building time.
const statsSampleLimit = 200

// AnchorStats returns anchor frequencies sorted by count descending,
// limited to top entries. Ties break by anchor text for determinism.
func AnchorStats(rows []Row, cols Columns, top int) []model.AnchorStat {
	if cols.Anchor == "" {
		return nil
	}
	counts := make(map[string]int)
	for _, row := range rows {
		a := strings.TrimSpace(row[cols.Anchor])
		if a != "" {
			counts[a]++
		}
	}
	stats := make([]model.AnchorStat, 0, len(counts))
	for a, n := range counts {
		stats = append(stats, model.AnchorStat{Anchor: a, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Anchor < stats[j].Anchor
	})
	if top > 0 && len(stats) > top {
		stats = stats[:top]
	}
	return stats
}

// BuildPreview renders the size-aware textual summary of a table that gets
// embedded into analysis prompts: structure, detected columns, metric
// statistics, anchor frequencies, and a bounded set of example rows.
// Chunk-scoped invocations get fewer examples.
func BuildPreview(t *Table, cols Columns, chunkPart bool) string {
	var b strings.Builder
	total := len(t.Rows)

	fmt.Fprintf(&b, "FILE STRUCTURE:\n")
	fmt.Fprintf(&b, "Total links: %d\n", total)
	fmt.Fprintf(&b, "Columns: %s\n\n", strings.Join(t.Headers, ", "))

	b.WriteString("DETECTED COLUMNS:\n")
	writeDetected(&b, "Referring page title", cols.Title)
	writeDetected(&b, "Referring page URL", cols.URL)
	writeDetected(&b, "Domain rating (DR)", cols.Rating)
	writeDetected(&b, "Domain traffic", cols.Traffic)
	writeDetected(&b, "Referring domains", cols.ReferringDomains)
	writeDetected(&b, "Page traffic", cols.PageTraffic)
	writeDetected(&b, "Keywords", cols.Keywords)
	writeDetected(&b, "Anchor", cols.Anchor)
	writeDetected(&b, "Nofollow", cols.Nofollow)
	b.WriteString("\n")

	sample := t.Rows
	if len(sample) > statsSampleLimit {
		sample = sample[:statsSampleLimit]
	}
	writeStatistics(&b, sample, cols)

	anchors := AnchorStats(sample, cols, 10)
	uniqueAnchors := countUniqueAnchors(sample, cols)
	fmt.Fprintf(&b, "\nANCHOR STATISTICS:\n")
	fmt.Fprintf(&b, "- Unique anchors: %d\n", uniqueAnchors)
	if len(anchors) > 0 {
		b.WriteString("- Top anchors:\n")
		for _, a := range anchors {
			fmt.Fprintf(&b, "  * %q: %d time(s)\n", truncate(a.Anchor, 50), a.Count)
		}
	}

	maxExamples := 5
	if chunkPart {
		maxExamples = 3
	} else if total <= 100 {
		maxExamples = 10
	}
	if maxExamples > total {
		maxExamples = total
	}

	fmt.Fprintf(&b, "\nEXAMPLE LINKS (first %d of %d):\n", maxExamples, total)
	for i := 0; i < maxExamples; i++ {
		row := t.Rows[i]
		fmt.Fprintf(&b, "\nLink #%d:\n", i+1)
		writeExampleField(&b, "Title", truncate(row[cols.Title], 100))
		writeExampleField(&b, "URL", row[cols.URL])
		writeExampleField(&b, "Domain", model.CanonicalDomain(row[cols.URL]))
		writeExampleMetric(&b, "Domain Rating (DR)", cols.Rating, row)
		writeExampleMetric(&b, "Domain Traffic", cols.Traffic, row)
		writeExampleMetric(&b, "Referring Domains", cols.ReferringDomains, row)
		writeExampleMetric(&b, "Page Traffic", cols.PageTraffic, row)
		writeExampleMetric(&b, "Keywords", cols.Keywords, row)
		writeExampleField(&b, "Anchor", truncate(row[cols.Anchor], 80))
		if cols.Nofollow != "" {
			fmt.Fprintf(&b, "  Nofollow: %v\n", ParseNofollow(row[cols.Nofollow]))
		}
	}
	if total > maxExamples {
		fmt.Fprintf(&b, "\n... and %d more links\n", total-maxExamples)
	}
	return b.String()
}

func writeDetected(b *strings.Builder, label, header string) {
	if header == "" {
		header = "NOT FOUND"
	}
	fmt.Fprintf(b, "- %s: %s\n", label, header)
}

func writeStatistics(b *strings.Builder, rows []Row, cols Columns) {
	var drs, traffics, refDomains []float64
	zeroTraffic, lowRefDomains, nofollow := 0, 0, 0
	for _, row := range rows {
		if cols.Rating != "" {
			if v := ParseMetric(row[cols.Rating]); v != nil {
				drs = append(drs, *v)
			}
		}
		if cols.Traffic != "" {
			if v := ParseMetric(row[cols.Traffic]); v != nil {
				traffics = append(traffics, *v)
				if *v == 0 {
					zeroTraffic++
				}
			}
		}
		if cols.ReferringDomains != "" {
			if v := ParseMetric(row[cols.ReferringDomains]); v != nil {
				refDomains = append(refDomains, *v)
				if *v < 40 {
					lowRefDomains++
				}
			}
		}
		if cols.Nofollow != "" && ParseNofollow(row[cols.Nofollow]) {
			nofollow++
		}
	}
	if len(drs) == 0 {
		return
	}

	b.WriteString("METRIC STATISTICS:\n")
	fmt.Fprintf(b, "- Average DR: %.1f\n", mean(drs))
	fmt.Fprintf(b, "- Minimum DR: %.1f\n", minOf(drs))
	fmt.Fprintf(b, "- Maximum DR: %.1f\n", maxOf(drs))
	if len(traffics) > 0 {
		fmt.Fprintf(b, "- Average Domain Traffic: %.1f\n", mean(traffics))
		fmt.Fprintf(b, "- Links with zero traffic: %d\n", zeroTraffic)
	}
	if len(refDomains) > 0 {
		fmt.Fprintf(b, "- Average Referring Domains: %.1f\n", mean(refDomains))
		fmt.Fprintf(b, "- Links with Referring Domains < 40: %d\n", lowRefDomains)
	}
	fmt.Fprintf(b, "- Nofollow links: %d\n", nofollow)
	fmt.Fprintf(b, "- Dofollow links: %d\n", len(rows)-nofollow)
}

func writeExampleField(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "  %s: %s\n", label, value)
	}
}

func writeExampleMetric(b *strings.Builder, label, col string, row Row) {
	if col == "" {
		return
	}
	if v := ParseMetric(row[col]); v != nil {
		fmt.Fprintf(b, "  %s: %g\n", label, *v)
	}
}

func countUniqueAnchors(rows []Row, cols Columns) int {
	if cols.Anchor == "" {
		return 0
	}
	set := make(map[string]struct{})
	for _, row := range rows {
		if a := strings.TrimSpace(row[cols.Anchor]); a != "" {
			set[a] = struct{}{}
		}
	}
	return len(set)
}

func mean(vs []float64) float64 {
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
