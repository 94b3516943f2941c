package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/sells-group/seo-cli/internal/model"
	"github.com/sells-group/seo-cli/internal/tabular"
)

// batchSize returns how many domains go into one completion request.
// Larger exports get smaller batches so each response stays within the
// reply token budget.
func batchSize(totalDomains int) int {
	switch {
	case totalDomains > 1000:
		return 10
	case totalDomains > 500:
		return 15
	case totalDomains > 200:
		return 20
	default:
		return 25
	}
}

// batchConcurrency returns how many batch requests may be in flight at once.
func batchConcurrency(totalDomains int) int {
	switch {
	case totalDomains > 500:
		return 1
	case totalDomains > 200:
		return 2
	default:
		return 3
	}
}

// AnalyzeDomains scores every record through the completion service in paced
// batches. Each domain always yields exactly one assessment: domains the
// service skips or garbles fall back to the heuristic scorer, and the output
// preserves the input order.
func (r *Runner) AnalyzeDomains(ctx context.Context, req *model.WorkRequest, records []model.DomainRecord) []model.RiskAssessment {
	total := len(records)
	if total == 0 {
		return nil
	}
	minRisk := r.minRisk(req)

	size := batchSize(total)
	var batches [][]model.DomainRecord
	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		batches = append(batches, records[start:end])
	}

	pacing := r.BatchPacing
	if pacing <= 0 {
		pacing = retryWait
	}
	limiter := rate.NewLimiter(rate.Every(pacing), 1)
	sem := semaphore.NewWeighted(int64(batchConcurrency(total)))

	results := make([][]model.RiskAssessment, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[i] = scoreHeuristically(batch, minRisk)
				return nil
			}
			defer sem.Release(1)
			if err := limiter.Wait(gctx); err != nil {
				results[i] = scoreHeuristically(batch, minRisk)
				return nil
			}
			results[i] = r.analyzeBatch(gctx, batch, total, minRisk)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.RiskAssessment, 0, total)
	for _, part := range results {
		out = append(out, part...)
	}
	return out
}

// analyzeBatch sends one batch to the completion service and reconciles the
// reply against the export records. A reply that cannot be decoded scores the
// whole batch heuristically.
func (r *Runner) analyzeBatch(ctx context.Context, batch []model.DomainRecord, total int, minRisk float64) []model.RiskAssessment {
	prompt := buildBatchPrompt(batch, total, minRisk)
	maxTokens := 3000
	if total > 200 {
		maxTokens = 2500
	}
	response := r.Completer.Complete(ctx, prompt, maxTokens, true)

	data, ok := decodeObject(response)
	if !ok {
		data, ok = extractBraceSpan(response)
	}
	if !ok {
		r.log("warning", fmt.Sprintf("batch analysis: unparseable reply, scoring %d domains heuristically", len(batch)))
		return scoreHeuristically(batch, minRisk)
	}

	byDomain := make(map[string]map[string]any)
	if entries, ok := data["domains"].([]any); ok {
		for _, e := range entries {
			entry, ok := e.(map[string]any)
			if !ok {
				continue
			}
			if d, ok := entry["domain"].(string); ok {
				byDomain[model.CanonicalDomain(d)] = entry
			}
		}
	}

	out := make([]model.RiskAssessment, 0, len(batch))
	for _, rec := range batch {
		entry, ok := byDomain[rec.Domain]
		if !ok {
			out = append(out, ScoreRecord(rec, minRisk))
			continue
		}
		out = append(out, reconcileAssessment(rec, entry, minRisk))
	}
	return out
}

// reconcileAssessment merges one service verdict with the export record for
// the same domain. Export metrics always win over metrics the service echoes
// back, and a "no data" verdict for a domain the export does have metrics
// for is rescored heuristically.
func reconcileAssessment(rec model.DomainRecord, entry map[string]any, minRisk float64) model.RiskAssessment {
	score, ok := asFloat(entry["risk_score"])
	if !ok {
		return ScoreRecord(rec, minRisk)
	}

	reason, _ := entry["reason"].(string)
	if HasInsufficientDataPhrase(reason) {
		if rec.Rating != nil || rec.Traffic != nil {
			return ScoreRecord(rec, minRisk)
		}
		return model.RiskAssessment{
			Domain:         rec.Domain,
			URL:            rec.URL,
			Title:          firstExample(rec.Titles),
			Anchor:         firstExample(rec.Anchors),
			RiskScore:      clamp(score, 0, 100),
			Reason:         reason,
			Recommendation: model.RecommendAttention,
		}
	}

	a := model.RiskAssessment{
		Domain:           rec.Domain,
		URL:              rec.URL,
		Title:            firstExample(rec.Titles),
		Anchor:           firstExample(rec.Anchors),
		RiskScore:        clamp(score, 0, 100),
		Reason:           reason,
		Recommendation:   normalizeRecommendation(entry["recommendation"], score, minRisk),
		Rating:           metricOr(rec.Rating, entry["dr"]),
		Traffic:          metricOr(rec.Traffic, entry["domain_traffic"]),
		PageTraffic:      metricOr(rec.AvgPageTraffic, entry["page_traffic"]),
		ReferringDomains: metricOr(rec.ReferringDomains, entry["referring_domains"]),
		Keywords:         metricOr(rec.Keywords, entry["keywords"]),
	}
	if a.URL == "" {
		a.URL, _ = entry["url"].(string)
	}
	if a.Reason == "" {
		a.Reason = "assessed by completion service"
	}
	return a
}

func scoreHeuristically(batch []model.DomainRecord, minRisk float64) []model.RiskAssessment {
	out := make([]model.RiskAssessment, 0, len(batch))
	for _, rec := range batch {
		out = append(out, ScoreRecord(rec, minRisk))
	}
	return out
}

func normalizeRecommendation(v any, score, minRisk float64) model.Recommendation {
	if s, ok := v.(string); ok {
		switch model.Recommendation(strings.ToLower(strings.TrimSpace(s))) {
		case model.RecommendDisavow:
			return model.RecommendDisavow
		case model.RecommendAttention:
			return model.RecommendAttention
		case model.RecommendOK:
			return model.RecommendOK
		}
	}
	switch {
	case score >= minRisk:
		return model.RecommendDisavow
	case score >= 30:
		return model.RecommendAttention
	default:
		return model.RecommendOK
	}
}

func metricOr(fromExport *float64, fromEntry any) *float64 {
	if fromExport != nil {
		return fromExport
	}
	if v, ok := asFloat(fromEntry); ok {
		return &v
	}
	return nil
}

func firstExample(vals []string) string {
	if len(vals) > 0 {
		return vals[0]
	}
	return "N/A"
}

// buildBatchPrompt renders the per-batch analysis request. The compact
// encoding keeps very large exports within the prompt budget.
func buildBatchPrompt(batch []model.DomainRecord, total int, minRisk float64) string {
	compact := total > 200 || len(batch) > 20

	var b strings.Builder
	b.WriteString("You are auditing referring domains from a backlink export for toxicity.\n")
	b.WriteString("Assess every domain below and respond with STRICT JSON only, no prose:\n")
	b.WriteString(`{"domains": [{"domain": "...", "risk_score": 0, "reason": "...", "recommendation": "disavow"}]}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- risk_score is 0-100, higher means more toxic.\n")
	fmt.Fprintf(&b, "- recommendation is \"disavow\" when risk_score >= %.0f, \"attention\" for suspicious domains, \"ok\" otherwise.\n", minRisk)
	b.WriteString("- Low domain rating with zero traffic is a strong toxicity signal.\n")
	b.WriteString("- Say explicitly in the reason when metrics are missing and you cannot assess a domain.\n")
	b.WriteString("- Return every listed domain exactly once, spelled exactly as given.\n\n")
	fmt.Fprintf(&b, "Domains (%d of %d total):\n", len(batch), total)

	for _, rec := range batch {
		if compact {
			fmt.Fprintf(&b, "%s | DR=%s | traffic=%s | links=%d", rec.Domain,
				metricString(rec.Rating), metricString(rec.Traffic), rec.LinkCount)
			if rec.HasNofollow {
				b.WriteString(" | nofollow")
			}
			if len(rec.Anchors) > 0 {
				fmt.Fprintf(&b, " | anchors: %s", strings.Join(rec.Anchors, "; "))
			}
			b.WriteByte('\n')
			continue
		}
		fmt.Fprintf(&b, "Domain: %s\n", rec.Domain)
		fmt.Fprintf(&b, "  URL: %s\n", rec.URL)
		fmt.Fprintf(&b, "  DR: %s, domain traffic: %s, referring domains: %s, keywords: %s\n",
			metricString(rec.Rating), metricString(rec.Traffic),
			metricString(rec.ReferringDomains), metricString(rec.Keywords))
		fmt.Fprintf(&b, "  Average page traffic: %s, links in export: %d, nofollow: %t\n",
			metricString(rec.AvgPageTraffic), rec.LinkCount, rec.HasNofollow)
		if len(rec.Titles) > 0 {
			fmt.Fprintf(&b, "  Page titles: %s\n", strings.Join(rec.Titles, "; "))
		}
		if len(rec.Anchors) > 0 {
			fmt.Fprintf(&b, "  Anchors: %s\n", strings.Join(rec.Anchors, "; "))
		}
	}
	return b.String()
}

func metricString(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%.1f", *v), "0"), ".")
}

// completeLinkAnalysis backfills the link stage output with every domain the
// export contains. Domains the service reply never mentioned are analyzed in
// a follow-up batch pass, insufficient-data verdicts with usable export
// metrics are rescored, and the merged report replaces the per-reply totals.
func (r *Runner) completeLinkAnalysis(ctx context.Context, req *model.WorkRequest, data map[string]any) map[string]any {
	tbl, err := tabular.Load(req.TablePath)
	if err != nil {
		r.log("warning", "link analysis: table not readable, keeping reply as is")
		return data
	}
	cols := tabular.DetectColumns(tbl.Headers)
	domains, groups := tabular.GroupDomains(tbl.Rows, cols)
	lim := tabular.LimitsFor(len(domains))
	minRisk := r.minRisk(req)

	details := detailsFromData(data)

	analyzed := make(map[string]struct{}, len(details))
	for i, d := range details {
		key := model.CanonicalDomain(firstNonEmpty(d.Domain, d.URL))
		analyzed[key] = struct{}{}
		if !HasInsufficientDataPhrase(d.Reason) {
			continue
		}
		rows, ok := groups[key]
		if !ok {
			continue
		}
		rec := tabular.BuildRecord(key, rows, cols, lim)
		if rec.Rating != nil || rec.Traffic != nil {
			details[i] = ScoreRecord(rec, minRisk)
		}
	}

	var missing []model.DomainRecord
	for _, d := range domains {
		if _, ok := analyzed[d]; !ok {
			missing = append(missing, tabular.BuildRecord(d, groups[d], cols, lim))
		}
	}
	if len(missing) > 0 {
		r.log("info", fmt.Sprintf("link analysis: %d domains absent from reply, running follow-up pass", len(missing)))
		details = append(details, r.AnalyzeDomains(ctx, req, missing)...)
	}

	report := MergeAssessments(details, len(tbl.Rows), minRisk, disavowContentFrom(data))
	return applyReport(data, report, tabular.AnchorStats(tbl.Rows, cols, 10))
}
