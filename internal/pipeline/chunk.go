package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/seo-cli/internal/model"
	"github.com/sells-group/seo-cli/internal/progress"
	"github.com/sells-group/seo-cli/internal/tabular"
	"github.com/sells-group/seo-cli/internal/taskcfg"
)

const defaultChunkConcurrency = 2

// runChunked splits a large table into chunk files and runs the link stage
// over each chunk concurrently. Chunk results contribute only their disavow
// fragments; the per-domain analysis runs once afterwards over the whole
// table, so no domain is scored against a partial view of its links. The
// second return value is false when the table is small enough for the plain
// single-pass path.
func (r *Runner) runChunked(ctx context.Context, req *model.WorkRequest, prev map[string]model.AgentResult) (model.AgentResult, bool) {
	task := r.Tasks.Get(taskcfg.StageLinkBuilder)
	minRows := task.MinChunkRows
	if minRows <= 0 {
		minRows = 50
	}
	tbl, err := tabular.Load(req.TablePath)
	if err != nil || len(tbl.Rows) <= minRows {
		return model.AgentResult{}, false
	}

	size := tabular.ChunkSize(len(tbl.Rows))
	chunks := tabular.Split(tbl.Rows, size)
	r.log("info", fmt.Sprintf("link analysis: splitting %d rows into %d chunks of up to %d",
		len(tbl.Rows), len(chunks), size))

	workers := r.ChunkConcurrency
	if workers <= 0 {
		workers = defaultChunkConcurrency
	}
	sem := semaphore.NewWeighted(int64(workers))
	results := make([]model.AgentResult, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[i] = chunkFailure(err)
				return nil
			}
			defer sem.Release(1)

			r.sink().Send(progress.Event{
				Type:     progress.EventStep,
				StepInfo: fmt.Sprintf("chunk %d/%d", i+1, len(chunks)),
			})
			path, err := tabular.WriteChunk(tbl.Headers, chunk.Rows)
			if err != nil {
				results[i] = chunkFailure(err)
				return nil
			}
			defer os.Remove(path)
			results[i] = r.runSingle(gctx, taskcfg.StageLinkBuilder, req.Clone(path), prev)
			return nil
		})
	}
	_ = g.Wait()

	var disavowParts []string
	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
			continue
		}
		if content := disavowContentFrom(res.Data); content != "" {
			disavowParts = append(disavowParts, content)
		}
	}
	if failed > 0 {
		r.log("warning", fmt.Sprintf("link analysis: %d of %d chunks failed", failed, len(chunks)))
	}

	cols := tabular.DetectColumns(tbl.Headers)
	domains, groups := tabular.GroupDomains(tbl.Rows, cols)
	lim := tabular.LimitsFor(len(domains))
	records := make([]model.DomainRecord, 0, len(domains))
	for _, d := range domains {
		records = append(records, tabular.BuildRecord(d, groups[d], cols, lim))
	}

	minRisk := r.minRisk(req)
	details := r.AnalyzeDomains(ctx, req, records)
	details = r.recheckInsufficient(ctx, req, details, groups, cols, lim)

	report := MergeAssessments(details, len(tbl.Rows), minRisk, strings.Join(disavowParts, "\n"))
	data := applyReport(nil, report, tabular.AnchorStats(tbl.Rows, cols, 10))
	data["chunks_processed"] = float64(len(chunks))

	return model.AgentResult{
		AgentName:  taskcfg.StageLinkBuilder,
		Success:    true,
		Data:       data,
		Confidence: defaultConfidence,
	}, true
}

// recheckInsufficient reruns the batch pass for domains the first pass wrote
// off as lacking data even though the export does carry metrics for them.
func (r *Runner) recheckInsufficient(ctx context.Context, req *model.WorkRequest, details []model.RiskAssessment, groups map[string][]tabular.Row, cols tabular.Columns, lim tabular.RecordLimits) []model.RiskAssessment {
	var records []model.DomainRecord
	indices := make(map[string]int)
	for i, d := range details {
		if !HasInsufficientDataPhrase(d.Reason) {
			continue
		}
		rows, ok := groups[d.Domain]
		if !ok {
			continue
		}
		rec := tabular.BuildRecord(d.Domain, rows, cols, lim)
		if rec.Rating == nil && rec.Traffic == nil {
			continue
		}
		records = append(records, rec)
		indices[rec.Domain] = i
	}
	if len(records) == 0 {
		return details
	}

	r.log("info", fmt.Sprintf("link analysis: rechecking %d insufficient-data domains", len(records)))
	for _, redone := range r.AnalyzeDomains(ctx, req, records) {
		if i, ok := indices[redone.Domain]; ok {
			details[i] = redone
		}
	}
	return details
}

func chunkFailure(err error) model.AgentResult {
	return model.AgentResult{
		AgentName: taskcfg.StageLinkBuilder,
		Success:   false,
		Errors:    []string{err.Error()},
	}
}
