package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/seo-cli/internal/config"
	"github.com/sells-group/seo-cli/internal/model"
	"github.com/sells-group/seo-cli/internal/progress"
	"github.com/sells-group/seo-cli/internal/taskcfg"
	"github.com/sells-group/seo-cli/pkg/textgen"
)

const (
	maxStageAttempts  = 3
	retryWait         = time.Second
	defaultConfidence = 0.8
)

// Runner executes pipeline stages against the completion service with
// validation-driven retries. The zero thresholds are replaced with the
// pipeline defaults, so a bare &Runner{Tasks: ..., Completer: ...} works.
type Runner struct {
	Tasks     *taskcfg.Set
	Completer *textgen.Completer
	Sink      progress.Sink

	QualityThreshold float64
	MinRiskScore     float64
	ChunkConcurrency int
	BatchPacing      time.Duration
}

// NewRunner wires a runner from configuration. A nil sink logs through zap.
func NewRunner(tasks *taskcfg.Set, completer *textgen.Completer, sink progress.Sink, cfg config.PipelineConfig) *Runner {
	if sink == nil {
		sink = progress.NewLogSink(nil)
	}
	return &Runner{
		Tasks:            tasks,
		Completer:        completer,
		Sink:             sink,
		QualityThreshold: cfg.QualityScoreThreshold,
		MinRiskScore:     cfg.MinRiskScore,
		ChunkConcurrency: cfg.ChunkConcurrency,
		BatchPacing:      time.Duration(cfg.BatchPacingMillis) * time.Millisecond,
	}
}

func (r *Runner) sink() progress.Sink {
	if r.Sink == nil {
		return progress.NopSink{}
	}
	return r.Sink
}

func (r *Runner) log(level, msg string) {
	r.sink().Send(progress.Event{Type: progress.EventLog, Level: level, Message: msg})
}

func (r *Runner) minRisk(req *model.WorkRequest) float64 {
	if req != nil && req.MinRiskScore > 0 {
		return req.MinRiskScore
	}
	if r.MinRiskScore > 0 {
		return r.MinRiskScore
	}
	return model.DefaultMinRiskScore
}

// RunStage executes one pipeline stage end to end. Large tabular inputs to
// the link stage are routed through the chunked path; everything else goes
// through the retry loop directly. The returned result is never an error
// value: failures are reported through its Success and Errors fields.
func (r *Runner) RunStage(ctx context.Context, name string, req *model.WorkRequest, prev map[string]model.AgentResult) model.AgentResult {
	if name == taskcfg.StageLinkBuilder && req != nil && req.TablePath != "" && !req.IsChunkPart() {
		if res, ok := r.runChunked(ctx, req, prev); ok {
			return res
		}
	}
	return r.runSingle(ctx, name, req, prev)
}

// runSingle is the build-call-parse-validate loop. Invalid attempts get the
// accumulated violations appended to the prompt as a corrective note.
func (r *Runner) runSingle(ctx context.Context, name string, req *model.WorkRequest, prev map[string]model.AgentResult) model.AgentResult {
	task := r.Tasks.Get(name)
	start := time.Now()
	base := BuildPrompt(name, task, req, prev)

	var lastData map[string]any
	var lastViolations []string
	for attempt := 1; attempt <= maxStageAttempts; attempt++ {
		prompt := base
		if attempt > 1 {
			prompt = withCorrection(base, attempt, lastViolations)
			r.log("warning", fmt.Sprintf("%s: attempt %d, correcting %s",
				name, attempt, strings.Join(focusAreas(lastViolations), ", ")))
		}

		response := r.Completer.Complete(ctx, prompt, task.MaxTokens, task.RequireJSON)
		parsed := Parse(name, response, req)
		outcome := Validate(parsed.Data, task.ValidationRules)
		if outcome.Valid {
			data := parsed.Data
			if name == taskcfg.StageLinkBuilder && req != nil && req.TablePath != "" && !req.IsChunkPart() {
				data = r.completeLinkAnalysis(ctx, req, data)
			}
			return model.AgentResult{
				AgentName:  name,
				Success:    true,
				Data:       data,
				Elapsed:    time.Since(start),
				Confidence: confidenceOf(data),
			}
		}

		lastData, lastViolations = parsed.Data, outcome.Violations
		if attempt < maxStageAttempts {
			select {
			case <-ctx.Done():
				attempt = maxStageAttempts
			case <-time.After(retryWait):
			}
		}
	}

	return model.AgentResult{
		AgentName: name,
		Success:   false,
		Data:      lastData,
		Errors:    lastViolations,
		Elapsed:   time.Since(start),
	}
}

// withCorrection appends the corrective note the next attempt carries.
func withCorrection(prompt string, attempt int, violations []string) string {
	return fmt.Sprintf("%s\n\n[RETRY ATTEMPT %d] Please fix the following issues: %s.\nFocus on: %s.",
		prompt, attempt, strings.Join(violations, "; "), strings.Join(focusAreas(violations), ", "))
}

// focusAreas classifies violations into the focus categories named in the
// corrective note, deduplicated in first-hit order.
func focusAreas(violations []string) []string {
	seen := make(map[string]struct{})
	var areas []string
	add := func(a string) {
		if _, ok := seen[a]; !ok {
			seen[a] = struct{}{}
			areas = append(areas, a)
		}
	}
	for _, v := range violations {
		lower := strings.ToLower(v)
		switch {
		case strings.Contains(lower, "length") || strings.Contains(lower, "short"):
			add("length_requirements")
		case strings.Contains(lower, "json") || strings.Contains(lower, "parse") || strings.Contains(lower, "format"):
			add("format_compliance")
		case strings.Contains(lower, "score") || strings.Contains(lower, "valid"):
			add("validation")
		default:
			add("general")
		}
	}
	if len(areas) == 0 {
		areas = append(areas, "general")
	}
	return areas
}

func confidenceOf(data map[string]any) float64 {
	if c, ok := asFloat(data["confidence"]); ok && c >= 0 && c <= 1 {
		return c
	}
	return defaultConfidence
}
