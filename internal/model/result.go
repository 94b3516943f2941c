package model

import "time"

// ResultSource distinguishes cleanly parsed data from fallback construction.
type ResultSource string

const (
	// SourceParsed means one of the structured extraction strategies succeeded.
	SourceParsed ResultSource = "parsed"
	// SourceFallback means the stage-specific default structure was built
	// from context because no strategy produced structured data.
	SourceFallback ResultSource = "fallback"
)

// ParsedResult is the total outcome of response parsing. It never represents
// an error: malformed input yields a fallback-sourced result instead.
type ParsedResult struct {
	Source ResultSource
	Data   map[string]any
	// Raw preserves the original response text on the fallback path.
	Raw string
}

// IsFallback reports whether the result was constructed from context rather
// than parsed from the response.
func (p ParsedResult) IsFallback() bool { return p.Source == SourceFallback }

// ValidationOutcome is the result of checking parsed data against a stage's
// rule set.
type ValidationOutcome struct {
	Valid      bool
	Violations []string
}

// AgentResult is the surface a stage exposes to the orchestrator and callers.
type AgentResult struct {
	AgentName  string         `json:"agent_name"`
	Success    bool           `json:"success"`
	Data       map[string]any `json:"data"`
	Errors     []string       `json:"errors"`
	Elapsed    time.Duration  `json:"execution_time"`
	Confidence float64        `json:"confidence"`
}

// PipelineStatus is the final status of a run.
type PipelineStatus string

const (
	StatusCompleted     PipelineStatus = "completed"
	StatusNeedsRevision PipelineStatus = "needs_revision"
)

// PipelineResult aggregates all stage outputs for one request.
type PipelineResult struct {
	RunID        string                 `json:"run_id"`
	TaskType     string                 `json:"task_type"`
	Status       PipelineStatus         `json:"status"`
	StageResults map[string]AgentResult `json:"agent_results"`

	Language     map[string]any `json:"language_detection,omitempty"`
	LinkAnalysis map[string]any `json:"link_analysis,omitempty"`
	Clusters     map[string]any `json:"semantic_clusters,omitempty"`
	Meta         map[string]any `json:"meta_tags,omitempty"`
	Content      map[string]any `json:"content,omitempty"`
	Validation   map[string]any `json:"validation,omitempty"`
}
