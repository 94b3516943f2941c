package model

// WorkRequest carries the user-supplied parameters for one pipeline run.
// It is owned by the caller; only the orchestrator mutates it, to propagate
// values discovered by earlier stages (detected language, routed parameters).
type WorkRequest struct {
	Query           string   `json:"user_query"`
	URL             string   `json:"url,omitempty"`
	Topic           string   `json:"topic,omitempty"`
	Keyword         string   `json:"keyword,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	TablePath       string   `json:"table_path,omitempty"`
	Domain          string   `json:"domain,omitempty"`
	Language        string   `json:"language,omitempty"`
	TargetWordCount int      `json:"target_word_count,omitempty"`
	TargetAudience  string   `json:"target_audience,omitempty"`
	MinRiskScore    float64  `json:"min_risk_score,omitempty"`

	// TaskType is filled in by the routing stage.
	TaskType string `json:"task_type,omitempty"`

	// chunkPart marks a request cloned for a single chunk of a large table.
	// Chunk requests skip the global entity analysis pass.
	chunkPart bool
}

// DefaultLanguage is used when neither the request nor the language
// detector stage provides one.
const DefaultLanguage = "uk"

// DefaultMinRiskScore is the disavow threshold applied when the request
// does not set one.
const DefaultMinRiskScore = 50.0

// Clone returns a copy of the request pointing at a different table path,
// marked as a chunk-scoped sub-request.
func (r *WorkRequest) Clone(tablePath string) *WorkRequest {
	c := *r
	c.TablePath = tablePath
	c.chunkPart = true
	return &c
}

// IsChunkPart reports whether this request is a chunk-scoped clone.
func (r *WorkRequest) IsChunkPart() bool { return r.chunkPart }

// EffectiveMinRiskScore returns the configured disavow threshold or the default.
func (r *WorkRequest) EffectiveMinRiskScore() float64 {
	if r.MinRiskScore > 0 {
		return r.MinRiskScore
	}
	return DefaultMinRiskScore
}

// EffectiveLanguage returns the request language or the default.
func (r *WorkRequest) EffectiveLanguage() string {
	if r.Language != "" {
		return r.Language
	}
	return DefaultLanguage
}
