// Package taskcfg loads per-stage task definitions: the opaque prompt
// template, token limits, and the validation rule set for each pipeline
// stage. Definitions live in YAML files under a task directory; a built-in
// set is used when the directory is absent so the pipeline stays runnable
// offline.
package taskcfg

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Stage names of the built-in pipeline.
const (
	StageTaskRouter        = "task_router"
	StageLanguageDetector  = "language_detector"
	StageLinkBuilder       = "link_builder"
	StageSemanticClusterer = "semantic_clusterer"
	StageTextGenerator     = "text_generator"
	StageMetaGenerator     = "meta_generator"
	StageTeamLead          = "team_lead"
)

// Rule is a tagged validation rule. Kind selects the predicate; the typed
// parameter fields carry its arguments. Unknown kinds are vacuously
// satisfied so configuration drift never blocks a stage.
type Rule struct {
	Kind  string  `yaml:"kind"`
	Field string  `yaml:"field,omitempty"`
	Min   float64 `yaml:"min,omitempty"`
	Max   float64 `yaml:"max,omitempty"`
	// Values enumerates allowed members for the member_of kind.
	Values []string `yaml:"values,omitempty"`
	// ScoreField/Threshold/IssuesField parameterize the consistency kind:
	// Field must equal (ScoreField >= Threshold && no severe entry in
	// IssuesField).
	ScoreField  string  `yaml:"score_field,omitempty"`
	Threshold   float64 `yaml:"threshold,omitempty"`
	IssuesField string  `yaml:"issues_field,omitempty"`
}

// Rule kinds dispatched by the validator.
const (
	KindListLength   = "list_length"   // len(Field) within [Min,Max]
	KindNumericRange = "numeric_range" // Field within [Min,Max]
	KindMemberOf     = "member_of"     // Field in Values
	KindPositive     = "positive"      // Field > 0
	KindNonEmpty     = "non_empty"     // Field is a non-empty string or list
	KindConsistency  = "consistency"   // boolean Field consistent with score+issues
)

// Task is one stage definition.
type Task struct {
	Name           string `yaml:"name"`
	PromptTemplate string `yaml:"ai_prompt_template"`
	MaxTokens      int    `yaml:"max_tokens,omitempty"`
	RequireJSON    bool   `yaml:"require_json,omitempty"`
	// MinChunkRows is the row count above which the stage's tabular input
	// is processed in chunks. Zero disables chunking for the stage.
	MinChunkRows    int    `yaml:"min_chunk_rows,omitempty"`
	ValidationRules []Rule `yaml:"validation_rules,omitempty"`
}

// Set holds all loaded stage definitions keyed by stage name.
type Set struct {
	Tasks map[string]Task
}

// Get returns the definition for a stage, falling back to an empty task so
// callers never dereference nil.
func (s *Set) Get(name string) Task {
	if s == nil || s.Tasks == nil {
		return Task{Name: name}
	}
	t, ok := s.Tasks[name]
	if !ok {
		return Task{Name: name}
	}
	return t
}

// Names returns the stage names in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Tasks))
	for name := range s.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads every *.yaml task file in dir. A missing directory falls back
// to the built-in definitions.
func Load(dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Warn("taskcfg: task directory missing, using built-in definitions",
				zap.String("dir", dir))
			return Builtin(), nil
		}
		return nil, eris.Wrap(err, "taskcfg: read dir")
	}

	set := &Set{Tasks: make(map[string]Task)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "taskcfg: read %s", e.Name())
		}
		var t Task
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return nil, eris.Wrapf(err, "taskcfg: parse %s", e.Name())
		}
		if t.Name == "" {
			t.Name = strings.TrimSuffix(e.Name(), ".yaml")
		}
		set.Tasks[t.Name] = t
	}

	// Fill gaps from the built-in set so a partial directory still yields a
	// complete pipeline.
	for name, t := range Builtin().Tasks {
		if _, ok := set.Tasks[name]; !ok {
			set.Tasks[name] = t
		}
	}

	return set, nil
}
