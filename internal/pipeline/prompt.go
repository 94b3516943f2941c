package pipeline

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/seo-cli/internal/model"
	"github.com/sells-group/seo-cli/internal/tabular"
	"github.com/sells-group/seo-cli/internal/taskcfg"
)

// promptDefaults fill template slots that neither the request nor prior
// stage outputs resolved.
var promptDefaults = map[string]string{
	"user_query":          "",
	"keywords":            "relevant keywords",
	"keyword":             "",
	"csv_file":            "",
	"csv_preview":         "",
	"semantic_cluster":    "",
	"target_audience":     "general audience",
	"content_type":        "informational article",
	"region":              "global",
	"language":            model.DefaultLanguage,
	"target_word_count":   "1500",
	"title":               "Generated Title",
	"description":         "Generated Description",
	"h1":                  "Main Article Title",
	"url_context":         "general website",
	"domain":              "example.com",
	"path_info":           "/",
	"original_request":    "",
	"agent_results":       "",
	"task_type":           "unknown",
	"min_risk_score":      "50",
	"language_confidence": "",
}

var templateSlot = regexp.MustCompile(`\{(\w+)\}`)

// maxAgentResultsJSON bounds the serialized prior-stage payload embedded in
// the quality-gate prompt, roughly 10k tokens.
const maxAgentResultsJSON = 40000

// BuildPrompt fills a stage's template from the request, prior stage
// outputs, and stage-specific derived values. Unresolved slots render as a
// bracketed literal of the slot name; building never fails.
func BuildPrompt(name string, task taskcfg.Task, req *model.WorkRequest, prev map[string]model.AgentResult) string {
	vars := map[string]string{
		"user_query":        req.Query,
		"url":               req.URL,
		"topic":             req.Topic,
		"keyword":           req.Keyword,
		"keywords":          strings.Join(keywordsFor(name, req), ", "),
		"csv_file":          req.TablePath,
		"domain":            domainFor(name, req),
		"url_context":       urlContext(req.URL),
		"path_info":         pathInfo(req.URL),
		"language":          req.EffectiveLanguage(),
		"target_word_count": wordCountFor(req),
		"target_audience":   req.TargetAudience,
		"min_risk_score":    fmt.Sprintf("%g", req.EffectiveMinRiskScore()),
	}

	if name == taskcfg.StageLinkBuilder && req.TablePath != "" {
		if tbl, err := tabular.Load(req.TablePath); err == nil {
			cols := tabular.DetectColumns(tbl.Headers)
			vars["csv_preview"] = tabular.BuildPreview(tbl, cols, req.IsChunkPart())
			vars["csv_total_rows"] = fmt.Sprintf("%d", len(tbl.Rows))
		} else {
			zap.L().Warn("could not read table for prompt", zap.Error(err))
			vars["csv_preview"] = "table not readable: " + err.Error()
			vars["csv_total_rows"] = "0"
		}
	}

	if name == taskcfg.StageLanguageDetector && req.Keyword == "" {
		vars["keyword"] = req.Topic
	}
	if name == taskcfg.StageTaskRouter {
		vars["original_request"] = req.Query
	}
	if name == taskcfg.StageTeamLead {
		vars["original_request"] = req.Query
		vars["task_type"] = taskTypeFor(req, prev)
		vars["agent_results"] = encodeAgentResults(prev)
	}

	mergePriorOutputs(vars, req, prev)

	return templateSlot.ReplaceAllStringFunc(task.PromptTemplate, func(m string) string {
		slot := m[1 : len(m)-1]
		if v, ok := vars[slot]; ok && v != "" {
			return v
		}
		if d, ok := promptDefaults[slot]; ok && d != "" {
			return d
		}
		return "[" + slot + "]"
	})
}

// mergeOrder fixes the stage order for folding prior outputs into the
// variable table, so a later stage's fields win over an earlier stage's and
// the same inputs always build the same prompt.
var mergeOrder = []string{
	taskcfg.StageTaskRouter,
	taskcfg.StageLanguageDetector,
	taskcfg.StageSemanticClusterer,
	taskcfg.StageTextGenerator,
	taskcfg.StageMetaGenerator,
	taskcfg.StageLinkBuilder,
	taskcfg.StageTeamLead,
}

// mergePriorOutputs propagates fields from earlier stage payloads into the
// variable table, so later prompts see detected language, chosen keywords,
// generated meta fields and so on.
func mergePriorOutputs(vars map[string]string, req *model.WorkRequest, prev map[string]model.AgentResult) {
	for _, name := range orderedStages(prev) {
		data := prev[name].Data
		if data == nil {
			continue
		}
		if kw, ok := data["keywords"]; ok {
			vars["keywords"] = stringifyList(kw)
		}
		if clusters, ok := data["clusters"]; ok {
			if raw, err := json.Marshal(clusters); err == nil {
				vars["semantic_cluster"] = string(raw)
			}
		}
		if mk, ok := data["main_keyword"].(string); ok && mk != "" {
			vars["keyword"] = mk
		}
		if lang, ok := data["detected_language"].(string); ok && lang != "" {
			vars["language"] = lang
		}
		if conf, ok := data["language_confidence"]; ok {
			vars["language_confidence"] = fmt.Sprintf("%v", conf)
		}
		if v, ok := data["target_word_count"]; ok {
			vars["target_word_count"] = fmt.Sprintf("%v", v)
		}
		if v, ok := data["word_count"]; ok {
			vars["target_word_count"] = fmt.Sprintf("%v", v)
		}
		for _, field := range []string{"title", "description", "h1", "target_audience", "content_type", "region"} {
			if v, ok := data[field].(string); ok && v != "" {
				vars[field] = v
			}
		}
		if _, ok := vars["h1"]; !ok {
			if t, ok := data["title"].(string); ok && t != "" {
				vars["h1"] = t
			}
		}
	}
}

// orderedStages lists prev's stage names in pipeline order, with stages from
// custom task files appended alphabetically.
func orderedStages(prev map[string]model.AgentResult) []string {
	known := make(map[string]struct{}, len(mergeOrder))
	names := make([]string, 0, len(prev))
	for _, name := range mergeOrder {
		known[name] = struct{}{}
		if _, ok := prev[name]; ok {
			names = append(names, name)
		}
	}
	var extra []string
	for name := range prev {
		if _, ok := known[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// encodeAgentResults serializes prior stage payloads for the quality-gate
// prompt, trimming per-domain detail lists and oversized export artifacts
// so the prompt stays within budget.
func encodeAgentResults(prev map[string]model.AgentResult) string {
	trimmed := make(map[string]any, len(prev))
	for name, result := range prev {
		data := result.Data
		if name == taskcfg.StageLinkBuilder {
			data = trimLinkBuilderData(data)
		}
		trimmed[name] = data
	}

	raw, err := json.Marshal(trimmed)
	if err != nil {
		return "{}"
	}
	s := string(raw)
	if len(s) > maxAgentResultsJSON {
		zap.L().Warn("agent results payload too large, trimming", zap.Int("bytes", len(s)))
		s = s[:maxAgentResultsJSON-5000] + `..."truncated"`
	}
	return s
}

func trimLinkBuilderData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}

	if al, ok := out["analyzed_links"].(map[string]any); ok {
		alCopy := make(map[string]any, len(al))
		for k, v := range al {
			alCopy[k] = v
		}
		if details, ok := alCopy["link_details"].([]any); ok && len(details) > 3 {
			alCopy["link_details"] = details[:3]
			alCopy["link_details_truncated"] = true
			alCopy["link_details_total_count"] = len(details)
		}
		out["analyzed_links"] = alCopy
	}

	if df, ok := out["disavow_file"].(map[string]any); ok {
		if content, ok := df["content"].(string); ok && len(content) > 5000 {
			dfCopy := make(map[string]any, len(df))
			for k, v := range df {
				dfCopy[k] = v
			}
			lines := strings.SplitN(content, "\n", 201)
			if len(lines) > 200 {
				lines = lines[:200]
			}
			dfCopy["content"] = strings.Join(lines, "\n")
			dfCopy["content_truncated"] = true
			out["disavow_file"] = dfCopy
		}
	}
	return out
}

func keywordsFor(name string, req *model.WorkRequest) []string {
	if len(req.Keywords) > 0 {
		return req.Keywords
	}
	if name == taskcfg.StageSemanticClusterer && req.Keyword != "" {
		return []string{req.Keyword}
	}
	return nil
}

// domainFor resolves the domain slot. The link stage prefers the explicit
// domain field, then a bare-host URL, then the host parsed from a full URL.
func domainFor(name string, req *model.WorkRequest) string {
	if name == taskcfg.StageLinkBuilder {
		if req.Domain != "" {
			return req.Domain
		}
		if req.URL != "" {
			if !strings.HasPrefix(req.URL, "http") {
				return req.URL
			}
			return hostOf(req.URL)
		}
		return ""
	}
	if req.URL != "" {
		if h := hostOf(req.URL); h != "" {
			return h
		}
	}
	return req.Domain
}

func taskTypeFor(req *model.WorkRequest, prev map[string]model.AgentResult) string {
	if router, ok := prev[taskcfg.StageTaskRouter]; ok {
		if tt, ok := router.Data["task_type"].(string); ok && tt != "" {
			return tt
		}
	}
	if req.TaskType != "" {
		return req.TaskType
	}
	return "unknown"
}

func wordCountFor(req *model.WorkRequest) string {
	if req.TargetWordCount > 0 {
		return fmt.Sprintf("%d", req.TargetWordCount)
	}
	return "1500"
}

func urlContext(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "general website"
	}
	var parts []string
	if u.Host != "" {
		parts = append(parts, "domain: "+u.Host)
	}
	if u.Path != "" && u.Path != "/" {
		parts = append(parts, "path: "+u.Path)
	}
	if len(parts) == 0 {
		return "general website"
	}
	return strings.Join(parts, ", ")
}

func pathInfo(rawURL string) string {
	if rawURL == "" {
		return "/"
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func stringifyList(v any) string {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
