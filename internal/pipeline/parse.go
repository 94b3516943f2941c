package pipeline

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/seo-cli/internal/model"
)

// refusalPhrases mark responses where the service declined to produce the
// requested output. Matching any of them skips straight to the stage
// fallback instead of hunting for structure that is not there.
var refusalPhrases = []string{
	"I'm sorry",
	"I can't provide",
	"I can't create",
	"I don't have the ability",
	"I don't have access",
	"I cannot generate",
	"I cannot create",
	"as an AI developed by OpenAI",
	"I cannot return a JSON format",
	"I cannot calculate",
	"However, I can certainly help you",
	"Here's a sample:",
	"This article would require",
}

var (
	labeledFence = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	anyFence     = regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```")
	leadMarker   = regexp.MustCompile(`(?i)^\s*(?:JSON|Response|Result|Output|Here):\s*`)
	controlChars = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f]")
)

// Parse turns raw completion text into a structured result. Extraction
// strategies run in order, first success wins; when everything fails the
// stage-specific fallback structure is returned. Parse is total and
// deterministic.
func Parse(name, response string, req *model.WorkRequest) model.ParsedResult {
	text := strings.TrimSpace(response)
	if text == "" {
		zap.L().Warn("empty completion response", zap.String("stage", name))
		return fallbackResult(name, "", req)
	}

	if data, ok := decodeObject(text); ok {
		return model.ParsedResult{Source: model.SourceParsed, Data: data, Raw: response}
	}

	for _, re := range []*regexp.Regexp{labeledFence, anyFence} {
		if m := re.FindStringSubmatch(text); m != nil {
			if data, ok := decodeObject(strings.TrimSpace(m[1])); ok {
				return model.ParsedResult{Source: model.SourceParsed, Data: data, Raw: response}
			}
		}
	}

	if data, ok := extractBraceSpan(text); ok {
		return model.ParsedResult{Source: model.SourceParsed, Data: data, Raw: response}
	}

	for _, phrase := range refusalPhrases {
		if strings.Contains(text, phrase) {
			zap.L().Warn("completion refused, using stage fallback", zap.String("stage", name))
			return fallbackResult(name, text, req)
		}
	}

	zap.L().Warn("no structured data in response, using stage fallback", zap.String("stage", name))
	return fallbackResult(name, text, req)
}

func fallbackResult(name, text string, req *model.WorkRequest) model.ParsedResult {
	return model.ParsedResult{
		Source: model.SourceFallback,
		Data:   FallbackData(name, text, req),
		Raw:    text,
	}
}

// extractBraceSpan finds the first top-level '{' and its matching close by
// depth counting, then tries to decode that span. On failure it retries
// once with control characters stripped and embedded newlines collapsed.
func extractBraceSpan(text string) (map[string]any, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, false
	}
	depth := 0
	end := -1
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end >= 0 {
			break
		}
	}
	if end <= start {
		return nil, false
	}

	span := strings.TrimSpace(text[start:end])
	span = leadMarker.ReplaceAllString(span, "")
	span = strings.TrimLeft(span, "\uFEFF \t\n\r")

	if data, ok := decodeObject(span); ok {
		return data, true
	}

	clean := controlChars.ReplaceAllString(span, "")
	clean = strings.ReplaceAll(clean, "\r", "")
	clean = strings.ReplaceAll(clean, "\n", " ")
	return decodeObject(clean)
}

func decodeObject(text string) (map[string]any, bool) {
	var data map[string]any
	if err := json.Unmarshal([]byte(text), &data); err != nil || data == nil {
		return nil, false
	}
	return data, true
}
