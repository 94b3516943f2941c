package textgen

import "strings"

// charsPerToken is the fixed character-to-token estimation ratio.
const charsPerToken = 4

// truncationMarker replaces the removed middle of an oversized prompt.
const truncationMarker = "\n\n[... TRUNCATED ...]\n\n"

// jsonMarkerNote satisfies the structured-output requirement that the
// literal token "json" appears in the prompt.
const jsonMarkerNote = "IMPORTANT: Return the result in JSON format (json format)."

// minPromptTokens is the floor kept for the prompt after reserving output
// tokens, so truncation never degenerates to an empty prompt.
const minPromptTokens = 64

// EstimateTokens approximates the token cost of a prompt. An empty prompt
// costs nothing; any other prompt costs at least one token.
func EstimateTokens(prompt string) int {
	if prompt == "" {
		return 0
	}
	n := len(prompt) / charsPerToken
	if n < 1 {
		return 1
	}
	return n
}

// FitBudget truncates prompt so that its estimated tokens plus maxOutput
// stay within modelLimit. The head (instructions) and tail (output-format
// spec) survive; the middle is replaced with an explicit marker. Prompts
// already within budget are returned unchanged.
func FitBudget(prompt string, maxOutput, modelLimit int) string {
	if EstimateTokens(prompt)+maxOutput <= modelLimit {
		return prompt
	}

	allowedTokens := modelLimit - maxOutput
	if allowedTokens < minPromptTokens {
		allowedTokens = minPromptTokens
	}
	allowedChars := allowedTokens * charsPerToken

	keep := allowedChars - len(truncationMarker)
	if keep < 2 {
		keep = 2
	}
	// Instructions get the larger share; the tail keeps the output-format
	// spec that models tend to need verbatim.
	headLen := keep * 3 / 5
	tailLen := keep - headLen
	if headLen >= len(prompt) || tailLen >= len(prompt) {
		return prompt
	}

	return prompt[:headLen] + truncationMarker + prompt[len(prompt)-tailLen:]
}

// jsonModeModels are models known to accept structured-output mode exactly.
var jsonModeModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4-turbo",
	"gpt-4-turbo-preview",
	"gpt-4-1106-preview",
	"gpt-4-0125-preview",
	"gpt-3.5-turbo-1106",
	"gpt-3.5-turbo-0125",
}

// SupportsJSONMode reports whether the model accepts the structured-output
// request option. The bare "gpt-4" model is explicitly excluded; dated
// version suffixes (1106/0125) opt their families in.
func SupportsJSONMode(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	if m == "gpt-4" {
		return false
	}
	if strings.Contains(m, "gpt-4o") || strings.Contains(m, "gpt-4-turbo") {
		return true
	}
	if strings.Contains(m, "gpt-4") && (strings.Contains(m, "1106") || strings.Contains(m, "0125")) {
		return true
	}
	if strings.Contains(m, "gpt-3.5-turbo") && (strings.Contains(m, "1106") || strings.Contains(m, "0125")) {
		return true
	}
	for _, known := range jsonModeModels {
		if strings.Contains(m, known) {
			return true
		}
	}
	return false
}

// EnsureJSONMarker guarantees the literal "json" token is present, injecting
// the marker note at the very front when absent.
func EnsureJSONMarker(prompt string) string {
	if strings.Contains(strings.ToLower(prompt), "json") {
		return prompt
	}
	return jsonMarkerNote + "\n\n" + prompt
}

// ReinjectJSONMarker re-verifies the marker after truncation, appending the
// note at the tail if the front copy was truncated away.
func ReinjectJSONMarker(prompt string) string {
	if strings.Contains(strings.ToLower(prompt), "json") {
		return prompt
	}
	return prompt + "\n\n" + jsonMarkerNote
}
