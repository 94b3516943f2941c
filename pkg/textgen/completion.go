package textgen

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/seo-cli/internal/resilience"
)

// CompleterConfig captures the model parameters the Completer applies to
// every request.
type CompleterConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int // default completion token cap when a task sets none
	ModelMaxTokens int // total context window the model accepts
	Mock           bool
}

// Completer is the high level completion entry point: it fits prompts into
// the model's context window, negotiates JSON mode, retries transient
// failures, and degrades to a deterministic offline response when the
// service cannot be reached. Complete never returns an error; every failure
// mode yields usable text.
type Completer struct {
	client Client
	cfg    CompleterConfig
	retry  resilience.RetryConfig
}

// NewCompleter wires a Completer over the given client. A nil client forces
// mock mode.
func NewCompleter(client Client, cfg CompleterConfig) *Completer {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.ModelMaxTokens <= 0 {
		cfg.ModelMaxTokens = 8192
	}
	if client == nil {
		cfg.Mock = true
	}
	return &Completer{
		client: client,
		cfg:    cfg,
		retry:  resilience.DefaultRetryConfig(),
	}
}

// Complete sends the prompt and returns the first choice's content.
// maxTokens caps the completion for this call; zero falls back to the
// configured default. When requireJSON is set, JSON mode is requested for
// models that support it and a JSON instruction marker is kept present in
// the prompt either way.
func (c *Completer) Complete(ctx context.Context, prompt string, maxTokens int, requireJSON bool) string {
	if c.cfg.Mock {
		return MockResponse(prompt)
	}
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	jsonMode := requireJSON && SupportsJSONMode(c.cfg.Model)
	if requireJSON {
		prompt = EnsureJSONMarker(prompt)
	}
	prompt = FitBudget(prompt, maxTokens, c.cfg.ModelMaxTokens)
	if requireJSON {
		// Truncation can cut the marker out of the head; the API rejects
		// JSON mode when the word "json" is absent from the messages.
		prompt = ReinjectJSONMarker(prompt)
	}

	req := ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: &c.cfg.Temperature,
		MaxTokens:   &maxTokens,
	}
	if jsonMode {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	content, err := c.call(ctx, req)
	if err != nil && jsonMode && isFormatUnsupported(err) {
		zap.L().Warn("model rejected response_format, retrying without JSON mode",
			zap.String("model", c.cfg.Model))
		req.ResponseFormat = nil
		content, err = c.call(ctx, req)
	}
	if err != nil {
		zap.L().Warn("completion failed, falling back to offline response",
			zap.String("model", c.cfg.Model),
			zap.Error(err))
		return MockResponse(prompt)
	}
	return content
}

func (c *Completer) call(ctx context.Context, req ChatCompletionRequest) (string, error) {
	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*ChatCompletionResponse, error) {
		return c.client.ChatCompletion(ctx, req)
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("textgen: response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// isFormatUnsupported reports whether the error is the API telling us the
// selected model does not accept a response_format parameter.
func isFormatUnsupported(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	body := strings.ToLower(apiErr.Body)
	return strings.Contains(body, "response_format") &&
		(strings.Contains(body, "not supported") || strings.Contains(body, "unsupported"))
}
