package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/zlwaterfield/scramble/services/providers"
	"github.com/zlwaterfield/scramble/services/providers/transport"
)

const (
	// DefaultEndpoint is the Anthropic text-completions endpoint
	DefaultEndpoint = "https://api.anthropic.com/v1/complete"

	apiVersion = "2023-06-01"
)

// Adapter implements providers.Adapter for Anthropic's completion API
type Adapter struct {
	opts providers.Options
}

// NewAdapter creates a new Anthropic adapter
func NewAdapter(opts providers.Options) *Adapter {
	return &Adapter{opts: opts.Normalize()}
}

// Kind returns the provider family
func (a *Adapter) Kind() providers.Kind {
	return providers.KindAnthropic
}

// Validate requires both an API key and a model
func (a *Adapter) Validate(cfg providers.Config) error {
	return providers.RequireCredentials(a.Kind(), cfg, true)
}

// Enhance wraps the prompt in a Human/Assistant turn and returns the completion
func (a *Adapter) Enhance(ctx context.Context, prompt string, cfg providers.Config) (string, error) {
	if err := a.Validate(cfg); err != nil {
		return "", err
	}

	resp, err := transport.PostJSON(ctx, a.opts.HTTPClient, a.Kind(), transport.Request{
		Endpoint: providers.ResolveEndpoint(cfg, DefaultEndpoint),
		Headers: map[string]string{
			"X-API-Key":         cfg.APIKey,
			"anthropic-version": apiVersion,
		},
		Body: &CompletionRequest{
			Prompt:            fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
			Model:             cfg.Model,
			MaxTokensToSample: a.opts.MaxTokens,
			Temperature:       a.opts.Temperature,
		},
	})
	if err != nil {
		return "", err
	}

	if !resp.OK() {
		return "", a.handleErrorResponse(resp.StatusCode, resp.Body)
	}

	var completion CompletionResponse
	if err := json.Unmarshal(resp.Body, &completion); err != nil {
		return "", providers.NewProviderError(a.Kind(), "UNMARSHAL_ERROR", "failed to unmarshal response", resp.StatusCode, err)
	}
	if completion.Completion == nil {
		return "", providers.NewProviderError(a.Kind(), "EMPTY_RESPONSE", "response contained no completion", resp.StatusCode, nil)
	}

	return strings.TrimSpace(*completion.Completion), nil
}

func (a *Adapter) handleErrorResponse(statusCode int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || len(errResp.Error) == 0 {
		return providers.NewProviderError(a.Kind(), "UNKNOWN_ERROR", http.StatusText(statusCode), statusCode, nil)
	}

	var message string
	if err := json.Unmarshal(errResp.Error, &message); err == nil && message != "" {
		return providers.NewProviderError(a.Kind(), "UPSTREAM_ERROR", message, statusCode, nil)
	}

	var detail ErrorDetail
	if err := json.Unmarshal(errResp.Error, &detail); err != nil || detail.Message == "" {
		return providers.NewProviderError(a.Kind(), "UNKNOWN_ERROR", http.StatusText(statusCode), statusCode, nil)
	}
	code := detail.Type
	if code == "" {
		code = "UPSTREAM_ERROR"
	}
	return providers.NewProviderError(a.Kind(), code, detail.Message, statusCode, nil)
}

// CompletionRequest is the legacy text-completion request body
type CompletionRequest struct {
	Prompt            string  `json:"prompt"`
	Model             string  `json:"model"`
	MaxTokensToSample int     `json:"max_tokens_to_sample"`
	Temperature       float64 `json:"temperature"`
}

// CompletionResponse is the text-completion response body
type CompletionResponse struct {
	Completion *string `json:"completion"`
	StopReason string  `json:"stop_reason"`
	Model      string  `json:"model"`
}

// ErrorResponse wraps the upstream error, an object or a bare string
type ErrorResponse struct {
	Type  string          `json:"type"`
	Error json.RawMessage `json:"error"`
}

// ErrorDetail is Anthropic's error object
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
