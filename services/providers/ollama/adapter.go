package ollama

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/zlwaterfield/scramble/services/providers"
	"github.com/zlwaterfield/scramble/services/providers/transport"
)

// DefaultEndpoint is the local Ollama generate endpoint
const DefaultEndpoint = "http://localhost:11434/api/generate"

// Adapter implements providers.Adapter for a local Ollama server.
// An API key is optional and only sent when configured (e.g. behind a proxy).
type Adapter struct {
	opts providers.Options
}

// NewAdapter creates a new Ollama adapter
func NewAdapter(opts providers.Options) *Adapter {
	return &Adapter{opts: opts.Normalize()}
}

// Kind returns the provider family
func (a *Adapter) Kind() providers.Kind {
	return providers.KindOllama
}

// Validate requires a model only
func (a *Adapter) Validate(cfg providers.Config) error {
	return providers.RequireCredentials(a.Kind(), cfg, false)
}

// Enhance posts a non-streaming generate request
func (a *Adapter) Enhance(ctx context.Context, prompt string, cfg providers.Config) (string, error) {
	if err := a.Validate(cfg); err != nil {
		return "", err
	}

	headers := map[string]string{}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		headers["Authorization"] = "Bearer " + key
	}

	resp, err := transport.PostJSON(ctx, a.opts.HTTPClient, a.Kind(), transport.Request{
		Endpoint: providers.ResolveEndpoint(cfg, DefaultEndpoint),
		Headers:  headers,
		Body: &GenerateRequest{
			Model:  cfg.Model,
			Prompt: prompt,
			Stream: false,
		},
	})
	if err != nil {
		return "", err
	}

	if !resp.OK() {
		var errResp ErrorResponse
		if err := json.Unmarshal(resp.Body, &errResp); err == nil && errResp.Error != "" {
			return "", providers.NewProviderError(a.Kind(), "UPSTREAM_ERROR", errResp.Error, resp.StatusCode, nil)
		}
		return "", providers.NewProviderError(a.Kind(), "UNKNOWN_ERROR", "Ollama API request failed", resp.StatusCode, nil)
	}

	var generated GenerateResponse
	if err := json.Unmarshal(resp.Body, &generated); err != nil {
		return "", providers.NewProviderError(a.Kind(), "UNMARSHAL_ERROR", "failed to unmarshal response", resp.StatusCode, err)
	}
	if generated.Response == nil {
		return "", providers.NewProviderError(a.Kind(), "EMPTY_RESPONSE", "response contained no text", resp.StatusCode, nil)
	}

	return strings.TrimSpace(*generated.Response), nil
}

// GenerateRequest is the /api/generate request body
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// GenerateResponse is the non-streaming /api/generate response body
type GenerateResponse struct {
	Model    string  `json:"model"`
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// ErrorResponse is Ollama's error body
type ErrorResponse struct {
	Error string `json:"error"`
}
