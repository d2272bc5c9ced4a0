// Package chatcompletion implements the OpenAI-compatible chat-completion
// wire format shared by the OpenAI, Groq and OpenRouter adapters.
package chatcompletion

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/zlwaterfield/scramble/services/providers"
	"github.com/zlwaterfield/scramble/services/providers/transport"
)

// Client speaks the chat-completion protocol for one provider kind
type Client struct {
	kind            providers.Kind
	defaultEndpoint string
	opts            providers.Options
	headers         map[string]string
}

// New creates a chat-completion client. extraHeaders are sent on every request.
func New(kind providers.Kind, defaultEndpoint string, opts providers.Options, extraHeaders map[string]string) *Client {
	return &Client{
		kind:            kind,
		defaultEndpoint: defaultEndpoint,
		opts:            opts.Normalize(),
		headers:         extraHeaders,
	}
}

// Kind returns the provider family
func (c *Client) Kind() providers.Kind {
	return c.kind
}

// DefaultEndpoint returns the endpoint used when no custom endpoint is configured
func (c *Client) DefaultEndpoint() string {
	return c.defaultEndpoint
}

// Validate requires both an API key and a model
func (c *Client) Validate(cfg providers.Config) error {
	return providers.RequireCredentials(c.kind, cfg, true)
}

// Enhance sends the prompt as the user message and returns the first choice
func (c *Client) Enhance(ctx context.Context, prompt string, cfg providers.Config) (string, error) {
	if err := c.Validate(cfg); err != nil {
		return "", err
	}

	headers := map[string]string{
		"Authorization": "Bearer " + cfg.APIKey,
	}
	for k, v := range c.headers {
		headers[k] = v
	}

	resp, err := transport.PostJSON(ctx, c.opts.HTTPClient, c.kind, transport.Request{
		Endpoint: providers.ResolveEndpoint(cfg, c.defaultEndpoint),
		Headers:  headers,
		Body:     c.buildRequest(prompt, cfg.Model),
	})
	if err != nil {
		return "", err
	}

	if !resp.OK() {
		return "", c.handleErrorResponse(resp.StatusCode, resp.Body)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(resp.Body, &chatResp); err != nil {
		return "", providers.NewProviderError(c.kind, "UNMARSHAL_ERROR", "failed to unmarshal response", resp.StatusCode, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", providers.NewProviderError(c.kind, "EMPTY_RESPONSE", "response contained no choices", resp.StatusCode, nil)
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// buildRequest converts the composed prompt to the chat format
func (c *Client) buildRequest(prompt, model string) *ChatRequest {
	temperature := c.opts.Temperature
	maxTokens := c.opts.MaxTokens
	return &ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: c.opts.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	}
}

// handleErrorResponse extracts the upstream message when the body is parseable
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || len(errResp.Error) == 0 {
		return providers.NewProviderError(c.kind, "UNKNOWN_ERROR", http.StatusText(statusCode), statusCode, nil)
	}

	// Some compatible servers send a bare string instead of an object.
	var message string
	if err := json.Unmarshal(errResp.Error, &message); err == nil && message != "" {
		return providers.NewProviderError(c.kind, "UPSTREAM_ERROR", message, statusCode, nil)
	}

	var detail ErrorDetail
	if err := json.Unmarshal(errResp.Error, &detail); err != nil || detail.Message == "" {
		return providers.NewProviderError(c.kind, "UNKNOWN_ERROR", http.StatusText(statusCode), statusCode, nil)
	}

	code := detail.Type
	if code == "" {
		code = "UPSTREAM_ERROR"
	}
	return providers.NewProviderError(c.kind, code, detail.Message, statusCode, nil)
}

// ChatRequest is the chat-completion request body
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Message is one chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the chat-completion response body
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Choice is one completion candidate
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ErrorResponse wraps the upstream error payload, which is either an
// object or a plain string depending on the server.
type ErrorResponse struct {
	Error json.RawMessage `json:"error"`
}

// ErrorDetail is the OpenAI-style error object
type ErrorDetail struct {
	Message string          `json:"message"`
	Type    string          `json:"type"`
	Code    json.RawMessage `json:"code,omitempty"`
}
