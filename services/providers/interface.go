package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zlwaterfield/scramble/services"
)

// Kind identifies a provider family
type Kind string

const (
	KindOpenAI     Kind = "openai"
	KindAnthropic  Kind = "anthropic"
	KindOllama     Kind = "ollama"
	KindGroq       Kind = "groq"
	KindOpenRouter Kind = "openrouter"
)

var allKinds = []Kind{KindOpenAI, KindAnthropic, KindOllama, KindGroq, KindOpenRouter}

// Kinds returns every supported provider kind in a stable order
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind converts a stored provider id into a Kind
func ParseKind(id string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(id)))
	for _, known := range allKinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// DisplayName returns the human-readable provider name used in error messages
func (k Kind) DisplayName() string {
	switch k {
	case KindOpenAI:
		return "OpenAI"
	case KindAnthropic:
		return "Anthropic"
	case KindOllama:
		return "Ollama"
	case KindGroq:
		return "Groq"
	case KindOpenRouter:
		return "OpenRouter"
	default:
		return string(k)
	}
}

// Config is the active provider selection. Only one is in effect at a time.
type Config struct {
	// Provider is the raw provider id as stored in settings
	Provider string `json:"provider"`

	// APIKey for authentication (optional for local providers)
	APIKey string `json:"apiKey"`

	// Model identifier (e.g., "gpt-3.5-turbo", "llama2")
	Model string `json:"model"`

	// CustomEndpoint overrides the adapter's default endpoint when set
	CustomEndpoint string `json:"customEndpoint"`
}

// Adapter translates a composed prompt into one backend's wire format and
// back into plain text.
type Adapter interface {
	// Kind returns the provider family this adapter serves
	Kind() Kind

	// Validate checks credentials and model without any network I/O
	Validate(cfg Config) error

	// Enhance performs exactly one outbound request and returns trimmed text
	Enhance(ctx context.Context, prompt string, cfg Config) (string, error)
}

// Options holds settings shared by every adapter
type Options struct {
	// HTTPClient performs the outbound request
	HTTPClient *http.Client

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls randomness (0.0 to 2.0)
	Temperature float64

	// SystemPrompt is sent as the first message by chat-style adapters
	SystemPrompt string

	// Title is sent as X-Title by providers that attribute traffic
	Title string
}

// DefaultOptions returns the sampling settings used by the browser extension.
// The HTTP client has no timeout; callers opt in through WithTimeout.
func DefaultOptions() Options {
	return Options{
		HTTPClient:   &http.Client{},
		MaxTokens:    1000,
		Temperature:  0.7,
		SystemPrompt: "You are a helpful assistant.",
		Title:        "Scramble Browser Extension",
	}
}

// WithTimeout returns a copy of the options whose client gives up after d.
// A zero duration keeps requests unbounded.
func (o Options) WithTimeout(d time.Duration) Options {
	if d <= 0 {
		return o
	}
	client := &http.Client{Timeout: d}
	if o.HTTPClient != nil {
		client.Transport = o.HTTPClient.Transport
	}
	o.HTTPClient = client
	return o
}

// Normalize fills zero values with defaults
func (o Options) Normalize() Options {
	def := DefaultOptions()
	if o.HTTPClient == nil {
		o.HTTPClient = def.HTTPClient
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = def.MaxTokens
	}
	if o.SystemPrompt == "" {
		o.SystemPrompt = def.SystemPrompt
	}
	if o.Title == "" {
		o.Title = def.Title
	}
	return o
}

// ResolveEndpoint returns the custom endpoint when configured, otherwise def
func ResolveEndpoint(cfg Config, def string) string {
	if endpoint := strings.TrimSpace(cfg.CustomEndpoint); endpoint != "" {
		return endpoint
	}
	return def
}

// RequireCredentials fails fast when a required API key or model is missing
func RequireCredentials(kind Kind, cfg Config, needsKey bool) error {
	if needsKey && strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("%s: %w", kind.DisplayName(), services.NewConfigurationError(services.ErrMissingAPIKey.Message))
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return fmt.Errorf("%s: %w", kind.DisplayName(), services.NewConfigurationError(services.ErrMissingModel.Message))
	}
	return nil
}

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider Kind

	// Code is the error code
	Code string

	// Message is the upstream or generic error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s API request failed: %s", e.Provider.DisplayName(), e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider Kind, code, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}
