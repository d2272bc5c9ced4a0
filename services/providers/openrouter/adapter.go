package openrouter

import (
	"github.com/zlwaterfield/scramble/services/providers"
	"github.com/zlwaterfield/scramble/services/providers/chatcompletion"
)

// DefaultEndpoint is the OpenRouter chat-completions endpoint
const DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"

// Adapter implements providers.Adapter for OpenRouter. Requests carry an
// X-Title header so traffic is attributed to the extension.
type Adapter struct {
	*chatcompletion.Client
}

// NewAdapter creates a new OpenRouter adapter
func NewAdapter(opts providers.Options) *Adapter {
	opts = opts.Normalize()
	return &Adapter{
		Client: chatcompletion.New(providers.KindOpenRouter, DefaultEndpoint, opts, map[string]string{
			"X-Title": opts.Title,
		}),
	}
}
