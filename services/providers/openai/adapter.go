package openai

import (
	"github.com/zlwaterfield/scramble/services/providers"
	"github.com/zlwaterfield/scramble/services/providers/chatcompletion"
)

// DefaultEndpoint is the OpenAI chat-completions endpoint
const DefaultEndpoint = "https://api.openai.com/v1/chat/completions"

// Adapter implements providers.Adapter for OpenAI and any server exposing
// the same chat-completions API through a custom endpoint.
type Adapter struct {
	*chatcompletion.Client
}

// NewAdapter creates a new OpenAI adapter
func NewAdapter(opts providers.Options) *Adapter {
	return &Adapter{
		Client: chatcompletion.New(providers.KindOpenAI, DefaultEndpoint, opts, nil),
	}
}
