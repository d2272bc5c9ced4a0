package groq

import (
	"github.com/zlwaterfield/scramble/services/providers"
	"github.com/zlwaterfield/scramble/services/providers/chatcompletion"
)

// DefaultEndpoint is Groq's OpenAI-compatible chat-completions endpoint
const DefaultEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// Adapter implements providers.Adapter for Groq
type Adapter struct {
	*chatcompletion.Client
}

// NewAdapter creates a new Groq adapter
func NewAdapter(opts providers.Options) *Adapter {
	return &Adapter{
		Client: chatcompletion.New(providers.KindGroq, DefaultEndpoint, opts, nil),
	}
}
