// Package registry maps a provider id from settings to its adapter.
package registry

import (
	"fmt"

	"github.com/zlwaterfield/scramble/services"
	"github.com/zlwaterfield/scramble/services/providers"
	"github.com/zlwaterfield/scramble/services/providers/anthropic"
	"github.com/zlwaterfield/scramble/services/providers/groq"
	"github.com/zlwaterfield/scramble/services/providers/ollama"
	"github.com/zlwaterfield/scramble/services/providers/openai"
	"github.com/zlwaterfield/scramble/services/providers/openrouter"
)

// Registry holds one adapter per supported provider kind. It is built once
// at startup and read-only afterwards.
type Registry struct {
	adapters map[providers.Kind]providers.Adapter
}

// New builds an adapter for every kind returned by providers.Kinds
func New(opts providers.Options) *Registry {
	r := &Registry{adapters: make(map[providers.Kind]providers.Adapter)}
	for _, kind := range providers.Kinds() {
		r.adapters[kind] = newAdapter(kind, opts)
	}
	return r
}

func newAdapter(kind providers.Kind, opts providers.Options) providers.Adapter {
	switch kind {
	case providers.KindOpenAI:
		return openai.NewAdapter(opts)
	case providers.KindAnthropic:
		return anthropic.NewAdapter(opts)
	case providers.KindOllama:
		return ollama.NewAdapter(opts)
	case providers.KindGroq:
		return groq.NewAdapter(opts)
	case providers.KindOpenRouter:
		return openrouter.NewAdapter(opts)
	default:
		panic(fmt.Sprintf("registry: no adapter for provider kind %q", kind))
	}
}

// Resolve returns the adapter for a stored provider id. Unknown ids fail
// with an "invalid provider" configuration error and never reach the network.
func (r *Registry) Resolve(id string) (providers.Adapter, error) {
	kind, ok := providers.ParseKind(id)
	if !ok {
		return nil, services.NewConfigurationError(services.ErrInvalidProvider.Message).WithDetail("provider", id)
	}
	adapter, ok := r.adapters[kind]
	if !ok {
		return nil, services.NewConfigurationError(services.ErrInvalidProvider.Message).WithDetail("provider", id)
	}
	return adapter, nil
}

// Kinds lists the provider kinds this registry can serve
func (r *Registry) Kinds() []providers.Kind {
	return providers.Kinds()
}
