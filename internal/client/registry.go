package client

import (
	"fmt"
	"sort"
	"strings"
)

// Factory builds an adapter for one resolved model id.
type Factory func(model, apiKey string) (Adapter, error)

// Registry maps model ids to adapter factories. Selection is a lookup,
// never provider-specific branching at the call site: adding a provider
// means registering its models here.
type Registry struct {
	factories  map[string]Factory
	namespaces map[string]Factory
}

// NewAdapterRegistry creates an empty adapter registry.
func NewAdapterRegistry() *Registry {
	return &Registry{
		factories:  make(map[string]Factory),
		namespaces: make(map[string]Factory),
	}
}

// Register binds an exact model id to a factory.
func (r *Registry) Register(modelID string, f Factory) {
	r.factories[modelID] = f
}

// RegisterNamespace binds a model-id prefix (e.g. "ollama/") to a
// factory. The factory receives the id with the prefix stripped.
func (r *Registry) RegisterNamespace(prefix string, f Factory) {
	r.namespaces[prefix] = f
}

// Resolve builds the adapter for a model id. Exact registrations win
// over namespaces.
func (r *Registry) Resolve(modelID, apiKey string) (Adapter, error) {
	if f, ok := r.factories[modelID]; ok {
		return f(modelID, apiKey)
	}
	for prefix, f := range r.namespaces {
		if strings.HasPrefix(modelID, prefix) {
			return f(strings.TrimPrefix(modelID, prefix), apiKey)
		}
	}
	return nil, fmt.Errorf("unknown model: %s", modelID)
}

// Known reports whether a model id resolves to some adapter.
func (r *Registry) Known(modelID string) bool {
	if _, ok := r.factories[modelID]; ok {
		return true
	}
	for prefix := range r.namespaces {
		if strings.HasPrefix(modelID, prefix) && len(modelID) > len(prefix) {
			return true
		}
	}
	return false
}

// ModelIDs returns the exactly-registered model ids, sorted.
func (r *Registry) ModelIDs() []string {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultRegistry wires the catalog models to their adapter families
// plus the ollama/ namespace for local models.
func DefaultRegistry() *Registry {
	r := NewAdapterRegistry()

	openai := func(model, apiKey string) (Adapter, error) {
		return NewOpenAIAdapter(model, apiKey), nil
	}
	anthropic := func(model, apiKey string) (Adapter, error) {
		return NewAnthropicAdapter(model, apiKey), nil
	}
	gemini := func(model, apiKey string) (Adapter, error) {
		return NewGeminiAdapter(model, apiKey), nil
	}
	ollama := func(model, _ string) (Adapter, error) {
		return NewOllamaAdapter(model, "")
	}

	for _, m := range AvailableModels {
		switch m.Provider {
		case "openai":
			r.Register(m.ID, openai)
		case "anthropic":
			r.Register(m.ID, anthropic)
		case "gemini":
			r.Register(m.ID, gemini)
		}
	}
	r.RegisterNamespace("ollama/", ollama)
	return r
}

// ProviderFor returns the key-lookup provider name for a model id.
func ProviderFor(modelID string) (string, bool) {
	if m, ok := GetModelInfo(modelID); ok {
		return m.Provider, true
	}
	if strings.HasPrefix(modelID, "ollama/") {
		return "ollama", true
	}
	return "", false
}
