// Package ai holds the generation boundary: a narrow, fallible Provider
// interface plus the concrete HTTP clients behind it.
package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider answers a conversation with a single reply. Implementations must
// honor ctx cancellation; a hung upstream call is bounded by the caller.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

type ProviderFactory func(ctx context.Context, model string) (Provider, error)

// Registry routes a provider name to a factory so deployments can switch
// backends (gemini in production, ollama for local work) by configuration.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

func (r *Registry) Register(name string, f ProviderFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, name string, model string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return f(ctx, model)
}
