package ai

import (
	"context"
	"strings"
	"sync"

	"github.com/suPer8Hu/rag-chat/internal/apperr"
)

type ClientFactory func(ctx context.Context, res *Resolution) (Client, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]ClientFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ClientFactory)}
}

func (r *Registry) Register(provider string, f ClientFactory) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[provider] = f
}

func (r *Registry) Client(ctx context.Context, res *Resolution) (Client, error) {
	name := strings.ToLower(strings.TrimSpace(res.Provider))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, apperr.Configuration("no client registered for provider %q", name)
	}
	return f(ctx, res)
}

// Defaults wires the built-in cloud and local clients.
func Defaults() *Registry {
	reg := NewRegistry()
	reg.Register(ProviderGemini, func(ctx context.Context, res *Resolution) (Client, error) {
		return NewGeminiClient(res.BaseURL, res.Credential, res.ModelName), nil
	})
	reg.Register(ProviderOpenAI, func(ctx context.Context, res *Resolution) (Client, error) {
		return NewOpenAIClient(res.BaseURL, res.Credential, res.ModelName), nil
	})
	reg.Register(ProviderAnthropic, func(ctx context.Context, res *Resolution) (Client, error) {
		return NewAnthropicClient(res.BaseURL, res.Credential, res.ModelName), nil
	})
	reg.Register(ProviderOllama, func(ctx context.Context, res *Resolution) (Client, error) {
		return NewOllamaClient(res.BaseURL, res.ModelName), nil
	})
	return reg
}
