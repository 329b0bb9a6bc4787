package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/suPer8Hu/rag-chat/internal/apperr"
)

type RouterConfig struct {
	DefaultModelKey    string
	DefaultModelName   string
	DefaultProvider    string
	FallbackCredential string
	OllamaBaseURL      string
	OpenAIBaseURL      string
}

// Router resolves a client-facing model identifier to a concrete backend.
type Router struct {
	source ModelSource
	cfg    RouterConfig
}

func NewRouter(source ModelSource, cfg RouterConfig) *Router {
	if cfg.DefaultModelKey == "" {
		cfg.DefaultModelKey = "default"
	}
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = ProviderGemini
	}
	return &Router{source: source, cfg: cfg}
}

// ValidateModelKey rejects identifiers that look like secrets.
func ValidateModelKey(requested string) error {
	if LooksLikeSecret(requested) {
		return apperr.Validation("model must be a model identifier, not a credential")
	}
	return nil
}

func (r *Router) Resolve(ctx context.Context, requested string) (*Resolution, error) {
	requested = strings.TrimSpace(requested)
	if err := ValidateModelKey(requested); err != nil {
		return nil, err
	}
	key := requested
	if key == "" {
		key = r.cfg.DefaultModelKey
	}

	mc, err := r.source.FindEnabled(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("model lookup %q: %w", key, err)
	}
	if mc == nil {
		if key != r.cfg.DefaultModelKey || r.cfg.DefaultModelName == "" {
			return nil, apperr.Configuration("no enabled model configuration for %q", key)
		}
		mc = r.deploymentDefault()
	}

	return r.resolution(mc)
}

func (r *Router) deploymentDefault() *ModelConfig {
	typ := BackendCloud
	if strings.EqualFold(r.cfg.DefaultProvider, ProviderOllama) {
		typ = BackendLocal
	}
	return &ModelConfig{
		ModelKey: r.cfg.DefaultModelKey,
		Name:     r.cfg.DefaultModelName,
		Type:     typ,
		Provider: r.cfg.DefaultProvider,
		Enabled:  true,
	}
}

func (r *Router) resolution(mc *ModelConfig) (*Resolution, error) {
	res := &Resolution{
		EffectiveModelKey: mc.ModelKey,
		ModelName:         mc.Name,
		BackendType:       mc.Type,
		Provider:          strings.ToLower(strings.TrimSpace(mc.Provider)),
		Params: GenerationParams{
			MaxTokens:   mc.DefaultMaxTokens,
			Temperature: mc.DefaultTemperature,
			TopP:        mc.DefaultTopP,
		},
	}

	credential := strings.TrimSpace(mc.Credential)
	if credential == "" {
		credential = r.cfg.FallbackCredential
	}

	switch mc.Type {
	case BackendCloud:
		if res.Provider == "" {
			res.Provider = ProviderGemini
		}
		if credential == "" {
			return nil, apperr.Configuration("no credential configured for model %q", mc.ModelKey)
		}
		res.Credential = credential
		res.BaseURL = mc.BaseURL
		if res.BaseURL == "" && res.Provider == ProviderOpenAI {
			res.BaseURL = r.cfg.OpenAIBaseURL
		}
	case BackendLocal:
		if res.Provider == "" {
			res.Provider = ProviderOllama
		}
		res.Credential = credential
		res.BaseURL = mc.BaseURL
		if res.BaseURL == "" {
			res.BaseURL = r.cfg.OllamaBaseURL
		}
	default:
		return nil, apperr.Configuration("unsupported backend type %q", mc.Type)
	}
	return res, nil
}

// PublicModels lists enabled models without credentials.
func (r *Router) PublicModels(ctx context.Context) ([]PublicModel, error) {
	mcs, err := r.source.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PublicModel, 0, len(mcs))
	for _, mc := range mcs {
		out = append(out, PublicModel{
			ModelKey: mc.ModelKey,
			Name:     mc.Name,
			Type:     mc.Type,
			Provider: mc.Provider,
		})
	}
	return out, nil
}
