package embed

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
)

// OpenAIBackend embeds through any OpenAI-compatible embeddings endpoint.
type OpenAIBackend struct {
	model  string
	client *openai.Client
}

func NewOpenAIBackend(apiKey, baseURL, model string) *OpenAIBackend {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIBackend{model: model, client: openai.NewClientWithConfig(cfg)}
}

func (e *OpenAIBackend) Name() string { return "openai:" + e.model }

func (e *OpenAIBackend) Init(ctx context.Context) error {
	_, err := e.Embed(ctx, "ping")
	return err
}

func (e *OpenAIBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	rsp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, err
	}

	if len(rsp.Data) == 0 || len(rsp.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding from OpenAI")
	}
	return rsp.Data[0].Embedding, nil
}
