package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiClient struct {
	BaseURL string
	APIKey  string
	Model   string
}

// NewGeminiClient talks to the public endpoint unless baseURL is set.
func NewGeminiClient(baseURL, apiKey, model string) *GeminiClient {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiClient{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, Model: model}
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if strings.TrimSpace(g.APIKey) == "" {
		return "", errors.New("gemini: api key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(g.APIKey)}
	if g.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(g.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel(g.Model)
	if params.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(params.MaxTokens))
	}
	if params.Temperature != nil {
		model.SetTemperature(*params.Temperature)
	}
	if params.TopP != nil {
		model.SetTopP(*params.TopP)
	}

	rsp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil || len(rsp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: empty response")
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}
