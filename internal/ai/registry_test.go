package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/rag-chat/internal/apperr"
)

type echoClient struct{ model string }

func (e echoClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return e.model + ":" + prompt, nil
}

func TestRegistry_RoutesByProvider(t *testing.T) {
	reg := NewRegistry()
	reg.Register(" Fake ", func(ctx context.Context, res *Resolution) (Client, error) {
		return echoClient{model: res.ModelName}, nil
	})

	c, err := reg.Client(context.Background(), &Resolution{Provider: "fake", ModelName: "m1"})
	require.NoError(t, err)
	out, err := c.Generate(context.Background(), "hi", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "m1:hi", out)

	_, err = reg.Client(context.Background(), &Resolution{Provider: "missing"})
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestDefaults_RegistersBuiltins(t *testing.T) {
	reg := Defaults()
	for _, p := range []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOllama} {
		c, err := reg.Client(context.Background(), &Resolution{Provider: p, ModelName: "m", Credential: "k"})
		require.NoError(t, err, p)
		assert.NotNil(t, c, p)
	}
}

func TestOllamaClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaChatReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3:latest", req.Model)
		assert.False(t, req.Stream)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "the prompt", req.Messages[0].Content)
		}
		if assert.NotNil(t, req.Options) {
			assert.Equal(t, 64, req.Options.NumPredict)
		}
		_ = json.NewEncoder(w).Encode(ollamaChatResp{Message: ollamaMsg{Role: "assistant", Content: "local answer"}})
	}))
	defer srv.Close()

	out, err := NewOllamaClient(srv.URL, "").Generate(context.Background(), "the prompt", GenerationParams{MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "local answer", out)
}

func TestOllamaClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model is loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, "m").Generate(context.Background(), "p", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model is loading")
}

func TestOpenAIClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "openrouter/auto", req["model"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"cloud answer"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	out, err := NewOpenAIClient(srv.URL, "test-key", "openrouter/auto").Generate(context.Background(), "p", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "cloud answer", out)
}

func TestGeminiClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		body, _ := json.Marshal(req)
		assert.Contains(t, string(body), "the prompt")
		assert.Contains(t, string(body), `"maxOutputTokens":128`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"gemini "},{"text":"answer"}]},"finishReason":1,"index":0}]}`))
	}))
	defer srv.Close()

	out, err := NewGeminiClient(srv.URL, "test-key", "gemini-test").Generate(context.Background(), "the prompt", GenerationParams{MaxTokens: 128})
	require.NoError(t, err)
	assert.Equal(t, "gemini answer", out)
}

func TestGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient("", " ", "").Generate(context.Background(), "p", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key is required")
}

func TestAnthropicClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		var req struct {
			Model     string  `json:"model"`
			MaxTokens int     `json:"max_tokens"`
			TopP      float64 `json:"top_p"`
			Messages  []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Equal(t, defaultAnthropicMaxTokens, req.MaxTokens)
		assert.InDelta(t, 0.5, req.TopP, 1e-6)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "user", req.Messages[0].Role)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test","content":[{"type":"text","text":"claude answer"}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`))
	}))
	defer srv.Close()

	topP := float32(0.5)
	out, err := NewAnthropicClient(srv.URL, "test-key", "claude-test").Generate(context.Background(), "the prompt", GenerationParams{TopP: &topP})
	require.NoError(t, err)
	assert.Equal(t, "claude answer", out)
}

func TestAnthropicClient_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_2","type":"message","role":"assistant","model":"claude-test","content":[],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":0}}`))
	}))
	defer srv.Close()

	_, err := NewAnthropicClient(srv.URL, "test-key", "claude-test").Generate(context.Background(), "p", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}
