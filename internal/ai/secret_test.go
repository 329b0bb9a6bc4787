package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeSecret(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"default", false},
		{"gemini-1.5-flash", false},
		{"gpt-4o-mini", false},
		{"llama3:latest", false},
		{"meta-llama/llama-3.1-70b-instruct", false},
		{"claude-3-5-sonnet-20241022", false},
		{"qwen2.5-coder-32b-instruct-q4_k_m-gguf", false},
		{"AIza" + strings.Repeat("x", 35), true},
		{"sk-proj-abc", true},
		{"sk-ant-api03-xyz", true},
		{"xai-123", true},
		{"ghp_0123456789", true},
		{"Bearer abc.def", true},
		{"Meta-Llama-3-70B-Instruct-Turbo-Free", false},
		{"Qwen2-VL-72B-Instruct-GPTQ-Int4-AWQ", false},
		{"mistralai/Mixtral-8x22B-Instruct-v0.1", false},
		{"AbCdEfGh0123456789AbCdEfGh012345", true},
		{"tok_AbCdEfGh0123456789AbCdEfGh", true},
		{"abcdefghijklmnopqrstuvwxyz0123456789", false},
		{strings.Repeat("a", 129), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LooksLikeSecret(tt.in), "LooksLikeSecret(%q)", tt.in)
	}
}
