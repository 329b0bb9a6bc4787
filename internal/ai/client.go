package ai

import "context"

// Client generates a completion for a fully assembled prompt.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
