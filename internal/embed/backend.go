// Package embed turns text into fixed-length vectors. A Service wraps one
// Backend, initialises it once and keeps the vector length constant.
package embed

import "context"

type Backend interface {
	// Name identifies the backend and model, e.g. "ollama:nomic-embed-text".
	Name() string
	// Init loads or warms the model. It may be slow and is called once per
	// successful start.
	Init(ctx context.Context) error
	Embed(ctx context.Context, text string) ([]float32, error)
}
