package service

import "context"

// ModelInvoker defines the model invocation capability consumed by the
// pipeline. Implemented by the model package against an OpenAI-compatible
// gateway.
type ModelInvoker interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
	GenerateWithImage(ctx context.Context, model, prompt string, image []byte, mimeType string) (string, error)
	Embed(ctx context.Context, model, text string) ([]float32, error)
}
