package service

import (
	"context"
	"fmt"

	"github.com/veldt-ai/veldt/internal/domain"
)

// Embedder produces fixed-dimension vectors for chunks and queries. Unlike
// tagging, an embedding failure is fatal to the operation requesting it:
// similarity search is impossible without a vector.
type Embedder struct {
	invoker    ModelInvoker
	model      string
	dimensions int
}

// NewEmbedder creates an Embedder bound to one embedding model. The
// configured dimensionality must match what the model emits; re-embedding
// drift across model upgrades is caught by the guard in Embed.
func NewEmbedder(invoker ModelInvoker, model string, dimensions int) *Embedder {
	return &Embedder{
		invoker:    invoker,
		model:      model,
		dimensions: dimensions,
	}
}

// Embed returns the embedding vector for text. Any invocation failure or a
// dimensionality mismatch surfaces as an EMBEDDING_FAILED domain error.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.invoker.Embed(ctx, e.model, text)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingFailed, "embedding generation failed", err)
	}

	if len(vector) != e.dimensions {
		return nil, domain.NewDomainErrorWithCause(
			domain.ErrCodeEmbeddingFailed,
			"embedding dimensionality mismatch",
			fmt.Errorf("model %q returned %d dimensions, expected %d", e.model, len(vector), e.dimensions),
		)
	}

	return vector, nil
}
