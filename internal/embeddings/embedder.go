package embeddings

import (
	"context"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
)

// Embedder turns text into a dense vector. All implementations must
// return vectors of a fixed Dimension() regardless of input.
type Embedder interface {
	// EmbedQuery embeds a single piece of text.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimension is the length of every vector this Embedder returns.
	Dimension() int
}

// Validate checks vec has the expected dimensionality, returning an
// EmbeddingDimensionMismatch error (spec §7, invariant P8) if not.
func Validate(vec []float32, expectedDim int) error {
	if len(vec) != expectedDim {
		return aidiserr.New(aidiserr.KindEmbeddingDimensionMismatch,
			"embedding dimension mismatch")
	}
	return nil
}
