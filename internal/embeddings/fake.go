package embeddings

import (
	"context"
	"hash/fnv"
)

// Fake is a deterministic, dependency-free Embedder for tests: the same
// text always produces the same vector, and distinct texts produce
// distinct vectors with high probability, without calling out to any
// embedding service.
type Fake struct {
	dim int
}

// NewFake returns a Fake embedder producing vectors of the given
// dimension.
func NewFake(dim int) *Fake { return &Fake{dim: dim} }

// Dimension returns the configured vector length.
func (f *Fake) Dimension() int { return f.dim }

// EmbedQuery hashes text into a deterministic pseudo-embedding of the
// configured dimension. Never errors.
func (f *Fake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, f.dim)
	h := fnv.New64a()
	for i := range vec {
		h.Reset()
		_, _ = h.Write([]byte(text))
		_, _ = h.Write([]byte{byte(i), byte(i >> 8)})
		sum := h.Sum64()
		// Map to [-1, 1].
		vec[i] = float32(sum%2000)/1000.0 - 1.0
	}
	return vec, nil
}
