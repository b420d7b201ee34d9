// Package embeddings generates the dense vectors the context store
// writes alongside every context entry and compares during search. The
// embedding dimensionality is a single global constant for a given
// deployment; Validate rejects any vector of a different length before
// it reaches storage.
package embeddings
