package contextstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/domain"
	"github.com/fyrsmithlabs/aidis/internal/embeddings"
)

func TestStoreContext_RejectsInvalidContextType(t *testing.T) {
	s := New(nil, embeddings.NewFake(8), 8)
	entry := &domain.ContextEntry{ProjectID: "p1", Type: "not-a-type", Content: "x"}

	err := s.StoreContext(context.Background(), entry)
	require.Error(t, err)
	ae, ok := aidiserr.As(err)
	require.True(t, ok)
	assert.Equal(t, aidiserr.KindValidation, ae.Kind)
}

func TestStoreContext_RejectsMismatchedEmbeddingDimension(t *testing.T) {
	// Store is configured for dim 8 but the embedder produces dim 4 —
	// Validate must catch this before any insert is attempted.
	s := New(nil, embeddings.NewFake(4), 8)
	entry := &domain.ContextEntry{ProjectID: "p1", Type: domain.ContextCode, Content: "x"}

	err := s.StoreContext(context.Background(), entry)
	require.Error(t, err)
	ae, ok := aidiserr.As(err)
	require.True(t, ok)
	assert.Equal(t, aidiserr.KindEmbeddingDimensionMismatch, ae.Kind)
}
