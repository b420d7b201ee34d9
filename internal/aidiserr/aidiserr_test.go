package aidiserr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicMessage_HidesInternalDetail(t *testing.T) {
	e := Wrap(KindDatabaseError, "pq: duplicate key value violates unique constraint", fmt.Errorf("driver detail"))
	assert.Equal(t, "internal error", PublicMessage(e))
	assert.NotContains(t, PublicMessage(e), "duplicate key")
}

func TestPublicMessage_PassesThroughForCallerKinds(t *testing.T) {
	e := Validation("type", "missing", "type is required")
	assert.Equal(t, "type is required", PublicMessage(e))
}

func TestMapping_EveryKindMapped(t *testing.T) {
	kinds := []Kind{
		KindValidation, KindUnknownTool, KindMissingProject, KindNotFound,
		KindConflict, KindEmbeddingUnavailable, KindEmbeddingDimensionMismatch,
		KindTimeout, KindDatabaseError, KindInternalError,
	}
	for _, k := range kinds {
		status := HTTPStatus(k)
		code := RPCCode(k)
		assert.NotZero(t, status, "kind %s missing HTTP mapping", k)
		assert.NotZero(t, code, "kind %s missing RPC mapping", k)
	}
}

func TestMapping_SpecificCodes(t *testing.T) {
	assert.Equal(t, 400, HTTPStatus(KindValidation))
	assert.Equal(t, RPCInvalidParams, RPCCode(KindValidation))
	assert.Equal(t, 404, HTTPStatus(KindUnknownTool))
	assert.Equal(t, RPCMethodNotFound, RPCCode(KindUnknownTool))
	assert.Equal(t, 504, HTTPStatus(KindTimeout))
	assert.Equal(t, 500, HTTPStatus(KindDatabaseError))
	assert.Equal(t, RPCInternalError, RPCCode(KindDatabaseError))
}

func TestOf(t *testing.T) {
	err := New(KindNotFound, "project not found")
	assert.True(t, Of(err, KindNotFound))
	assert.False(t, Of(err, KindConflict))
	assert.False(t, Of(errors.New("plain"), KindNotFound))
}

func TestAs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(KindConflict, "cycle detected"))
	ae, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindConflict, ae.Kind)
}

func TestWrap_CauseNotInMessage(t *testing.T) {
	cause := errors.New("connection refused")
	e := Wrap(KindDatabaseError, "insert failed", cause)
	assert.NotContains(t, e.Error(), "connection refused")
	assert.Equal(t, cause, e.Cause())
	assert.ErrorIs(t, e, cause)
}

func TestValidation_FieldAndReason(t *testing.T) {
	e := Validation("limit", "type_mismatch", "limit must be an integer")
	assert.Equal(t, "limit", e.Field)
	assert.Equal(t, "type_mismatch", e.Reason)
	assert.Contains(t, e.Error(), "field=limit")
}
