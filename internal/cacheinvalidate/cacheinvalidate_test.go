package cacheinvalidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestConnect_EmptyURLReturnsDisabledInvalidator(t *testing.T) {
	inv, err := Connect("", zap.NewNop())
	assert.NoError(t, err)
	assert.False(t, inv.Enabled())
}

func TestDisabledInvalidator_PublishIsNoOp(t *testing.T) {
	inv, err := Connect("", zap.NewNop())
	assert.NoError(t, err)
	assert.NotPanics(t, func() { inv.PublishInvalidateAll() })
}

func TestDisabledInvalidator_SubscribeReturnsNoOpUnsubscribe(t *testing.T) {
	inv, err := Connect("", zap.NewNop())
	assert.NoError(t, err)
	called := false
	unsub, err := inv.Subscribe(func() { called = true })
	assert.NoError(t, err)
	assert.NotNil(t, unsub)
	unsub()
	assert.False(t, called)
}

func TestDisabledInvalidator_CloseIsNoOp(t *testing.T) {
	inv, err := Connect("", zap.NewNop())
	assert.NoError(t, err)
	assert.NotPanics(t, func() { inv.Close() })
}
