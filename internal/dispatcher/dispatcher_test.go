package dispatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/catalog"
	"github.com/fyrsmithlabs/aidis/internal/orchestrator"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	cat := catalog.New()
	orch := orchestrator.New(nil)
	return New(cat, orch, zap.NewNop())
}

func TestDispatch_UnknownToolReturnsUnknownToolError(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Dispatch(context.Background(), "s1", "no_such_tool", map[string]interface{}{})
	require.Error(t, err)
	ae, ok := aidiserr.As(err)
	require.True(t, ok)
	assert.Equal(t, aidiserr.KindUnknownTool, ae.Kind)
}

func TestDispatch_AidisPingSucceeds(t *testing.T) {
	d := newTestDispatcher(t)
	res, err := d.Dispatch(context.Background(), "s1", "aidis_ping", map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "aidis_ping", res.ToolName)
}

func TestDispatch_AidisHelpListsRegisteredTools(t *testing.T) {
	d := newTestDispatcher(t)
	res, err := d.Dispatch(context.Background(), "s1", "aidis_help", map[string]interface{}{})
	require.NoError(t, err)
	tools, ok := res.Value.([]*catalog.ToolDefinition)
	require.True(t, ok)
	assert.NotEmpty(t, tools)
}

func TestDispatch_AidisExplainUnknownToolFails(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Dispatch(context.Background(), "s1", "aidis_explain", map[string]interface{}{"tool": "bogus"})
	require.Error(t, err)
}

func TestDispatch_ValidationFailureShortCircuitsHandler(t *testing.T) {
	d := newTestDispatcher(t)
	require.NoError(t, d.catalog.Register(&catalog.ToolDefinition{
		Name:        "widget_create",
		Description: "creates a widget",
		Schema:      catalog.Schema{Fields: []catalog.Field{{Name: "title", Type: catalog.TypeString, Required: true}}},
	}))

	called := false
	require.NoError(t, d.Register("widget_create", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		called = true
		return nil, nil
	}))

	_, err := d.Dispatch(context.Background(), "s1", "widget_create", map[string]interface{}{})
	require.Error(t, err)
	assert.False(t, called, "handler must not run when validation fails")
}

func TestDispatch_RegisterUnknownToolNameFails(t *testing.T) {
	d := newTestDispatcher(t)
	err := d.Register("never_registered", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		return nil, nil
	})
	require.Error(t, err)
}

func TestDispatch_ToolWithNoHandlerReturnsInternalError(t *testing.T) {
	d := newTestDispatcher(t)
	require.NoError(t, d.catalog.Register(&catalog.ToolDefinition{
		Name:        "orphan_tool",
		Description: "registered in the catalog but never bound to a handler",
	}))

	_, err := d.Dispatch(context.Background(), "s1", "orphan_tool", map[string]interface{}{})
	require.Error(t, err)
	ae, ok := aidiserr.As(err)
	require.True(t, ok)
	assert.Equal(t, aidiserr.KindInternalError, ae.Kind)
}
