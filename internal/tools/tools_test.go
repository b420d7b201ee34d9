package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/aidis/internal/catalog"
	"github.com/fyrsmithlabs/aidis/internal/dispatcher"
	"github.com/fyrsmithlabs/aidis/internal/orchestrator"
)

func TestRegisterAll_RegistersExpectedToolNames(t *testing.T) {
	cat := catalog.New()
	orch := orchestrator.New(nil)
	d := dispatcher.New(cat, orch, zap.NewNop())

	require.NoError(t, RegisterAll(d, Deps{Orchestrator: orch}))

	expected := []string{
		"context_store", "context_search", "context_get_recent", "context_stats",
		"project_create", "project_switch", "project_promote_to_primary", "project_list",
		"decision_record", "decision_supersede", "decision_list",
		"task_create", "task_update", "task_list",
		"session_status", "session_end",
	}
	for _, name := range expected {
		_, ok := cat.Get(name)
		assert.True(t, ok, "expected %q to be registered", name)
	}
}

func TestStringArg_MissingKeyReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", stringArg(map[string]interface{}{}, "missing"))
}

func TestIntArg_AcceptsJSONFloat64(t *testing.T) {
	assert.Equal(t, 7, intArg(map[string]interface{}{"limit": float64(7)}, "limit", 10))
}

func TestIntArg_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, 10, intArg(map[string]interface{}{}, "limit", 10))
}

func TestStringSliceArg_ConvertsInterfaceSlice(t *testing.T) {
	args := map[string]interface{}{"tags": []interface{}{"a", "b"}}
	assert.Equal(t, []string{"a", "b"}, stringSliceArg(args, "tags"))
}
