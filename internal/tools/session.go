package tools

import (
	"context"

	"github.com/fyrsmithlabs/aidis/internal/catalog"
	"github.com/fyrsmithlabs/aidis/internal/dispatcher"
)

func registerSessionTools(d *dispatcher.Dispatcher, deps Deps) {
	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "session_status",
		Description: "Reports this session's resolved current project and activity counters.",
		Category:    catalog.CategorySession,
		Schema:      catalog.Schema{},
	})
	mustRegisterHandler(d, "session_status", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		st, err := deps.Orchestrator.Resolve(ctx, sessionKey)
		if err != nil {
			return nil, err
		}
		return st.View(), nil
	})

	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "session_end",
		Description: "Explicitly ends this session: flushes activity counters and marks it terminal.",
		Category:    catalog.CategorySession,
		Schema:      catalog.Schema{},
	})
	mustRegisterHandler(d, "session_end", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		if err := deps.Orchestrator.End(ctx, sessionKey); err != nil {
			return nil, err
		}
		return map[string]interface{}{"ended": true}, nil
	})
}
