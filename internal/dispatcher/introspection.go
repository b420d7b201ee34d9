package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/catalog"
)

// registerIntrospection wires the five fixed introspection tools every
// deployment exposes regardless of which domain tools are registered
// (spec §3's "Tool catalog introspection" component).
func (d *Dispatcher) registerIntrospection() {
	introspectionTools := []*catalog.ToolDefinition{
		{
			Name:        "aidis_help",
			Description: "Lists every registered tool as one flat list, or only the given category's tools; the listing is not grouped by category.",
			Category:    catalog.CategoryIntrospection,
			Schema:      catalog.Schema{Fields: []catalog.Field{{Name: "category", Type: catalog.TypeString}}},
		},
		{
			Name:        "aidis_explain",
			Description: "Describes one tool's schema, categories, and constraints in detail.",
			Category:    catalog.CategoryIntrospection,
			Schema:      catalog.Schema{Fields: []catalog.Field{{Name: "tool", Type: catalog.TypeString, Required: true}}},
		},
		{
			Name:        "aidis_examples",
			Description: "Returns worked example invocations for one tool.",
			Category:    catalog.CategoryIntrospection,
			Schema:      catalog.Schema{Fields: []catalog.Field{{Name: "tool", Type: catalog.TypeString, Required: true}}},
		},
		{
			Name:        "aidis_ping",
			Description: "Liveness check; always succeeds once the process accepts requests.",
			Category:    catalog.CategoryIntrospection,
			Schema:      catalog.Schema{Fields: []catalog.Field{{Name: "message", Type: catalog.TypeString}}},
		},
		{
			Name:        "aidis_status",
			Description: "Reports process-level status: tool count, active session count, uptime.",
			Category:    catalog.CategoryIntrospection,
			Schema:      catalog.Schema{},
		},
	}

	for _, t := range introspectionTools {
		d.catalog.MustRegister(t)
	}

	d.handlers["aidis_help"] = d.handleHelp
	d.handlers["aidis_explain"] = d.handleExplain
	d.handlers["aidis_examples"] = d.handleExamples
	d.handlers["aidis_ping"] = d.handlePing
	d.handlers["aidis_status"] = d.handleStatus
}

func (d *Dispatcher) handleHelp(_ context.Context, _ string, args map[string]interface{}) (interface{}, error) {
	if category, ok := args["category"].(string); ok && category != "" {
		return d.catalog.ListByCategory(catalog.Category(category)), nil
	}
	return d.catalog.List(), nil
}

func (d *Dispatcher) handleExplain(_ context.Context, _ string, args map[string]interface{}) (interface{}, error) {
	name, _ := args["tool"].(string)
	tool, ok := d.catalog.Get(name)
	if !ok {
		return nil, aidiserr.New(aidiserr.KindUnknownTool, fmt.Sprintf("unknown tool %q", name))
	}
	return tool, nil
}

func (d *Dispatcher) handleExamples(_ context.Context, _ string, args map[string]interface{}) (interface{}, error) {
	name, _ := args["tool"].(string)
	tool, ok := d.catalog.Get(name)
	if !ok {
		return nil, aidiserr.New(aidiserr.KindUnknownTool, fmt.Sprintf("unknown tool %q", name))
	}
	return tool.Examples, nil
}

func (d *Dispatcher) handlePing(_ context.Context, _ string, args map[string]interface{}) (interface{}, error) {
	result := map[string]interface{}{"status": "ok"}
	if message, ok := args["message"].(string); ok && message != "" {
		result["message"] = message
	}
	return result, nil
}

func (d *Dispatcher) handleStatus(ctx context.Context, _ string, _ map[string]interface{}) (interface{}, error) {
	var databaseConnected interface{}
	if d.dbPing != nil {
		databaseConnected = d.dbPing(ctx) == nil
	}
	return map[string]interface{}{
		"toolCount":         d.catalog.Count(),
		"activeSessions":    d.orchestrator.ActiveSessionCount(),
		"uptime":            time.Since(d.startTime).String(),
		"databaseConnected": databaseConnected,
	}, nil
}
