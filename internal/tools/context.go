package tools

import (
	"context"

	"github.com/fyrsmithlabs/aidis/internal/catalog"
	"github.com/fyrsmithlabs/aidis/internal/contextstore"
	"github.com/fyrsmithlabs/aidis/internal/dispatcher"
	"github.com/fyrsmithlabs/aidis/internal/domain"
	"github.com/fyrsmithlabs/aidis/internal/orchestrator"
)

func contextstoreSearchOptions(args map[string]interface{}) contextstore.SearchOptions {
	return contextstore.SearchOptions{
		ContextType: stringArg(args, "type"),
		Limit:       intArg(args, "limit", 10),
	}
}

func contextTypeEnum() []string {
	out := make([]string, len(domain.ValidContextTypes))
	for i, t := range domain.ValidContextTypes {
		out[i] = string(t)
	}
	return out
}

func registerContextTools(d *dispatcher.Dispatcher, deps Deps) {
	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "context_store",
		Description: "Stores a new context entry, embedding its content for later similarity search.",
		Category:    catalog.CategoryContext,
		Schema: catalog.Schema{Fields: []catalog.Field{
			{Name: "projectId", Type: catalog.TypeString},
			{Name: "type", Type: catalog.TypeEnum, Required: true, EnumValues: contextTypeEnum()},
			{Name: "content", Type: catalog.TypeString, Required: true},
			{Name: "tags", Type: catalog.TypeArray, ElementType: catalog.TypeString},
		}},
	})
	mustRegisterHandler(d, "context_store", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		entry := &domain.ContextEntry{
			ProjectID: stringArg(args, "projectId"),
			Type:      domain.ContextType(stringArg(args, "type")),
			Content:   stringArg(args, "content"),
			Tags:      stringSliceArg(args, "tags"),
		}
		if err := deps.Store.StoreContext(ctx, entry); err != nil {
			return nil, err
		}
		_ = deps.Orchestrator.RecordActivity(sessionKey, orchestrator.ActivityContextCreated, 1)
		return entry, nil
	})

	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "context_search",
		Description: "Finds context entries most similar to a query, scoped to one project.",
		Category:    catalog.CategoryContext,
		Schema: catalog.Schema{Fields: []catalog.Field{
			{Name: "projectId", Type: catalog.TypeString},
			{Name: "query", Type: catalog.TypeString, Required: true},
			{Name: "type", Type: catalog.TypeEnum, EnumValues: contextTypeEnum()},
			{Name: "limit", Type: catalog.TypeInteger, Default: 10, Min: f(1), Max: f(100)},
		}},
	})
	mustRegisterHandler(d, "context_search", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		opts := contextstoreSearchOptions(args)
		return deps.Store.Search(ctx, stringArg(args, "projectId"), stringArg(args, "query"), opts)
	})

	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "context_get_recent",
		Description: "Returns the most recently stored context entries for a project.",
		Category:    catalog.CategoryContext,
		Schema: catalog.Schema{Fields: []catalog.Field{
			{Name: "projectId", Type: catalog.TypeString},
			{Name: "limit", Type: catalog.TypeInteger, Default: 10, Min: f(1), Max: f(100)},
		}},
	})
	mustRegisterHandler(d, "context_get_recent", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		return deps.Store.GetRecent(ctx, stringArg(args, "projectId"), intArg(args, "limit", 10))
	})

	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "context_stats",
		Description: "Reports context entry counts for a project, broken down by type.",
		Category:    catalog.CategoryContext,
		Schema: catalog.Schema{Fields: []catalog.Field{
			{Name: "projectId", Type: catalog.TypeString},
		}},
	})
	mustRegisterHandler(d, "context_stats", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		return deps.Store.Stats(ctx, stringArg(args, "projectId"))
	})
}
