package tools

import (
	"context"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/catalog"
	"github.com/fyrsmithlabs/aidis/internal/dispatcher"
	"github.com/fyrsmithlabs/aidis/internal/domain"
)

func registerProjectTools(d *dispatcher.Dispatcher, deps Deps) {
	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "project_create",
		Description: "Creates a new project workspace.",
		Category:    catalog.CategoryProject,
		Schema: catalog.Schema{Fields: []catalog.Field{
			{Name: "name", Type: catalog.TypeString, Required: true},
			{Name: "description", Type: catalog.TypeString},
		}},
	})
	mustRegisterHandler(d, "project_create", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		p := &domain.Project{Name: stringArg(args, "name"), Description: stringArg(args, "description")}
		if err := deps.DB.CreateProject(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	})

	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "project_switch",
		Description: "Sets this session's current project explicitly, overriding cascade resolution.",
		Category:    catalog.CategoryProject,
		Schema: catalog.Schema{Fields: []catalog.Field{
			{Name: "projectName", Type: catalog.TypeString, Required: true, Aliases: []string{"project", "name"}},
		}},
	})
	mustRegisterHandler(d, "project_switch", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		p, err := deps.DB.GetProjectByName(ctx, stringArg(args, "projectName"))
		if err != nil {
			return nil, err
		}
		if err := deps.Orchestrator.SetCurrentProject(sessionKey, p.ID); err != nil {
			return nil, err
		}
		return p, nil
	})

	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "project_promote_to_primary",
		Description: "Flags a project as primary, clearing any previous primary and every session's cached current project (property P6).",
		Category:    catalog.CategoryProject,
		Schema: catalog.Schema{Fields: []catalog.Field{
			{Name: "projectId", Type: catalog.TypeString, Required: true},
		}},
	})
	mustRegisterHandler(d, "project_promote_to_primary", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		projectID := stringArg(args, "projectId")
		if projectID == "" {
			return nil, aidiserr.New(aidiserr.KindValidation, "projectId is required")
		}
		if err := deps.Orchestrator.PromoteProjectToPrimary(ctx, projectID); err != nil {
			return nil, err
		}
		deps.Invalidator.PublishInvalidateAll()
		return deps.DB.GetProject(ctx, projectID)
	})

	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "project_list",
		Description: "Lists every project.",
		Category:    catalog.CategoryProject,
		Schema:      catalog.Schema{},
	})
	mustRegisterHandler(d, "project_list", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		return deps.DB.ListProjects(ctx)
	})
}
