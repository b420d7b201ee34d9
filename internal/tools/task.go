package tools

import (
	"context"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/catalog"
	"github.com/fyrsmithlabs/aidis/internal/dispatcher"
	"github.com/fyrsmithlabs/aidis/internal/domain"
	"github.com/fyrsmithlabs/aidis/internal/orchestrator"
)

func taskStatusEnum() []string {
	return []string{
		string(domain.TaskTodo), string(domain.TaskInProgress), string(domain.TaskBlocked),
		string(domain.TaskCompleted), string(domain.TaskCancelled),
	}
}

func registerTaskTools(d *dispatcher.Dispatcher, deps Deps) {
	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "task_create",
		Description: "Creates a task. Dependencies must not introduce a cycle in the project's task graph.",
		Category:    catalog.CategoryTask,
		Schema: catalog.Schema{Fields: []catalog.Field{
			{Name: "projectId", Type: catalog.TypeString},
			{Name: "title", Type: catalog.TypeString, Required: true},
			{Name: "description", Type: catalog.TypeString},
			{Name: "priority", Type: catalog.TypeString},
			{Name: "assignee", Type: catalog.TypeString},
			{Name: "dependencies", Type: catalog.TypeArray, ElementType: catalog.TypeString},
		}},
	})
	mustRegisterHandler(d, "task_create", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		projectID := stringArg(args, "projectId")
		candidateDeps := stringSliceArg(args, "dependencies")

		if len(candidateDeps) > 0 {
			existing, err := deps.DB.ListTasks(ctx, projectID)
			if err != nil {
				return nil, err
			}
			candidateID := uuid.NewString()
			if domain.HasCycle(existing, candidateID, candidateDeps) {
				return nil, aidiserr.New(aidiserr.KindValidation, "task dependencies introduce a cycle")
			}
		}

		t := &domain.Task{
			ProjectID:    projectID,
			Title:        stringArg(args, "title"),
			Description:  stringArg(args, "description"),
			Priority:     stringArg(args, "priority"),
			Assignee:     stringArg(args, "assignee"),
			Dependencies: candidateDeps,
			Status:       domain.TaskTodo,
		}
		if err := deps.DB.CreateTask(ctx, t); err != nil {
			return nil, err
		}
		_ = deps.Orchestrator.RecordActivity(sessionKey, orchestrator.ActivityTaskCreated, 1)
		return t, nil
	})

	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "task_update",
		Description: "Transitions a task's status.",
		Category:    catalog.CategoryTask,
		Schema: catalog.Schema{Fields: []catalog.Field{
			{Name: "projectId", Type: catalog.TypeString},
			{Name: "taskId", Type: catalog.TypeString, Required: true},
			{Name: "status", Type: catalog.TypeEnum, Required: true, EnumValues: taskStatusEnum()},
		}},
	})
	mustRegisterHandler(d, "task_update", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		projectID := stringArg(args, "projectId")
		taskID := stringArg(args, "taskId")
		status := domain.TaskStatus(stringArg(args, "status"))

		if status == domain.TaskCompleted {
			t, err := deps.DB.GetTask(ctx, projectID, taskID)
			if err != nil {
				return nil, err
			}
			for _, depID := range t.Dependencies {
				dep, err := deps.DB.GetTask(ctx, projectID, depID)
				if err != nil {
					return nil, err
				}
				if dep.Status != domain.TaskCompleted && dep.Status != domain.TaskCancelled {
					return nil, aidiserr.New(aidiserr.KindConflict, "task has incomplete dependencies")
				}
			}
		}

		if err := deps.DB.UpdateTaskStatus(ctx, projectID, taskID, status); err != nil {
			return nil, err
		}

		kind := orchestrator.ActivityTaskUpdated
		if status == domain.TaskCompleted {
			kind = orchestrator.ActivityTaskCompleted
		}
		_ = deps.Orchestrator.RecordActivity(sessionKey, kind, 1)
		return deps.DB.GetTask(ctx, projectID, taskID)
	})

	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "task_list",
		Description: "Lists tasks for a project.",
		Category:    catalog.CategoryTask,
		Schema: catalog.Schema{Fields: []catalog.Field{
			{Name: "projectId", Type: catalog.TypeString},
		}},
	})
	mustRegisterHandler(d, "task_list", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		return deps.DB.ListTasks(ctx, stringArg(args, "projectId"))
	})
}
