package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/domain"
)

// CreateTask inserts a new task. Dependency cycle checking happens in
// the caller (internal/tools) before this is reached, since it needs
// the full project task graph in memory.
func (db *DB) CreateTask(ctx context.Context, t *domain.Task) error {
	row := db.pool.QueryRow(ctx, `
		INSERT INTO tasks (project_id, session_id, title, description, status, priority, assignee, dependencies)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		t.ProjectID, nullableID(t.SessionID), t.Title, t.Description,
		string(defaultTaskStatus(t.Status)), t.Priority, t.Assignee, t.Dependencies)

	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return aidiserr.Wrap(aidiserr.KindDatabaseError, "insert task", err)
	}
	return nil
}

// UpdateTaskStatus transitions a task's status.
func (db *DB) UpdateTaskStatus(ctx context.Context, projectID, id string, status domain.TaskStatus) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE tasks SET status = $3, updated_at = now()
		WHERE project_id = $1 AND id = $2`, projectID, id, string(status))
	if err != nil {
		return aidiserr.Wrap(aidiserr.KindDatabaseError, "update task status", err)
	}
	if tag.RowsAffected() == 0 {
		return aidiserr.New(aidiserr.KindNotFound, "task not found")
	}
	return nil
}

// GetTask fetches one task by id, scoped to projectID.
func (db *DB) GetTask(ctx context.Context, projectID, id string) (*domain.Task, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT id, project_id, COALESCE(session_id::text, ''), title, description, status,
		       priority, assignee, dependencies, created_at, updated_at
		FROM tasks WHERE project_id = $1 AND id = $2`, projectID, id)
	return scanTask(row)
}

// ListTasks lists all tasks for a project, used by the caller to build
// the dependency graph for cycle detection before CreateTask runs.
func (db *DB) ListTasks(ctx context.Context, projectID string) ([]*domain.Task, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, project_id, COALESCE(session_id::text, ''), title, description, status,
		       priority, assignee, dependencies, created_at, updated_at
		FROM tasks WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "list tasks", err)
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func defaultTaskStatus(s domain.TaskStatus) domain.TaskStatus {
	if s == "" {
		return domain.TaskTodo
	}
	return s
}

func scanTask(row rowScanner) (*domain.Task, error) {
	t := &domain.Task{}
	var status string
	if err := row.Scan(
		&t.ID, &t.ProjectID, &t.SessionID, &t.Title, &t.Description, &status,
		&t.Priority, &t.Assignee, &t.Dependencies, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, aidiserr.New(aidiserr.KindNotFound, "task not found")
		}
		return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "scan task", err)
	}
	t.Status = domain.TaskStatus(status)
	return t, nil
}
