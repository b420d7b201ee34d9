package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/domain"
)

// CreateSession inserts a new session row, optionally scoped to a
// project.
func (db *DB) CreateSession(ctx context.Context, s *domain.Session) error {
	row := db.pool.QueryRow(ctx, `
		INSERT INTO sessions (display_id, project_id, agent_type, title, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, started_at`,
		s.DisplayID, nullableID(s.ProjectID), s.AgentType, s.Title, s.Description)

	if err := row.Scan(&s.ID, &s.StartedAt); err != nil {
		return aidiserr.Wrap(aidiserr.KindDatabaseError, "insert session", err)
	}
	return nil
}

// GetSession fetches a session by id.
func (db *DB) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT id, display_id, COALESCE(project_id::text, ''), agent_type, title, description,
		       started_at, ended_at, input_tokens, output_tokens, total_tokens,
		       contexts_created, tasks_created, tasks_updated, tasks_completed
		FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// UpdateSessionProject reassigns a session's current project (spec §4.4
// primary-promotion / project-switch flows).
func (db *DB) UpdateSessionProject(ctx context.Context, sessionID, projectID string) error {
	tag, err := db.pool.Exec(ctx, `UPDATE sessions SET project_id = $1 WHERE id = $2`, projectID, sessionID)
	if err != nil {
		return aidiserr.Wrap(aidiserr.KindDatabaseError, "update session project", err)
	}
	if tag.RowsAffected() == 0 {
		return aidiserr.New(aidiserr.KindNotFound, "session not found")
	}
	return nil
}

// EndSession marks a session ended, recording its final counters.
func (db *DB) EndSession(ctx context.Context, s *domain.Session) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE sessions SET ended_at = now(),
			input_tokens = $2, output_tokens = $3, total_tokens = $4,
			contexts_created = $5, tasks_created = $6, tasks_updated = $7, tasks_completed = $8
		WHERE id = $1`,
		s.ID, s.InputTokens, s.OutputTokens, s.TotalTokens,
		s.ContextsCreated, s.TasksCreated, s.TasksUpdated, s.TasksCompleted)
	if err != nil {
		return aidiserr.Wrap(aidiserr.KindDatabaseError, "end session", err)
	}
	if tag.RowsAffected() == 0 {
		return aidiserr.New(aidiserr.KindNotFound, "session not found")
	}
	return nil
}

// FlushSessionCounters persists the in-memory activity counters the
// orchestrator accumulates between periodic flushes (spec §4.4, P10).
func (db *DB) FlushSessionCounters(ctx context.Context, s *domain.Session) error {
	_, err := db.pool.Exec(ctx, `
		UPDATE sessions SET
			input_tokens = $2, output_tokens = $3, total_tokens = $4,
			contexts_created = $5, tasks_created = $6, tasks_updated = $7, tasks_completed = $8
		WHERE id = $1`,
		s.ID, s.InputTokens, s.OutputTokens, s.TotalTokens,
		s.ContextsCreated, s.TasksCreated, s.TasksUpdated, s.TasksCompleted)
	if err != nil {
		return aidiserr.Wrap(aidiserr.KindDatabaseError, "flush session counters", err)
	}
	return nil
}

func nullableID(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}

func scanSession(row rowScanner) (*domain.Session, error) {
	s := &domain.Session{}
	var projectID string
	var endedAt sql.NullTime

	if err := row.Scan(
		&s.ID, &s.DisplayID, &projectID, &s.AgentType, &s.Title, &s.Description,
		&s.StartedAt, &endedAt,
		&s.InputTokens, &s.OutputTokens, &s.TotalTokens,
		&s.ContextsCreated, &s.TasksCreated, &s.TasksUpdated, &s.TasksCompleted,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, aidiserr.New(aidiserr.KindNotFound, "session not found")
		}
		return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "scan session", err)
	}
	s.ProjectID = projectID
	if endedAt.Valid {
		s.EndedAt = &endedAt.Time
	}
	return s, nil
}
