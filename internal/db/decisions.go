package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/domain"
)

// CreateDecision records a new technical decision.
func (db *DB) CreateDecision(ctx context.Context, d *domain.TechnicalDecision) error {
	row := db.pool.QueryRow(ctx, `
		INSERT INTO technical_decisions
			(project_id, title, problem, decision, rationale, alternatives_considered,
			 impact_level, decision_type, status, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		d.ProjectID, d.Title, d.Problem, d.Decision, d.Rationale, d.AlternativesConsidered,
		string(d.ImpactLevel), d.DecisionType, string(defaultStatus(d.Status)), d.Outcome)

	if err := row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return aidiserr.Wrap(aidiserr.KindDatabaseError, "insert decision", err)
	}
	return nil
}

// SupersedeDecision marks oldID superseded by newID, in one transaction
// so the superseded_requires_successor constraint never observes a
// window where status=superseded and superseded_by is still NULL.
func (db *DB) SupersedeDecision(ctx context.Context, oldID, newID string) error {
	return db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE technical_decisions SET status = 'superseded', superseded_by = $2, updated_at = now()
			WHERE id = $1`, oldID, newID)
		if err != nil {
			return aidiserr.Wrap(aidiserr.KindDatabaseError, "supersede decision", err)
		}
		if tag.RowsAffected() == 0 {
			return aidiserr.New(aidiserr.KindNotFound, "decision not found")
		}
		return nil
	})
}

// GetDecision fetches one decision by id, scoped to projectID.
func (db *DB) GetDecision(ctx context.Context, projectID, id string) (*domain.TechnicalDecision, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT id, project_id, title, problem, decision, rationale, alternatives_considered,
		       impact_level, decision_type, status, COALESCE(superseded_by::text, ''), outcome,
		       created_at, updated_at
		FROM technical_decisions WHERE project_id = $1 AND id = $2`, projectID, id)
	return scanDecision(row)
}

// ListDecisions lists all decisions for a project (spec §7's
// project-scoping invariant applies here as it does to context search).
func (db *DB) ListDecisions(ctx context.Context, projectID string) ([]*domain.TechnicalDecision, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, project_id, title, problem, decision, rationale, alternatives_considered,
		       impact_level, decision_type, status, COALESCE(superseded_by::text, ''), outcome,
		       created_at, updated_at
		FROM technical_decisions WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "list decisions", err)
	}
	defer rows.Close()

	var out []*domain.TechnicalDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func defaultStatus(s domain.DecisionStatus) domain.DecisionStatus {
	if s == "" {
		return domain.DecisionActive
	}
	return s
}

func scanDecision(row rowScanner) (*domain.TechnicalDecision, error) {
	d := &domain.TechnicalDecision{}
	var impact, status string
	if err := row.Scan(
		&d.ID, &d.ProjectID, &d.Title, &d.Problem, &d.Decision, &d.Rationale, &d.AlternativesConsidered,
		&impact, &d.DecisionType, &status, &d.SupersededBy, &d.Outcome,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, aidiserr.New(aidiserr.KindNotFound, "decision not found")
		}
		return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "scan decision", err)
	}
	d.ImpactLevel = domain.ImpactLevel(impact)
	d.Status = domain.DecisionStatus(status)
	return d, nil
}
