package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/domain"
)

// ErrNoRows is returned by single-row fetch helpers when no row matches.
var ErrNoRows = pgx.ErrNoRows

// CreateProject inserts a new project. Fails with Conflict if the name
// is already taken.
func (db *DB) CreateProject(ctx context.Context, p *domain.Project) error {
	meta, err := json.Marshal(metadataWithPrimary(p.Metadata, p.IsPrimary))
	if err != nil {
		return aidiserr.Wrap(aidiserr.KindInternalError, "marshal project metadata", err)
	}

	row := db.pool.QueryRow(ctx, `
		INSERT INTO projects (name, description, metadata)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Description, meta)

	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return aidiserr.New(aidiserr.KindConflict, fmt.Sprintf("project %q already exists", p.Name))
		}
		return aidiserr.Wrap(aidiserr.KindDatabaseError, "insert project", err)
	}
	return nil
}

// GetProject fetches one project by id.
func (db *DB) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT id, name, description, metadata, created_at, updated_at
		FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

// GetProjectByName fetches one project by its unique name.
func (db *DB) GetProjectByName(ctx context.Context, name string) (*domain.Project, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT id, name, description, metadata, created_at, updated_at
		FROM projects WHERE name = $1`, name)
	return scanProject(row)
}

// GetPrimaryProject returns the project flagged is_primary=true, or a
// NotFound AIDISError if none is.
func (db *DB) GetPrimaryProject(ctx context.Context) (*domain.Project, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT id, name, description, metadata, created_at, updated_at
		FROM projects WHERE metadata->>'is_primary' = 'true'
		LIMIT 1`)
	return scanProject(row)
}

// ListProjects returns all projects, unordered (spec §4.4 cascade step 4
// reads this as "an unordered scan").
func (db *DB) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, name, description, metadata, created_at, updated_at FROM projects`)
	if err != nil {
		return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "list projects", err)
	}
	defer rows.Close()

	var out []*domain.Project
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PromoteToPrimary atomically clears the current primary (if any) and
// sets projectID as the new primary, in one transaction (spec §3, §4.4,
// property P6).
func (db *DB) PromoteToPrimary(ctx context.Context, projectID string) error {
	return db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE projects SET metadata = metadata - 'is_primary', updated_at = now()
			WHERE metadata->>'is_primary' = 'true'`); err != nil {
			return aidiserr.Wrap(aidiserr.KindDatabaseError, "clear previous primary", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE projects SET metadata = jsonb_set(metadata, '{is_primary}', 'true', true), updated_at = now()
			WHERE id = $1`, projectID)
		if err != nil {
			return aidiserr.Wrap(aidiserr.KindDatabaseError, "set new primary", err)
		}
		if tag.RowsAffected() == 0 {
			return aidiserr.New(aidiserr.KindNotFound, "project not found")
		}
		return nil
	})
}

func metadataWithPrimary(meta map[string]string, isPrimary bool) map[string]interface{} {
	out := make(map[string]interface{}, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	if isPrimary {
		out["is_primary"] = "true"
	}
	return out
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	p := &domain.Project{}
	var metaRaw []byte
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &metaRaw, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, aidiserr.New(aidiserr.KindNotFound, "project not found")
		}
		return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "scan project", err)
	}
	applyProjectMetadata(p, metaRaw)
	return p, nil
}

func scanProjectRow(rows pgx.Rows) (*domain.Project, error) {
	p := &domain.Project{}
	var metaRaw []byte
	if err := rows.Scan(&p.ID, &p.Name, &p.Description, &metaRaw, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "scan project row", err)
	}
	applyProjectMetadata(p, metaRaw)
	return p, nil
}

func applyProjectMetadata(p *domain.Project, raw []byte) {
	meta := map[string]interface{}{}
	_ = json.Unmarshal(raw, &meta)
	p.Metadata = map[string]string{}
	for k, v := range meta {
		if k == "is_primary" {
			if s, ok := v.(string); ok && s == "true" {
				p.IsPrimary = true
			}
			// PromoteToPrimary's jsonb_set stores a JSON boolean.
			if b, ok := v.(bool); ok && b {
				p.IsPrimary = true
			}
			continue
		}
		if s, ok := v.(string); ok {
			p.Metadata[k] = s
		}
	}
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
