// Package contextstore implements the context.store / context.search /
// context.get_recent / context.stats operations (spec §4.5): every
// context entry is embedded once, validated against the deployment's
// fixed embedding dimension, and written once — contexts are never
// updated, only inserted. Search is always scoped to one project_id
// (spec §7, invariant P7): there is no cross-project query path in this
// package.
package contextstore

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/db"
	"github.com/fyrsmithlabs/aidis/internal/domain"
	"github.com/fyrsmithlabs/aidis/internal/embeddings"
)

// Store is the context store: embed, validate, insert, search.
type Store struct {
	db       *db.DB
	embedder embeddings.Embedder
	dim      int
}

// New builds a Store. dim must match the embedder's Dimension() and the
// database's configured VECTOR(dim) column width.
func New(database *db.DB, embedder embeddings.Embedder, dim int) *Store {
	return &Store{db: database, embedder: embedder, dim: dim}
}

// StoreContext embeds content and inserts a new, immutable context
// entry. Returns EmbeddingDimensionMismatch if the embedder's output
// doesn't match the store's configured dimension.
func (s *Store) StoreContext(ctx context.Context, entry *domain.ContextEntry) error {
	if !domain.IsValidContextType(string(entry.Type)) {
		return aidiserr.New(aidiserr.KindValidation, fmt.Sprintf("invalid context type %q", entry.Type))
	}

	vec, err := s.embedder.EmbedQuery(ctx, entry.Content)
	if err != nil {
		return err
	}
	if err := embeddings.Validate(vec, s.dim); err != nil {
		return err
	}

	row := s.db.Pool().QueryRow(ctx, `
		INSERT INTO contexts (project_id, session_id, context_type, content, tags, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		entry.ProjectID, nullableID(entry.SessionID), string(entry.Type), entry.Content,
		entry.Tags, pgvector.NewVector(vec))

	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return aidiserr.Wrap(aidiserr.KindDatabaseError, "insert context", err)
	}
	entry.Embedding = vec
	return nil
}

// SearchOptions narrows a similarity search.
type SearchOptions struct {
	ContextType string // empty means any type
	Limit       int    // defaults to 10
	MinScore    float64
}

// Search embeds query and returns the projectID-scoped contexts most
// similar to it, ordered by descending similarity. No option of this
// struct can widen the scope beyond projectID — there is no
// cross-project variant of this method (spec §7, P7).
func (s *Store) Search(ctx context.Context, projectID, query string, opts SearchOptions) ([]*domain.ContextEntry, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := embeddings.Validate(vec, s.dim); err != nil {
		return nil, err
	}

	sql := `
		SELECT id, project_id, COALESCE(session_id::text, ''), context_type, content, tags, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM contexts
		WHERE project_id = $2`
	args := []interface{}{pgvector.NewVector(vec), projectID}

	if opts.ContextType != "" {
		sql += fmt.Sprintf(" AND context_type = $%d", len(args)+1)
		args = append(args, opts.ContextType)
	}
	if opts.MinScore > 0 {
		sql += fmt.Sprintf(" AND 1 - (embedding <=> $1) >= $%d", len(args)+1)
		args = append(args, opts.MinScore)
	}
	sql += fmt.Sprintf(" ORDER BY embedding <=> $1, created_at DESC LIMIT $%d", len(args)+1)
	args = append(args, opts.Limit)

	rows, err := s.db.Pool().Query(ctx, sql, args...)
	if err != nil {
		return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "context search", err)
	}
	defer rows.Close()

	var out []*domain.ContextEntry
	for rows.Next() {
		e := &domain.ContextEntry{}
		var contextType string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.SessionID, &contextType, &e.Content, &e.Tags, &e.CreatedAt, &e.Similarity); err != nil {
			return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "scan context search row", err)
		}
		e.Type = domain.ContextType(contextType)
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetRecent returns the most recently stored contexts for projectID,
// newest first.
func (s *Store) GetRecent(ctx context.Context, projectID string, limit int) ([]*domain.ContextEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Pool().Query(ctx, `
		SELECT id, project_id, COALESCE(session_id::text, ''), context_type, content, tags, created_at
		FROM contexts WHERE project_id = $1
		ORDER BY created_at DESC LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "get recent contexts", err)
	}
	defer rows.Close()

	var out []*domain.ContextEntry
	for rows.Next() {
		e := &domain.ContextEntry{}
		var contextType string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.SessionID, &contextType, &e.Content, &e.Tags, &e.CreatedAt); err != nil {
			return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "scan recent context row", err)
		}
		e.Type = domain.ContextType(contextType)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats is the per-project aggregate context.stats reports.
type Stats struct {
	TotalContexts int64
	ByType        map[string]int64
}

// Stats aggregates the context counts for projectID.
func (s *Store) Stats(ctx context.Context, projectID string) (*Stats, error) {
	total, err := s.db.Count(ctx, `SELECT COUNT(*) FROM contexts WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "count contexts", err)
	}

	rows, err := s.db.Pool().Query(ctx, `
		SELECT context_type, COUNT(*) FROM contexts WHERE project_id = $1 GROUP BY context_type`, projectID)
	if err != nil {
		return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "count contexts by type", err)
	}
	defer rows.Close()

	byType := map[string]int64{}
	for rows.Next() {
		var t string
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			return nil, aidiserr.Wrap(aidiserr.KindDatabaseError, "scan context stats row", err)
		}
		byType[t] = n
	}

	return &Stats{TotalContexts: total, ByType: byType}, rows.Err()
}

func nullableID(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}
