package db

import (
	"context"
	"fmt"
)

// Schema returns the DDL for the core tables (spec §6), parameterized by
// the configured embedding dimensionality. The core requires this schema
// to exist; running a migration tool against it is out of scope (spec
// §1) — this is the authoritative definition a migration tool would
// apply, and what EnsureSchema below applies at startup.
func Schema(embeddingDim int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS projects (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name TEXT UNIQUE NOT NULL,
	description TEXT,
	metadata JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS projects_single_primary
	ON projects ((metadata->>'is_primary'))
	WHERE metadata->>'is_primary' = 'true';

CREATE TABLE IF NOT EXISTS sessions (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	display_id TEXT,
	project_id UUID NULL REFERENCES projects(id),
	agent_type TEXT,
	title TEXT,
	description TEXT,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at TIMESTAMPTZ NULL,
	input_tokens BIGINT NOT NULL DEFAULT 0,
	output_tokens BIGINT NOT NULL DEFAULT 0,
	total_tokens BIGINT NOT NULL DEFAULT 0,
	contexts_created INTEGER NOT NULL DEFAULT 0,
	tasks_created INTEGER NOT NULL DEFAULT 0,
	tasks_updated INTEGER NOT NULL DEFAULT 0,
	tasks_completed INTEGER NOT NULL DEFAULT 0,
	metadata JSONB
);

CREATE INDEX IF NOT EXISTS sessions_project_id_idx ON sessions (project_id);

CREATE TABLE IF NOT EXISTS contexts (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	session_id UUID NULL REFERENCES sessions(id),
	context_type TEXT NOT NULL CHECK (context_type IN (
		'code', 'decision', 'error', 'discussion', 'planning',
		'completion', 'milestone', 'reflections', 'handoff'
	)),
	content TEXT NOT NULL,
	tags TEXT[] NOT NULL DEFAULT '{}',
	embedding VECTOR(%d) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS contexts_project_id_idx ON contexts (project_id);
CREATE INDEX IF NOT EXISTS contexts_embedding_idx ON contexts
	USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);

CREATE TABLE IF NOT EXISTS technical_decisions (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	problem TEXT,
	decision TEXT NOT NULL,
	rationale TEXT,
	alternatives_considered TEXT[] NOT NULL DEFAULT '{}',
	impact_level TEXT NOT NULL CHECK (impact_level IN ('low', 'medium', 'high', 'critical')),
	decision_type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active'
		CHECK (status IN ('active', 'deprecated', 'superseded', 'under_review')),
	superseded_by UUID NULL REFERENCES technical_decisions(id),
	outcome TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT superseded_requires_successor
		CHECK (status <> 'superseded' OR superseded_by IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS technical_decisions_project_id_idx ON technical_decisions (project_id);

CREATE TABLE IF NOT EXISTS tasks (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	session_id UUID NULL REFERENCES sessions(id),
	title TEXT NOT NULL,
	description TEXT,
	status TEXT NOT NULL DEFAULT 'todo'
		CHECK (status IN ('todo', 'in_progress', 'blocked', 'completed', 'cancelled')),
	priority TEXT,
	assignee TEXT,
	dependencies UUID[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS tasks_project_id_idx ON tasks (project_id);
`, embeddingDim)
}

// EnsureSchema applies Schema against the pool. Safe to run repeatedly
// (every statement is IF NOT EXISTS / CREATE OR REPLACE-equivalent).
// It then fails if the deployed contexts.embedding column width differs
// from embeddingDim.
func (db *DB) EnsureSchema(ctx context.Context, embeddingDim int) error {
	if _, err := db.pool.Exec(ctx, Schema(embeddingDim)); err != nil {
		return err
	}
	var deployed int
	if err := db.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = 'contexts'::regclass AND attname = 'embedding'`).Scan(&deployed); err != nil {
		return fmt.Errorf("read deployed embedding dimension: %w", err)
	}
	if deployed != embeddingDim {
		return fmt.Errorf("embedding dimension %d does not match deployed schema VECTOR(%d)", embeddingDim, deployed)
	}
	return nil
}
