// Package db is a thin persistence abstraction over PostgreSQL (spec
// §4.6): a bounded connection pool, parameterized queries, explicit
// transactions with automatic rollback, and typed helpers for the
// recurring access patterns. It never builds SQL by string concatenation
// from caller input.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// DefaultMaxConns is the pool's default connection bound (spec §4.6).
const DefaultMaxConns = 20

// Config configures the connection pool.
type Config struct {
	URL            string
	MaxConns       int32
	MinConns       int32
	ConnectTimeout time.Duration
}

// DefaultConfig returns Config with spec-mandated defaults applied on top
// of url.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		MaxConns:       DefaultMaxConns,
		ConnectTimeout: 10 * time.Second,
	}
}

// DB wraps a pgxpool.Pool and provides helper methods for database
// operations.
type DB struct {
	pool *pgxpool.Pool
}

// Open creates a new connection pool from cfg, verifying connectivity
// with a ping before returning.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	if poolConfig.MaxConns <= 0 {
		poolConfig.MaxConns = DefaultMaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Pool returns the underlying pgxpool.Pool, for components (e.g. the
// context store's vector queries) that need direct access.
func (db *DB) Pool() *pgxpool.Pool { return db.pool }

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies the database connection is still alive, used by the
// HTTP transport's /readyz handler.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Exec executes a query that doesn't return rows.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return db.pool.Exec(ctx, sql, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return db.pool.Query(ctx, sql, args...)
}

// QueryRow executes a query that returns at most one row — the typed
// single-row fetch helper spec §4.6 calls for.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.pool.QueryRow(ctx, sql, args...)
}

// Count runs an aggregate COUNT(*) query and returns the scalar result —
// the typed aggregate-count helper spec §4.6 calls for.
func (db *DB) Count(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	if err := db.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	return n, nil
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic (re-panicking after rollback).
func (db *DB) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
