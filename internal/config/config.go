// Package config provides configuration loading for aidis.
//
// Configuration layers from lowest to highest precedence: hardcoded
// defaults, an optional YAML file, environment variables, then CLI
// flags (internal/config/loader.go). Config.Validate fails loud on a
// missing database URL or a non-positive embedding dimension, which
// cmd/aidis treats as a fatal startup error (exit code 2). The check of
// the dimension against the deployed schema happens later, in
// db.EnsureSchema.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the complete aidis configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Logging    LoggingConfig    `koanf:"logging"`
	NATS       NATSConfig       `koanf:"nats"`
}

// ServerConfig holds the dual-transport listener configuration (spec §6).
type ServerConfig struct {
	// BindAddr is the HTTP listen address. Default: 127.0.0.1:8080.
	// Binding to a non-loopback address is accepted but documented as
	// unauthenticated (spec §4.1).
	BindAddr string `koanf:"bind_addr"`

	// Stdio enables the JSON-RPC stream transport on stdio, concurrently
	// with the HTTP transport.
	Stdio bool `koanf:"stdio"`

	// ShutdownTimeout bounds how long graceful shutdown waits for
	// in-flight requests to drain before forcing close.
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds Postgres connection configuration.
type DatabaseConfig struct {
	// URL is the Postgres connection string. Required; wrapped in Secret
	// because it typically embeds a password.
	URL Secret `koanf:"url"`

	// MaxConns caps the pgxpool connection pool size.
	MaxConns int `koanf:"max_conns"`

	// ConnectTimeout bounds the initial pool connection attempt.
	ConnectTimeout Duration `koanf:"connect_timeout"`
}

// EmbeddingsConfig holds the embedding client configuration (spec §4.5).
type EmbeddingsConfig struct {
	// BaseURL is the TEI-compatible embedding endpoint.
	BaseURL string `koanf:"base_url"`

	// Model is the embedding model name passed to the client.
	Model string `koanf:"model"`

	// APIKey authenticates against the embedding endpoint, if required.
	APIKey Secret `koanf:"api_key"`

	// Dim is the embedding vector dimension. Must match the deployed
	// schema's VECTOR(N) column; startup fails loud if not (spec §6,
	// property P8).
	Dim int `koanf:"dim"`
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	// Level is one of trace|debug|info|warn|error.
	Level string `koanf:"level"`
}

// NATSConfig holds optional cross-process cache invalidation transport
// configuration (spec §4.4, internal/cacheinvalidate). Disabled by
// default: a single-process deployment never needs it.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate validates the fully-layered configuration.
//
// Returns an error if:
//   - Database.URL is empty
//   - Embeddings.Dim is not positive
//   - Server.BindAddr is empty while Stdio is also false (nothing would
//     ever serve a request)
//   - Logging.Level is not one of trace|debug|info|warn|error
func (c *Config) Validate() error {
	if !c.Database.URL.IsSet() {
		return errors.New("database url is required (--database-url or DATABASE_URL)")
	}
	if c.Embeddings.Dim <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embeddings.Dim)
	}
	if c.Server.BindAddr == "" && !c.Server.Stdio {
		return errors.New("either --bind or --stdio must be set")
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	level := strings.ToLower(c.Logging.Level)
	if !validLogLevels[level] {
		return fmt.Errorf("invalid log level: %q (must be one of trace|debug|info|warn|error)", c.Logging.Level)
	}
	return nil
}

// applyDefaults fills in zero-valued fields with aidis's defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.BindAddr == "" && !cfg.Server.Stdio {
		cfg.Server.BindAddr = "127.0.0.1:8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Database.ConnectTimeout == 0 {
		cfg.Database.ConnectTimeout = Duration(5 * time.Second)
	}
	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8081"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Embeddings.Dim == 0 {
		cfg.Embeddings.Dim = 384
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
