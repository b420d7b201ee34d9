package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	cfg := Config{
		Database:   DatabaseConfig{URL: Secret("postgres://localhost/aidis")},
		Embeddings: EmbeddingsConfig{Dim: 384},
		Server:     ServerConfig{BindAddr: "127.0.0.1:8080", ShutdownTimeout: Duration(1)},
		Logging:    LoggingConfig{Level: "info"},
	}
	return cfg
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsMissingDatabaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URL = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveEmbeddingDim(t *testing.T) {
	cfg := validConfig()
	cfg.Embeddings.Dim = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNoTransportConfigured(t *testing.T) {
	cfg := validConfig()
	cfg.Server.BindAddr = ""
	cfg.Server.Stdio = false
	assert.Error(t, cfg.Validate())
}

func TestValidate_AllowsStdioOnlyWithNoBindAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Server.BindAddr = ""
	cfg.Server.Stdio = true
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	cfg := Config{Database: DatabaseConfig{URL: Secret("x")}}
	applyDefaults(&cfg)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.BindAddr)
	assert.Equal(t, 384, cfg.Embeddings.Dim)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotZero(t, cfg.Server.ShutdownTimeout)
}
