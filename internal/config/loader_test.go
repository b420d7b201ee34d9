package config

import (
	"flag"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"DATABASE_URL", "AIDIS_BIND_ADDR", "AIDIS_EMBEDDING_DIM", "AIDIS_LOG_LEVEL"} {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoad_RejectsMissingDatabaseURL(t *testing.T) {
	clearEnv(t)
	_, err := Load("/nonexistent/path.yaml", &Flags{})
	require.Error(t, err)
}

func TestLoad_ReadsDatabaseURLFromEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "postgres://localhost/aidis")
	cfg, err := Load("/nonexistent/path.yaml", &Flags{})
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/aidis", cfg.Database.URL.Value())
}

func TestLoad_ReadsBindAddrAndEmbeddingDimFromEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "postgres://localhost/aidis")
	os.Setenv("AIDIS_BIND_ADDR", "0.0.0.0:9999")
	os.Setenv("AIDIS_EMBEDDING_DIM", "768")
	cfg, err := Load("/nonexistent/path.yaml", &Flags{})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Server.BindAddr)
	assert.Equal(t, 768, cfg.Embeddings.Dim)
}

func TestLoad_FlagsWinOverEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "postgres://env/aidis")
	os.Setenv("AIDIS_BIND_ADDR", "0.0.0.0:9999")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags, err := ParseFlags(fs, []string{"--bind", "127.0.0.1:1234", "--database-url", "postgres://flag/aidis"})
	require.NoError(t, err)

	cfg, err := Load("/nonexistent/path.yaml", flags)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1234", cfg.Server.BindAddr)
	assert.Equal(t, "postgres://flag/aidis", cfg.Database.URL.Value())
}

func TestEnvKeyTransformer_MapsDatabaseURLSpecially(t *testing.T) {
	assert.Equal(t, "database.url", envKeyTransformer("DATABASE_URL"))
}

func TestEnvKeyTransformer_MapsAidisPrefixedVars(t *testing.T) {
	assert.Equal(t, "server.bind_addr", envKeyTransformer("AIDIS_BIND_ADDR"))
	assert.Equal(t, "nats.url", envKeyTransformer("AIDIS_NATS_URL"))
	assert.Equal(t, "", envKeyTransformer("UNRELATED_VAR"))
}

func TestValidateConfigPath_RejectsTmpPath(t *testing.T) {
	assert.Error(t, validateConfigPath("/tmp/whatever.yaml"))
}
