package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Flags holds the CLI flag values from spec §6, parsed by cmd/aidis with
// the standard flag package before Load is called.
type Flags struct {
	BindAddr      string
	Stdio         bool
	DatabaseURL   string
	EmbeddingDim  int
	LogLevel      string
	BindAddrSet   bool
	StdioSet      bool
	DatabaseSet   bool
	EmbedDimSet   bool
	LogLevelSet   bool
}

// RegisterFlags registers spec §6's CLI flags on fs and returns a Flags
// whose fields are populated once fs.Parse has run. The *Set fields track
// which flags were explicitly passed, so Load can tell "flag omitted"
// (env/default applies) from "flag set to the zero value".
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.BindAddr, "bind", "", "HTTP listen address (default 127.0.0.1:8080)")
	fs.BoolVar(&f.Stdio, "stdio", false, "enable the JSON-RPC stream transport on stdio")
	fs.StringVar(&f.DatabaseURL, "database-url", "", "Postgres connection string (required)")
	fs.IntVar(&f.EmbeddingDim, "embedding-dim", 0, "embedding vector dimension, must match the deployed schema")
	fs.StringVar(&f.LogLevel, "log-level", "", "trace|debug|info|warn|error")
	return f
}

// markSet records which flags were explicitly passed on the command
// line; call after fs.Parse().
func (f *Flags) markSet(fs *flag.FlagSet) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "bind":
			f.BindAddrSet = true
		case "stdio":
			f.StdioSet = true
		case "database-url":
			f.DatabaseSet = true
		case "embedding-dim":
			f.EmbedDimSet = true
		case "log-level":
			f.LogLevelSet = true
		}
	})
}

// ParseFlags registers and parses spec §6's CLI flags against args (pass
// os.Args[1:]).
func ParseFlags(fs *flag.FlagSet, args []string) (*Flags, error) {
	f := RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	f.markSet(fs)
	return f, nil
}

// Load builds the final Config: defaults, then an optional YAML file,
// then environment variables, then flags (highest precedence), followed
// by Config.Validate. configPath "" uses the default
// ~/.config/aidis/config.yaml if present; a missing file is not an error.
func Load(configPath string, flags *Flags) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configPath = filepath.Join(home, ".config", "aidis", "config.yaml")
		}
	}

	if configPath != "" {
		if err := validateConfigPath(configPath); err == nil {
			if err := loadConfigFile(k, configPath); err != nil {
				return nil, err
			}
		}
	}

	// AIDIS_SERVER_BIND_ADDR -> server.bind_addr ; DATABASE_URL -> database.url
	if err := k.Load(env.Provider("", ".", envKeyTransformer), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if flags != nil {
		applyFlags(&cfg, flags)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// namedEnvVars maps spec §6's four named environment variables directly,
// since their shape (AIDIS_BIND_ADDR, not AIDIS_SERVER_BIND_ADDR) doesn't
// follow the generic AIDIS_<SECTION>_<FIELD> convention used for the
// rest of Config.
var namedEnvVars = map[string]string{
	"DATABASE_URL":        "database.url",
	"AIDIS_BIND_ADDR":     "server.bind_addr",
	"AIDIS_EMBEDDING_DIM": "embeddings.dim",
	"AIDIS_LOG_LEVEL":     "logging.level",
}

// envKeyTransformer maps environment variable names to koanf's
// dot-delimited key path. The four variables spec §6 names explicitly
// are mapped directly; any other AIDIS_<SECTION>_<FIELD> variable (e.g.
// AIDIS_NATS_URL, AIDIS_EMBEDDINGS_BASE_URL) is mapped generically.
func envKeyTransformer(s string) string {
	if key, ok := namedEnvVars[s]; ok {
		return key
	}
	if !strings.HasPrefix(s, "AIDIS_") {
		return ""
	}
	rest := strings.ToLower(strings.TrimPrefix(s, "AIDIS_"))
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}

// applyFlags overlays explicitly-set CLI flags onto cfg, the highest
// precedence layer (spec §10.2).
func applyFlags(cfg *Config, f *Flags) {
	if f.BindAddrSet {
		cfg.Server.BindAddr = f.BindAddr
	}
	if f.StdioSet {
		cfg.Server.Stdio = f.Stdio
	}
	if f.DatabaseSet {
		cfg.Database.URL = Secret(f.DatabaseURL)
	}
	if f.EmbedDimSet {
		cfg.Embeddings.Dim = f.EmbeddingDim
	}
	if f.LogLevelSet {
		cfg.Logging.Level = f.LogLevel
	}
}

func loadConfigFile(k *koanf.Koanf, configPath string) error {
	fi, err := os.Stat(configPath)
	if err != nil {
		return nil // missing file is not an error
	}
	f, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := validateConfigFileProperties(fi); err != nil {
		return fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return nil
}

// EnsureConfigDir creates aidis's config directory if it doesn't exist,
// with 0700 permissions.
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, ".config", "aidis")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return nil
}

// validateConfigPath restricts config files to ~/.config/aidis/ or
// /etc/aidis/, resolving symlinks first to prevent traversal.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolved = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	allowedDirs := []string{
		filepath.Join(home, ".config", "aidis"),
		"/etc/aidis",
	}
	for _, dir := range allowedDirs {
		if resolved == dir || strings.HasPrefix(resolved, dir+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/aidis/ or /etc/aidis/")
}

// validateConfigFileProperties enforces the same permission and size
// limits the teacher's loader does.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
