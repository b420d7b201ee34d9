// aidis is a persistent-memory and coordination service for AI coding
// agents: a dual-transport tool dispatcher (JSON-RPC stdio and
// HTTP/JSON) backed by Postgres+pgvector context storage, session/
// project orchestration, and a fixed tool catalog.
//
// Usage:
//
//	aidis --database-url postgres://localhost/aidis --bind 127.0.0.1:8080
//	aidis --database-url postgres://localhost/aidis --stdio
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/aidis/internal/cacheinvalidate"
	"github.com/fyrsmithlabs/aidis/internal/catalog"
	"github.com/fyrsmithlabs/aidis/internal/config"
	"github.com/fyrsmithlabs/aidis/internal/contextstore"
	"github.com/fyrsmithlabs/aidis/internal/db"
	"github.com/fyrsmithlabs/aidis/internal/dispatcher"
	"github.com/fyrsmithlabs/aidis/internal/embeddings"
	"github.com/fyrsmithlabs/aidis/internal/orchestrator"
	"github.com/fyrsmithlabs/aidis/internal/tools"
)

func main() {
	fs := flag.NewFlagSet("aidis", flag.ExitOnError)
	flags, err := config.ParseFlags(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load("", flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "aidis:", err)
		os.Exit(3)
	}
}

// run wires every package together and blocks until ctx is cancelled or
// a transport exits with an error.
func run(ctx context.Context, cfg *config.Config) error {
	logger := initLogger(cfg)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting aidis",
		zap.String("bind_addr", cfg.Server.BindAddr),
		zap.Bool("stdio", cfg.Server.Stdio),
		zap.Int("embedding_dim", cfg.Embeddings.Dim))

	database, err := db.Open(ctx, db.Config{
		URL:            cfg.Database.URL.Value(),
		MaxConns:       int32(cfg.Database.MaxConns),
		ConnectTimeout: cfg.Database.ConnectTimeout.Duration(),
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx, cfg.Embeddings.Dim); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	embedder, err := embeddings.NewService(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  cfg.Embeddings.APIKey.Value(),
		Dim:     cfg.Embeddings.Dim,
	}, embeddings.NewMetrics(logger))
	if err != nil {
		return fmt.Errorf("construct embedding service: %w", err)
	}

	store := contextstore.New(database, embedder, cfg.Embeddings.Dim)
	orch := orchestrator.New(database)
	cat := catalog.New()
	d := dispatcher.New(cat, orch, logger)
	d.SetDBPing(database.Ping)

	var natsURL string
	if cfg.NATS.Enabled {
		natsURL = cfg.NATS.URL
	}
	invalidator, err := cacheinvalidate.Connect(natsURL, logger)
	if err != nil {
		logger.Warn("cache invalidation transport unavailable, continuing without cross-process invalidation", zap.Error(err))
		invalidator, _ = cacheinvalidate.Connect("", logger)
	}
	defer invalidator.Close()
	if unsub, err := invalidator.Subscribe(orch.InvalidateAll); err == nil {
		defer unsub()
	}

	if err := tools.RegisterAll(d, tools.Deps{
		DB:           database,
		Store:        store,
		Orchestrator: orch,
		Invalidator:  invalidator,
	}); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	go runBackgroundSweeps(ctx, orch, logger)

	return serve(ctx, cfg, logger, d, cat, orch, database)
}

// initLogger builds the process logger. Under --stdio, stdout is the
// protocol channel, so every log line must go to stderr exclusively
// (spec §4.1).
func initLogger(cfg *config.Config) *zap.Logger {
	var zapCfg zap.Config
	if cfg.Server.Stdio {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	// zap has no "trace" level; the spec's trace verbosity maps to
	// zap's debug, its most verbose level.
	levelName := cfg.Logging.Level
	if levelName == "trace" {
		levelName = "debug"
	}
	if lvl, err := zap.ParseAtomicLevel(levelName); err == nil {
		zapCfg.Level = lvl
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
