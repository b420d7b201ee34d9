package main

import (
	"context"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/aidis/internal/catalog"
	"github.com/fyrsmithlabs/aidis/internal/config"
	"github.com/fyrsmithlabs/aidis/internal/db"
	"github.com/fyrsmithlabs/aidis/internal/dispatcher"
	"github.com/fyrsmithlabs/aidis/internal/metrics"
	"github.com/fyrsmithlabs/aidis/internal/orchestrator"
	transporthttp "github.com/fyrsmithlabs/aidis/internal/transport/http"
	"github.com/fyrsmithlabs/aidis/internal/transport/stdio"
)

// serve starts whichever transports cfg enables (spec §4.1 allows both
// at once: an HTTP bind address and --stdio are not mutually
// exclusive) and blocks until ctx is cancelled or a transport errs.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, d *dispatcher.Dispatcher, cat *catalog.Catalog, orch *orchestrator.Orchestrator, database *db.DB) error {
	dispatchMetrics := metrics.NewDispatch(logger)

	errCh := make(chan error, 2)
	started := 0

	if cfg.Server.BindAddr != "" {
		metricsHandler, err := metrics.SetupGlobalMeterProvider()
		if err != nil {
			logger.Warn("metrics exporter unavailable", zap.Error(err))
			metricsHandler = nil
		}
		httpSrv := transporthttp.New(cfg.Server.BindAddr, cfg.Server.ShutdownTimeout.Duration(), d, cat, orch, dispatchMetrics, metricsHandler, database.Ping, logger)
		started++
		go func() {
			logger.Info("http transport listening", zap.String("addr", cfg.Server.BindAddr))
			errCh <- httpSrv.Start(ctx)
		}()
	}

	if cfg.Server.Stdio {
		stdioSrv := stdio.New(d, cat, dispatchMetrics, logger, "stdio")
		started++
		go func() {
			errCh <- stdioSrv.Run(ctx, os.Stdin, os.Stdout)
		}()
	}

	if started == 0 {
		return nil
	}

	for i := 0; i < started; i++ {
		if err := <-errCh; err != nil && err != context.Canceled && err != http.ErrServerClosed {
			return err
		}
	}
	return nil
}
