package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"portafoglio/internal/cli"
	"portafoglio/internal/config"
	"portafoglio/internal/currency"
	apphttp "portafoglio/internal/http"
	"portafoglio/internal/ledger"
	applog "portafoglio/internal/log"
)

func main() {
	cli.LoadEnvFile()

	// Bootstrap logger with defaults; reconfigured once config is loaded.
	logger := cli.SetupLogger(config.Load())
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg)

	ctx := context.Background()
	db := cli.OpenStorage(ctx, logger, cfg.SQLiteDBPath)
	defer db.Close()

	rates := currency.Default()
	lgr := ledger.New(db, rates)

	srv := apphttp.NewServer(":"+cfg.Port, lgr, rates, apphttp.Options{
		RequestsPerMinute: cfg.RequestsPerMinute,
		ReportCacheTTL:    cfg.ReportCacheTTL,
		ReportCacheSize:   cfg.ReportCacheSize,
	})

	shutdownCtx := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		srv.Stop()
	})

	logger.Info("Starting portafoglio server",
		"port", cfg.Port,
		"db_path", cfg.SQLiteDBPath,
		"initialized", lgr.Initialized())

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-shutdownCtx.Done()
	logger.Info("Server stopped gracefully")
}
