// Package cli provides common process-startup utilities: env loading, logger
// setup, config validation, storage bootstrap and graceful shutdown.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"portafoglio/internal/config"
	applog "portafoglio/internal/log"
	"portafoglio/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging from config and sets it as the
// process default. "pretty" selects the colored tint handler.
func SetupLogger(cfg *config.Config) *applog.Logger {
	level := applog.ParseLevel(cfg.LogLevel)

	var handler slog.Handler
	if cfg.LogFormat == "pretty" {
		handler = applog.PrettyHandler(level)
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	logger := applog.New(applog.Config{
		Level:     level,
		Component: applog.ComponentApp,
		Handler:   handler,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenStorage opens the database and runs the schema bootstrap. A migration
// failure is logged but does not kill the process: the ledger refuses
// operations with NotInitialized until a later Initialize succeeds.
func OpenStorage(ctx context.Context, logger *applog.Logger, dbPath string) *storage.DB {
	db, err := storage.Open(dbPath)
	if err != nil {
		logger.Error("Failed to open database", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	if err := db.Initialize(ctx); err != nil {
		logger.Error("Schema initialization failed; ledger operations will be refused",
			applog.FieldError, err, "path", dbPath)
	}
	return db
}

// GracefulShutdown sets up signal handling. The returned context is cancelled
// on SIGINT/SIGTERM after cleanup has run within the timeout.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		cleanup(shutdownCtx)
		cancel()
	}()

	return ctx
}
