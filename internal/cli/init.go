// Package cli holds the start-up steps shared by cmd/saku, cmd/saku-worker
// and cmd/saku-admin.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"saku/internal/backend"
	"saku/internal/config"
	"saku/internal/log"
	"saku/internal/services"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if f := os.Getenv("LOG_FORMAT"); f != "" {
		cfg.Format = f
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Runtime is an engine plus the backend resources it runs on.
type Runtime struct {
	Engine  *services.Engine
	Backend *backend.BackendResult
}

// Close releases the backend. The engine holds no resources of its own.
func (r *Runtime) Close() error {
	return r.Backend.Close()
}

// OpenRuntime creates the backend for role and the services on top of it.
func OpenRuntime(ctx context.Context, cfg *config.Config, logger *log.Logger, role backend.Role) (*Runtime, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg, role)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	retry := services.DefaultRetryPolicy()
	if cfg.TransferMaxAttempts > 0 {
		retry.MaxAttempts = cfg.TransferMaxAttempts
	}
	if cfg.TransferRetryBase > 0 {
		retry.BaseDelay = cfg.TransferRetryBase
	}

	engine := services.New(res.Store, services.Options{
		Publisher: res.Publisher,
		Retry:     retry,
		Logger:    logger,
	})
	return &Runtime{Engine: engine, Backend: res}, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
