// Package cli holds the finflow command tree and the initialization shared
// by cmd/finflow and cmd/finflow-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finflow/internal/advice"
	"finflow/internal/advice/gemini"
	"finflow/internal/amqp"
	"finflow/internal/backend"
	"finflow/internal/config"
	applog "finflow/internal/log"
)

// SetupLogger builds the text logger at the named level and installs it as
// the slog default. An unknown level falls back to info with a warning.
func SetupLogger(level string, out io.Writer) *applog.Logger {
	lvl, err := applog.ParseLevel(level)
	logger := applog.New(applog.Config{Level: lvl, Component: applog.ComponentCLI, Output: out})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Invalid log level, using info", applog.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads a .env file for local development. A missing file is
// not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig(logger *applog.Logger) (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		return nil, err
	}
	return cfg, nil
}

// InitBackend opens the configured storage backend.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend",
			applog.FieldError, err,
			"backend", bcfg.Type)
		return nil, err
	}
	return result, nil
}

// InitGenerator returns the Gemini generator, or nil when no API key is
// configured or the client cannot be built. Advice then uses the fallback.
func InitGenerator(ctx context.Context, logger *applog.Logger, cfg *config.Config) advice.Generator {
	if cfg.GeminiAPIKey == "" {
		logger.Info("Advice generation disabled - no GEMINI_API_KEY provided")
		return nil
	}
	client, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Error("Failed to initialize Gemini client", applog.FieldError, err)
		return nil
	}
	logger.Info("Gemini client initialized", "model", cfg.GeminiModel)
	return client
}

// InitPublisher connects the log-event publisher when AMQP is configured.
// A connection failure is logged and events are disabled.
func InitPublisher(logger *applog.Logger, cfg *config.Config) *amqp.Client {
	if !cfg.AMQPEnabled() {
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.WithComponent(applog.ComponentAMQP).Error("Failed to connect to AMQP, log events disabled",
			applog.FieldError, err)
		return nil
	}
	return client
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with a context bounded by timeout and done is
// closed once it returns.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

func closeWith(logger *applog.Logger, name string, close func() error) {
	if err := close(); err != nil {
		logger.Warn(fmt.Sprintf("Failed to close %s", name), applog.FieldError, err)
	}
}
