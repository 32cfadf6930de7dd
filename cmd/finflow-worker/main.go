package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finflow/internal/amqp"
	"finflow/internal/cache"
	"finflow/internal/cli"
	applog "finflow/internal/log"
	"finflow/internal/services"
	"finflow/internal/storage"
	"finflow/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("FINFLOW_LOG_LEVEL"), os.Stdout).WithComponent(applog.ComponentWorker)
	logger.Info("Starting finflow-worker")

	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		os.Exit(1)
	}
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the advice worker")
		os.Exit(1)
	}

	result, err := cli.InitBackend(context.Background(), logger, cfg)
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Warn("Failed to close storage backend", applog.FieldError, err)
		}
	}()

	state := storage.NewStateStore(result.KV)
	generator := cli.InitGenerator(context.Background(), logger, cfg)
	if generator == nil {
		logger.Error("The advice worker needs a working Gemini client")
		os.Exit(1)
	}
	advisor := services.NewAdviceService(generator, state, services.AdviceConfig{
		Timeout:     cfg.AdviceTimeout,
		CacheTTL:    cfg.AdviceCacheTTL,
		WeeklyLimit: cfg.WeeklyLimit(),
	})

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	caches := cache.NewManager()
	caches.Register(advisor.Cleaner())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		caches.Stop()
	})
	caches.Start(ctx, time.Minute)

	w := worker.NewAdviceWorker(state, advisor, cfg.Balance())

	// Catch up on anything logged while the worker was down.
	if err := w.StartupRefresh(ctx); err != nil {
		logger.Error("Startup advice refresh failed", applog.FieldError, err)
	}

	if err := amqpClient.ConsumeLogEvents(ctx, w.HandleLogEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	<-done
	logger.Info("Worker shutdown complete")
}
