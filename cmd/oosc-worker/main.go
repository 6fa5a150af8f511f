package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"oosc/internal/amqp"
	"oosc/internal/cli"
	"oosc/internal/config"
	"oosc/internal/entries/remote"
	applog "oosc/internal/log"
	"oosc/internal/worker"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	if err != nil {
		logger := cli.SetupLogger(os.Stdout, 0, applog.ComponentWorker)
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(os.Stdout, cfg.SlogLevel(), applog.ComponentWorker)
	logger.Info("Starting oosc-worker")

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		os.Exit(1)
	}
	defer repo.Close()

	remoteClient, err := remote.New(remote.Config{
		BaseURL: cfg.EntriesAPIURL,
		Token:   cfg.EntriesAPIToken,
		Timeout: cfg.EntriesAPITimeout,
	})
	if err != nil {
		logger.Error("Failed to initialize entries API client", applog.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, remoteClient, worker.Config{
		BatchSize:    cfg.SyncBatchSize,
		Concurrency:  cfg.SyncConcurrency,
		PollInterval: cfg.SyncInterval,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, syncWorker.Stop)

	// push anything left pending by a previous run, then pull remote state
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	if err := syncWorker.Start(ctx); err != nil {
		logger.Error("Failed to start sync worker", applog.FieldError, err)
		os.Exit(1)
	}

	go func() {
		err := amqpClient.Consume(ctx, syncWorker.HandleMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
