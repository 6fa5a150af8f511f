package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"oosc/internal/backend"
	"oosc/internal/cli"
	apphttp "oosc/internal/http"
	applog "oosc/internal/log"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger := cli.SetupLogger(os.Stdout, 0, applog.ComponentApp)
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(os.Stdout, cfg.SlogLevel(), applog.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := backend.NewFactory(logger.Logger).CreateBackend(startCtx, backendCfg)
	cancelStart()
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, store.Store, apphttp.Options{
		APIToken: cfg.APIToken,
		CacheTTL: cfg.CacheTTL,
		Ready:    store.Ping,
		Logger:   logger.WithComponent(applog.ComponentHTTP),
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		return errors.Join(srv.Shutdown(ctx), store.Close())
	})

	logger.Info("Starting oosc server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"cache_ttl", cfg.CacheTTL,
		"auth_enabled", cfg.APIToken != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
