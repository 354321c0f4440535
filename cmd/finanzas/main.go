package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanzas/internal/cache"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	apphttp "finanzas/internal/http"
	"finanzas/internal/log"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(config.Load(), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	opened := cli.InitStore(context.Background(), logger, cfg)

	ledger, err := cli.NewLedger(cfg, opened.Store, "", logger)
	if err != nil {
		logger.Error("Failed to build ledger", log.FieldError, err)
		os.Exit(1)
	}

	var opts []apphttp.ServerOption
	if p, ok := opened.Store.(pinger); ok {
		opts = append(opts, apphttp.WithReadiness(p.Ping))
	}
	srv := apphttp.NewServer(":"+cfg.Port, ledger, logger, opts...)

	caches := cache.NewManager(logger)
	caches.Register(ledger.SumCache())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if err := opened.Close(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
	})
	caches.StartCleanup(ctx, time.Minute)

	logger.Info("Starting finanzas server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		log.FieldPeriodPolicy, ledger.PolicyName())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
