package main

import (
	"context"
	"os"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	"finanzas/internal/log"
	"finanzas/internal/services"
	gsheet "finanzas/internal/sheets/google"
	memsheet "finanzas/internal/sheets/memory"
	"finanzas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(config.Load(), log.ComponentRecurring)
	logger.Info("Starting recurring-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	opened := cli.InitStore(context.Background(), logger, cfg)

	ledger, err := cli.NewLedger(cfg, opened.Store, "", logger)
	if err != nil {
		logger.Error("Failed to build ledger", log.FieldError, err)
		os.Exit(1)
	}

	publisher, closePublisher := newPublisher(cfg, logger)

	processor := services.NewRecurringProcessor(ledger, opened.Store, publisher,
		services.RecurringProcessorConfig{Interval: cfg.RecurringInterval}, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Processor stop error", log.FieldError, err)
		}
		closePublisher()
		if err := opened.Close(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
	})

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start recurring processor", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker shutdown complete")
}

// newPublisher prefers the broker. Without AMQP_URL, due transactions go
// straight to the exporter: the configured spreadsheet when there is one,
// otherwise an in-memory sheet that only logs.
func newPublisher(cfg *config.Config, logger *log.Logger) (services.Publisher, func()) {
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.ExportPrefetch, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Publishing due transactions to AMQP",
			"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		return client, func() { _ = client.Close() }
	}

	if cfg.GoogleSpreadsheetID != "" {
		sheets, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		}, logger.WithComponent(log.ComponentSheets))
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("AMQP disabled - exporting due transactions directly to Google Sheets")
		return worker.LocalPublisher{Worker: worker.NewExportWorker(sheets, 4096, logger)}, func() {}
	}

	logger.Warn("AMQP and Google Sheets disabled - due transactions are only logged")
	return worker.LocalPublisher{Worker: worker.NewExportWorker(memsheet.New(), 4096, logger)}, func() {}
}
