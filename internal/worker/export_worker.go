package worker

import (
	"context"
	"fmt"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/sheets"
)

// Consumer delivers due-transaction messages to a handler until ctx ends.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// ExportWorker appends each due transaction to the export sheet. Keys of
// recently exported occurrences are remembered so a redelivered message is
// acknowledged without writing a second row.
type ExportWorker struct {
	exporter sheets.TransactionExporter
	exported *cache.LRUCache[string]
	logger   *log.Logger
}

// NewExportWorker remembers up to dedupeSize keys for a day.
func NewExportWorker(exporter sheets.TransactionExporter, dedupeSize int, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &ExportWorker{
		exporter: exporter,
		exported: cache.NewLRUCache[string](dedupeSize, 24*time.Hour),
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleTransactionDue processes a single due-transaction message from AMQP.
func (w *ExportWorker) HandleTransactionDue(ctx context.Context, msg *amqp.TransactionDueMessage) error {
	logger := w.logger.WithFields(log.NewFields().
		WithRecord(msg.RecordID, string(msg.Kind), msg.Name).
		WithAmount(msg.AmountCents))

	if ref, ok := w.exported.Get(msg.Key); ok {
		logger.InfoContext(ctx, "Skipping already exported transaction", "key", msg.Key, log.FieldSheetsRef, ref)
		return nil
	}

	tx, err := msg.Transaction()
	if err != nil {
		return fmt.Errorf("decode transaction: %w", err)
	}

	ref, err := w.exporter.AppendTransactions(ctx, []core.Transaction{tx})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to export transaction", log.FieldError, err, "date", msg.Date)
		return fmt.Errorf("append to sheets: %w", err)
	}
	w.exported.Set(msg.Key, ref)

	logger.InfoContext(ctx, "Exported transaction", "date", msg.Date, log.FieldSheetsRef, ref)
	return nil
}

// Run consumes until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Export worker consuming", log.FieldOperation, log.OpConsume)
	err := consumer.Consume(ctx, w.HandleTransactionDue)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("consume: %w", err)
	}
	return nil
}

// Cache exposes the dedupe cache so a cache.Manager can sweep it.
func (w *ExportWorker) Cache() *cache.LRUCache[string] { return w.exported }

// LocalPublisher hands messages straight to an export worker, for running
// the recurring processor without a broker.
type LocalPublisher struct {
	Worker *ExportWorker
}

func (p LocalPublisher) Publish(ctx context.Context, msg *amqp.TransactionDueMessage) error {
	return p.Worker.HandleTransactionDue(ctx, msg)
}
