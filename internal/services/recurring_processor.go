package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/store"
)

// Publisher sends one due-transaction message.
type Publisher interface {
	Publish(ctx context.Context, msg *amqp.TransactionDueMessage) error
}

// RecurringProcessorConfig holds configuration for the recurring processor
type RecurringProcessorConfig struct {
	// Interval is how often to look for unprocessed days (default: 1h)
	Interval time.Duration

	// MaxCatchUpDays bounds how far back a first or long-delayed run
	// publishes (default: 31)
	MaxCatchUpDays int
}

func DefaultRecurringProcessorConfig() RecurringProcessorConfig {
	return RecurringProcessorConfig{
		Interval:       time.Hour,
		MaxCatchUpDays: 31,
	}
}

// RecurringProcessor publishes what fires on each day exactly when the day
// is first processed. A day is marked processed only after all of its
// transactions were published, so a failed day is retried as a whole.
type RecurringProcessor struct {
	ledger    *LedgerService
	processed store.ProcessingLog
	publisher Publisher
	config    RecurringProcessorConfig
	logger    *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRecurringProcessor(ledger *LedgerService, processed store.ProcessingLog, publisher Publisher, config RecurringProcessorConfig, logger *log.Logger) *RecurringProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultRecurringProcessorConfig().Interval
	}
	if config.MaxCatchUpDays <= 0 {
		config.MaxCatchUpDays = DefaultRecurringProcessorConfig().MaxCatchUpDays
	}
	if logger == nil {
		logger = log.Default(log.ComponentRecurring)
	}
	return &RecurringProcessor{
		ledger:    ledger,
		processed: processed,
		publisher: publisher,
		config:    config,
		logger:    logger.WithComponent(log.ComponentRecurring),
	}
}

// ProcessDue publishes every day after the last processed one up to and
// including now's day. It returns how many messages were published.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.ledger == nil || p.processed == nil || p.publisher == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.DateOf(now)
	last, err := p.processed.LastProcessed(ctx)
	if err != nil {
		return 0, fmt.Errorf("read processing log: %w", err)
	}

	from := today
	if !last.IsZero() {
		from = last.AddDays(1)
	}
	if earliest := today.AddDays(-p.config.MaxCatchUpDays); from.DayKey() < earliest.DayKey() {
		p.logger.WarnContext(ctx, "Catch-up window exceeded, skipping older days",
			"last_processed", last.String(), "resume_from", earliest.String())
		from = earliest
	}
	if from.DayKey() > today.DayKey() {
		return 0, nil
	}

	snap, err := p.ledger.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}
	records := snap.All()

	published := 0
	for day := from; day.DayKey() <= today.DayKey(); day = day.AddDays(1) {
		n, err := p.processDay(ctx, records, day)
		published += n
		if err != nil {
			return published, err
		}
	}

	p.logger.InfoContext(ctx, "Recurring processing complete", log.NewFields().
		WithRange(from.Time, today.Time).
		WithOperation(log.OpPublish).
		ToSlice()...)
	return published, nil
}

func (p *RecurringProcessor) processDay(ctx context.Context, records []core.Record, day core.Date) (int, error) {
	rows := p.ledger.Engine().OccurrencesOn(records, day.Time)
	for i, tx := range rows {
		if err := p.publisher.Publish(ctx, amqp.NewTransactionDueMessage(tx)); err != nil {
			p.logger.LogError(ctx, "Failed to publish due transaction", err, log.OpPublish,
				log.NewFields().WithRecord(tx.RecordID, string(tx.Kind), tx.Name))
			return i, fmt.Errorf("publish %s: %w", day, err)
		}
	}
	if err := p.processed.MarkProcessed(ctx, day, len(rows)); err != nil {
		return len(rows), fmt.Errorf("mark %s processed: %w", day, err)
	}
	if len(rows) > 0 {
		p.logger.InfoContext(ctx, "Published due transactions",
			"day", day.String(), log.FieldCount, len(rows))
	}
	return len(rows), nil
}

// Start runs ProcessDue now and then every interval. Returns an error if
// already running.
func (p *RecurringProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("recurring processor is already running")
	}
	p.running = true
	stop, done := make(chan struct{}), make(chan struct{})
	p.stopCh, p.doneCh = stop, done
	p.mu.Unlock()

	go p.runLoop(ctx, stop, done)

	p.logger.InfoContext(ctx, "Recurring processor started",
		"interval", p.config.Interval,
		"max_catch_up_days", p.config.MaxCatchUpDays)
	return nil
}

// Stop signals the loop and waits for it, or for ctx. After a timed-out
// Stop the processor still counts as running; calling Stop again resumes
// the wait.
func (p *RecurringProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
	done := p.doneCh
	p.mu.Unlock()

	select {
	case <-done:
		p.logger.InfoContext(ctx, "Recurring processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Recurring processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	if p.doneCh == done {
		p.running = false
	}
	p.mu.Unlock()
	return nil
}

func (p *RecurringProcessor) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	p.tick(ctx, time.Now())

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case now := <-ticker.C:
			p.tick(ctx, now)
		}
	}
}

func (p *RecurringProcessor) tick(ctx context.Context, now time.Time) {
	count, err := p.ProcessDue(ctx, now)
	if err != nil {
		p.logger.ErrorContext(ctx, "Recurring processing failed",
			log.FieldError, err, "published", count)
		return
	}
	p.logger.DebugContext(ctx, "Recurring tick complete",
		"published", count, "next_check", now.Add(p.config.Interval).Format("15:04:05"))
}
