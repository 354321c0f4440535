package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/period"
	"finanzas/internal/recurrence"
	"finanzas/internal/store"
)

// ErrValidation marks input the ledger refuses to store.
var ErrValidation = errors.New("validation failed")

// ErrPlanComplete is returned when paying an installment on a finished plan.
var ErrPlanComplete = errors.New("installment plan already complete")

// Repository is the slice of a store the ledger reads and writes.
type Repository interface {
	store.RecordReader
	store.RecordWriter
	store.ArchiveReader
}

// LedgerService answers every read over the records and owns their writes.
// Reads run over a snapshot loaded per call; sums are memoized until the
// next write through the service.
type LedgerService struct {
	repo       Repository
	engine     *recurrence.Engine
	summarizer *period.Summarizer
	sums       *cache.LRUCache[core.Money]
	logger     *log.Logger
	now        func() time.Time
}

// LedgerOption customizes a LedgerService.
type LedgerOption func(*LedgerService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) { s.now = now }
}

// WithSumCache replaces the default sum cache.
func WithSumCache(c *cache.LRUCache[core.Money]) LedgerOption {
	return func(s *LedgerService) { s.sums = c }
}

func NewLedgerService(repo Repository, engine *recurrence.Engine, policy period.Policy, logger *log.Logger, opts ...LedgerOption) *LedgerService {
	if engine == nil {
		engine = recurrence.Default()
	}
	if logger == nil {
		logger = log.Default(log.ComponentLedger)
	}
	s := &LedgerService{
		repo:   repo,
		engine: engine,
		sums:   cache.NewLRUCache[core.Money](512, 5*time.Minute),
		logger: logger.WithComponent(log.ComponentLedger),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.summarizer = period.NewSummarizer(engine, policy, period.WithMemo(s.sums))
	return s
}

func (s *LedgerService) Engine() *recurrence.Engine { return s.engine }

// SumCache exposes the memo so a cache.Manager can sweep it.
func (s *LedgerService) SumCache() *cache.LRUCache[core.Money] { return s.sums }

func (s *LedgerService) PolicyName() string { return s.summarizer.Policy().Name() }

// Snapshot loads the three live collections concurrently.
func (s *LedgerService) Snapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	g, ctx := errgroup.WithContext(ctx)
	load := func(kind core.RecordKind, dst *[]core.Record) {
		g.Go(func() error {
			records, err := s.repo.ListRecords(ctx, kind)
			if err != nil {
				return fmt.Errorf("list %s records: %w", kind, err)
			}
			*dst = records
			return nil
		})
	}
	load(core.Income, &snap.Income)
	load(core.Expense, &snap.Expenses)
	load(core.Saving, &snap.Savings)
	if err := g.Wait(); err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}

// Summary sums each kind over the inclusive range.
func (s *LedgerService) Summary(ctx context.Context, start, end time.Time) (core.Totals, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return core.Totals{}, err
	}
	return s.summarizer.Totals(snap, start, end)
}

// Month expands every record over the month. The category breakdown covers
// expenses only.
func (s *LedgerService) Month(ctx context.Context, year, month int, ascending bool) (core.MonthOverview, error) {
	if month < 1 || month > 12 {
		return core.MonthOverview{}, fmt.Errorf("%w: %w: %d", ErrValidation, core.ErrInvalidMonth, month)
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return core.MonthOverview{}, err
	}

	rows := s.engine.ExpandMonth(snap.All(), year, month)
	recurrence.SortTransactions(rows, ascending)

	ov := core.MonthOverview{Year: year, Month: month, Transactions: rows}
	var expenses []core.Transaction
	for _, tx := range rows {
		ov.Totals.Add(tx.Kind, tx.Amount)
		if tx.Kind == core.Expense {
			expenses = append(expenses, tx)
		}
	}
	ov.ByCategory = recurrence.ByCategory(expenses)
	return ov, nil
}

// MonthTotal projects the month total of one kind.
func (s *LedgerService) MonthTotal(ctx context.Context, kind core.RecordKind, year, month int) (core.Money, error) {
	if !kind.IsValid() {
		return core.Money{}, fmt.Errorf("%w: %w: %q", ErrValidation, core.ErrInvalidKind, kind)
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return core.Money{}, err
	}
	records := snap.Of(kind)
	key := fmt.Sprintf("projected:%s:%d:%d", kind, year, month)
	return s.sums.GetOrCompute(key, func() (core.Money, error) {
		return s.engine.MonthlyProjectedTotal(records, year, month), nil
	})
}

// Day lists what fires on the given date.
func (s *LedgerService) Day(ctx context.Context, day core.Date) ([]core.Transaction, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rows := s.engine.OccurrencesOn(snap.All(), day.Time)
	recurrence.SortTransactions(rows, true)
	return rows, nil
}

// Calendar flags, per day of the month, which kinds fire.
func (s *LedgerService) Calendar(ctx context.Context, year, month int) ([]core.DayMark, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: %w: %d", ErrValidation, core.ErrInvalidMonth, month)
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.MonthMarks(snap, year, month), nil
}

// Period summarizes the budgeting period containing ref under the
// configured policy. Totals and carry-over go through the sum cache.
func (s *LedgerService) Period(ctx context.Context, ref core.Date) (core.PeriodSummary, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return core.PeriodSummary{}, err
	}

	summary, err := s.summarizer.Summarize(snap, ref)
	if err != nil {
		return core.PeriodSummary{}, err
	}

	s.logger.DebugContext(ctx, "Period summarized", log.NewFields().
		WithRange(summary.Start, summary.End).
		WithAmount(summary.CarryOver.Cents).
		ToSlice()...)
	return summary, nil
}

// ListRecords returns the live records of one kind, or of every kind when
// kind is empty.
func (s *LedgerService) ListRecords(ctx context.Context, kind core.RecordKind) ([]core.Record, error) {
	if kind == "" {
		snap, err := s.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return snap.All(), nil
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %w: %q", ErrValidation, core.ErrInvalidKind, kind)
	}
	return s.repo.ListRecords(ctx, kind)
}

func (s *LedgerService) ListArchived(ctx context.Context) ([]core.Record, error) {
	return s.repo.ListArchived(ctx)
}

// CreateRecord validates and stores a new record, assigning its id and
// creation time when missing.
func (s *LedgerService) CreateRecord(ctx context.Context, r core.Record) (core.Record, error) {
	r = normalize(r)
	if err := r.Validate(s.engine.Weekdays()); err != nil {
		return core.Record{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	r.Archived = false

	if err := s.repo.SaveRecord(ctx, r); err != nil {
		s.logger.LogError(ctx, "Failed to save record", err, log.OpCreate,
			log.NewFields().WithRecord(r.ID, string(r.Kind), r.Name))
		return core.Record{}, fmt.Errorf("save record: %w", err)
	}
	s.invalidate(ctx)

	s.logger.InfoContext(ctx, "Record created", log.NewFields().
		WithRecord(r.ID, string(r.Kind), r.Name).
		WithAmount(r.Amount.Cents).
		ToSlice()...)
	return r, nil
}

func (s *LedgerService) DeleteRecord(ctx context.Context, id string) error {
	if err := s.repo.DeleteRecord(ctx, id); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "Record deleted", log.FieldRecordID, id)
	return nil
}

// ArchiveRecord hides a record from every computation without deleting it.
func (s *LedgerService) ArchiveRecord(ctx context.Context, id string) error {
	if err := s.repo.ArchiveRecord(ctx, id); err != nil {
		return fmt.Errorf("archive record %s: %w", id, err)
	}
	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "Record archived", log.FieldRecordID, id)
	return nil
}

// PayInstallment records one more paid installment on a record, or on the
// named item of a group.
func (s *LedgerService) PayInstallment(ctx context.Context, id, item string) (core.Record, error) {
	r, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return core.Record{}, fmt.Errorf("get record %s: %w", id, err)
	}

	plan := &r.Installments
	if item != "" {
		plan = nil
		for i := range r.Items {
			if !strings.EqualFold(strings.TrimSpace(r.Items[i].Name), strings.TrimSpace(item)) {
				continue
			}
			if plan != nil {
				return core.Record{}, fmt.Errorf("%w: %w: %q names more than one item of record %s",
					ErrValidation, core.ErrDuplicateItem, item, id)
			}
			plan = &r.Items[i].Installments
		}
		if plan == nil {
			return core.Record{}, fmt.Errorf("item %q of record %s: %w", item, id, store.ErrNotFound)
		}
	}
	if plan.IsInfinite || plan.DurationInMonths <= 0 {
		return core.Record{}, fmt.Errorf("%w: %w: no bounded plan", ErrValidation, core.ErrInvalidInstallment)
	}
	if recurrence.IsCompleted(*plan) {
		return core.Record{}, fmt.Errorf("%w: %w", ErrValidation, ErrPlanComplete)
	}
	plan.InstallmentsPaid++

	if err := s.repo.SaveRecord(ctx, r); err != nil {
		return core.Record{}, fmt.Errorf("save record: %w", err)
	}
	s.invalidate(ctx)

	s.logger.InfoContext(ctx, "Installment paid",
		log.FieldRecordID, id, "item", item,
		"paid", plan.InstallmentsPaid, "duration", plan.DurationInMonths)
	return r, nil
}

func (s *LedgerService) invalidate(ctx context.Context) {
	if n := s.sums.Purge(); n > 0 {
		s.logger.DebugContext(ctx, "Sum cache purged", log.FieldCount, n)
	}
}

// normalize trims names and fills what writers may leave implicit: a group
// is recurring-or-dated per item and carries the sum of its items.
func normalize(r core.Record) core.Record {
	r = r.Clone()
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	r.Source = strings.TrimSpace(r.Source)
	for i := range r.Items {
		r.Items[i].Name = strings.TrimSpace(r.Items[i].Name)
	}
	if r.IsGroup {
		if r.OccurrenceType == "" {
			r.OccurrenceType = core.Recurring
		}
		r.RecomputeGroupAmount()
	}
	return r
}
