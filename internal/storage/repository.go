package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/store"

	_ "modernc.org/sqlite"
)

// createdLayout keeps created_at text sortable.
const createdLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Default(log.ComponentStorage)
	}
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.Info("SQLite repository ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const recordColumns = `id, kind, name, category, source, occurrence_type, amount_cents, date,
	recurrence_kind, day_of_week, days_of_month, is_infinite, total_amount_cents,
	duration_in_months, installments_paid, is_group, archived, created_at`

const itemColumns = `record_id, position, name, amount_cents, date, recurrence_kind, day_of_week,
	days_of_month, is_infinite, total_amount_cents, duration_in_months, installments_paid`

func (r *SQLiteRepository) ListRecords(ctx context.Context, kind core.RecordKind) ([]core.Record, error) {
	return r.queryRecords(ctx, "kind = ? AND archived = 0", string(kind))
}

func (r *SQLiteRepository) ListArchived(ctx context.Context) ([]core.Record, error) {
	return r.queryRecords(ctx, "archived = 1")
}

func (r *SQLiteRepository) GetRecord(ctx context.Context, id string) (core.Record, error) {
	records, err := r.queryRecords(ctx, "id = ?", id)
	if err != nil {
		return core.Record{}, err
	}
	if len(records) == 0 {
		return core.Record{}, fmt.Errorf("get %s: %w", id, store.ErrNotFound)
	}
	return records[0], nil
}

// queryRecords loads matching records oldest first, with their items.
func (r *SQLiteRepository) queryRecords(ctx context.Context, where string, args ...any) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE "+where+" ORDER BY created_at, id", args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var (
		records []core.Record
		index   = make(map[string]int)
	)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	if len(records) == 0 {
		return records, nil
	}

	itemRows, err := r.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM record_items WHERE record_id IN (SELECT id FROM records WHERE "+where+") ORDER BY record_id, position",
		args...)
	if err != nil {
		return nil, fmt.Errorf("query record items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		recordID, item, err := scanItem(itemRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[recordID]; ok {
			records[i].Items = append(records[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record items: %w", err)
	}
	return records, nil
}

// SaveRecord replaces the record and its items in one transaction.
func (r *SQLiteRepository) SaveRecord(ctx context.Context, rec core.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("save record: empty id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	rk, dow, dom, err := ruleColumns(rec.Recurrence)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind, name = excluded.name, category = excluded.category,
			source = excluded.source, occurrence_type = excluded.occurrence_type,
			amount_cents = excluded.amount_cents, date = excluded.date,
			recurrence_kind = excluded.recurrence_kind, day_of_week = excluded.day_of_week,
			days_of_month = excluded.days_of_month, is_infinite = excluded.is_infinite,
			total_amount_cents = excluded.total_amount_cents,
			duration_in_months = excluded.duration_in_months,
			installments_paid = excluded.installments_paid, is_group = excluded.is_group,
			archived = excluded.archived`,
		rec.ID, string(rec.Kind), rec.Name, rec.Category, rec.Source, string(rec.OccurrenceType),
		rec.Amount.Cents, dateColumn(rec.Date), rk, dow, dom,
		rec.IsInfinite, rec.TotalAmount.Cents, rec.DurationInMonths, rec.InstallmentsPaid,
		rec.IsGroup, rec.Archived, rec.CreatedAt.UTC().Format(createdLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM record_items WHERE record_id = ?", rec.ID); err != nil {
		return fmt.Errorf("clear items of %s: %w", rec.ID, err)
	}
	for i, it := range rec.Items {
		rk, dow, dom, err := ruleColumns(it.Recurrence)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO record_items (`+itemColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, i, it.Name, it.Amount.Cents, dateColumn(it.Date), rk, dow, dom,
			it.IsInfinite, it.TotalAmount.Cents, it.DurationInMonths, it.InstallmentsPaid,
		)
		if err != nil {
			return fmt.Errorf("insert item %d of %s: %w", i, rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record %s: %w", rec.ID, err)
	}
	r.logger.DebugContext(ctx, "Record saved",
		log.NewFields().WithRecord(rec.ID, string(rec.Kind), rec.Name).WithAmount(rec.Amount.Cents).ToSlice()...)
	return nil
}

func (r *SQLiteRepository) DeleteRecord(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM record_items WHERE record_id = ?", id); err != nil {
		return fmt.Errorf("delete items of %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if err := expectOne(res, "delete", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ArchiveRecord(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE records SET archived = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("archive %s: %w", id, err)
	}
	return expectOne(res, "archive", id)
}

func (r *SQLiteRepository) LastProcessed(ctx context.Context) (core.Date, error) {
	var day sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(day) FROM processing_log").Scan(&day); err != nil {
		return core.Date{}, fmt.Errorf("read processing log: %w", err)
	}
	if !day.Valid {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(day.String)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse processed day %q: %w", day.String, err)
	}
	return d, nil
}

func (r *SQLiteRepository) MarkProcessed(ctx context.Context, day core.Date, published int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO processing_log (day, published, processed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET published = excluded.published, processed_at = excluded.processed_at`,
		day.String(), published, time.Now().UTC().Format(createdLayout))
	if err != nil {
		return fmt.Errorf("mark %s processed: %w", day, err)
	}
	return nil
}

func expectOne(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, store.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (core.Record, error) {
	var (
		rec                       core.Record
		kind, occurrence          string
		date, ruleKind            sql.NullString
		dow, dom, created         string
		amount, total             int64
		infinite, group, archived bool
	)
	err := s.Scan(&rec.ID, &kind, &rec.Name, &rec.Category, &rec.Source, &occurrence, &amount, &date,
		&ruleKind, &dow, &dom, &infinite, &total, &rec.DurationInMonths, &rec.InstallmentsPaid,
		&group, &archived, &created)
	if err != nil {
		return core.Record{}, fmt.Errorf("scan record: %w", err)
	}

	rec.Kind = core.RecordKind(kind)
	rec.OccurrenceType = core.OccurrenceType(occurrence)
	rec.Amount = core.Money{Cents: amount}
	rec.Date = parseDateColumn(date)
	rec.IsInfinite = infinite
	rec.TotalAmount = core.Money{Cents: total}
	rec.IsGroup = group
	rec.Archived = archived
	if rec.Recurrence, err = parseRule(ruleKind, dow, dom); err != nil {
		return core.Record{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	if rec.CreatedAt, err = time.Parse(createdLayout, created); err != nil {
		return core.Record{}, fmt.Errorf("record %s created_at: %w", rec.ID, err)
	}
	return rec, nil
}

func scanItem(s scanner) (string, core.SubItem, error) {
	var (
		recordID       string
		position       int
		it             core.SubItem
		date, ruleKind sql.NullString
		dow, dom       string
		amount, total  int64
	)
	err := s.Scan(&recordID, &position, &it.Name, &amount, &date, &ruleKind, &dow, &dom,
		&it.IsInfinite, &total, &it.DurationInMonths, &it.InstallmentsPaid)
	if err != nil {
		return "", core.SubItem{}, fmt.Errorf("scan record item: %w", err)
	}
	it.Amount = core.Money{Cents: amount}
	it.TotalAmount = core.Money{Cents: total}
	it.Date = parseDateColumn(date)
	if it.Recurrence, err = parseRule(ruleKind, dow, dom); err != nil {
		return "", core.SubItem{}, fmt.Errorf("item %d of %s: %w", position, recordID, err)
	}
	return recordID, it, nil
}

func dateColumn(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

// parseDateColumn is lenient like the JSON codec: unreadable dates become empty.
func parseDateColumn(s sql.NullString) core.Date {
	if !s.Valid || strings.TrimSpace(s.String) == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(s.String)
	if err != nil {
		return core.Date{}
	}
	return d
}
