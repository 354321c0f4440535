// Package store declares the persistence ports the ledger depends on.
// Implementations live in store/memory and internal/storage.
package store

import (
	"context"
	"errors"

	"finanzas/internal/core"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

type (
	// RecordReader lists live records. Archived records are never returned.
	RecordReader interface {
		ListRecords(ctx context.Context, kind core.RecordKind) ([]core.Record, error)
		GetRecord(ctx context.Context, id string) (core.Record, error)
	}

	// RecordWriter persists records. SaveRecord inserts or replaces by ID.
	RecordWriter interface {
		SaveRecord(ctx context.Context, r core.Record) error
		DeleteRecord(ctx context.Context, id string) error
		ArchiveRecord(ctx context.Context, id string) error
	}

	ArchiveReader interface {
		ListArchived(ctx context.Context) ([]core.Record, error)
	}

	// ProcessingLog remembers the last day the recurring worker published.
	// A zero date means nothing was processed yet.
	ProcessingLog interface {
		LastProcessed(ctx context.Context) (core.Date, error)
		MarkProcessed(ctx context.Context, day core.Date, published int) error
	}

	// Store is everything a backend provides.
	Store interface {
		RecordReader
		RecordWriter
		ArchiveReader
		ProcessingLog
		Close() error
	}
)
