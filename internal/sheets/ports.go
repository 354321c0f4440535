package sheets

import (
	"context"

	"finanzas/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter appends fired occurrences to an external ledger.
	TransactionExporter interface {
		AppendTransactions(ctx context.Context, rows []core.Transaction) (ref string, err error)
	}

	// ExportedLister reads back what was exported for a month.
	ExportedLister interface {
		ListExported(ctx context.Context, year int, month int) ([]core.Transaction, error)
	}
)
