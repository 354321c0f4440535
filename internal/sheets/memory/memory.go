package memory

import (
	"context"
	"fmt"
	"sync"

	"finanzas/internal/core"
	ports "finanzas/internal/sheets"
)

// Exporter keeps exported rows in process. Used when no spreadsheet is
// configured and by tests.
type Exporter struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var (
	_ ports.TransactionExporter = (*Exporter)(nil)
	_ ports.ExportedLister      = (*Exporter)(nil)
)

func New() *Exporter {
	return &Exporter{}
}

// AppendTransactions stores the rows and returns a synthetic row reference.
func (e *Exporter) AppendTransactions(_ context.Context, rows []core.Transaction) (string, error) {
	for _, tx := range rows {
		if !tx.Kind.IsValid() {
			return "", fmt.Errorf("%w: %q", core.ErrInvalidKind, tx.Kind)
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(rows) == 0 {
		return "", nil
	}
	first := len(e.rows) + 1
	e.rows = append(e.rows, rows...)
	return fmt.Sprintf("mem:%d:%d", first, len(e.rows)), nil
}

// ListExported returns the stored rows dated in year/month.
func (e *Exporter) ListExported(_ context.Context, year int, month int) ([]core.Transaction, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month: %d", month)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []core.Transaction
	for _, tx := range e.rows {
		if tx.Date.Year() == year && tx.Date.Month() == month {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Rows returns a copy of everything exported so far.
func (e *Exporter) Rows() []core.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Transaction(nil), e.rows...)
}
