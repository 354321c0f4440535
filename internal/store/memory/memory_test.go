package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
	"finanzas/internal/store"
)

const seedYAML = `
records:
  - id: salary
    kind: income
    name: Nómina
    source: Empresa
    occurrenceType: recurring
    amount: 2000.50
    recurrence:
      kind: monthly
      daysOfMonth: [1]
    createdAt: 2024-01-01T09:00:00Z
  - id: shop
    kind: expense
    name: Supermercado
    isGroup: true
    amount: 999
    items:
      - name: fruta
        amount: "10.25"
        date: 2024-03-05
      - name: gimnasio
        amount: 30
        recurrence:
          kind: weekly
          dayOfWeek: Lunes
        durationInMonths: 3
        installmentsPaid: 1
    createdAt: 2024-02-01T09:00:00Z
  - id: old
    kind: saving
    name: Hucha
    occurrenceType: one-time
    amount: 50
    date: 2023-12-01
    archived: true
`

func TestParseSeed(t *testing.T) {
	records, err := ParseSeed([]byte(seedYAML))
	require.NoError(t, err)
	require.Len(t, records, 3)

	salary := records[0]
	assert.Equal(t, core.Income, salary.Kind)
	assert.Equal(t, int64(200050), salary.Amount.Cents)
	require.NotNil(t, salary.Recurrence)
	assert.Equal(t, []int{1}, salary.Recurrence.DaysOfMonth)

	shop := records[1]
	require.Len(t, shop.Items, 2)
	assert.Equal(t, int64(1025), shop.Items[0].Amount.Cents)
	assert.Equal(t, core.NewDate(2024, 3, 5), shop.Items[0].Date)
	assert.Equal(t, 3, shop.Items[1].DurationInMonths)
	assert.Equal(t, 1, shop.Items[1].InstallmentsPaid)
	assert.NoError(t, shop.Validate(core.SpanishWeekdays))
}

func TestSeedRoundTrip(t *testing.T) {
	records, err := ParseSeed([]byte(seedYAML))
	require.NoError(t, err)

	data, err := MarshalSeed(records)
	require.NoError(t, err)
	again, err := ParseSeed(data)
	require.NoError(t, err)
	assert.Equal(t, records, again)
}

func TestStore_ListExcludesArchived(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))

	s, err := NewFromFile(path)
	require.NoError(t, err)
	ctx := context.Background()

	savings, err := s.ListRecords(ctx, core.Saving)
	require.NoError(t, err)
	assert.Empty(t, savings)

	archived, err := s.ListArchived(ctx)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "old", archived[0].ID)
}

func TestStore_CRUD(t *testing.T) {
	s := New()
	s.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	rule := &core.RecurrenceRule{Kind: core.Monthly, DaysOfMonth: []int{3}}
	rent := core.Record{ID: "rent", Kind: core.Expense, Name: "Alquiler", OccurrenceType: core.Recurring, Amount: core.Money{Cents: 80000}, Recurrence: rule}
	require.NoError(t, s.SaveRecord(ctx, rent))

	// Mutating the caller's rule must not leak into the store.
	rule.DaysOfMonth[0] = 20
	got, err := s.GetRecord(ctx, "rent")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, got.Recurrence.DaysOfMonth)
	assert.Equal(t, s.now(), got.CreatedAt)

	require.NoError(t, s.ArchiveRecord(ctx, "rent"))
	expenses, _ := s.ListRecords(ctx, core.Expense)
	assert.Empty(t, expenses)

	require.NoError(t, s.DeleteRecord(ctx, "rent"))
	_, err = s.GetRecord(ctx, "rent")
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.True(t, errors.Is(s.DeleteRecord(ctx, "rent"), store.ErrNotFound))
	assert.True(t, errors.Is(s.ArchiveRecord(ctx, "rent"), store.ErrNotFound))
}

func TestStore_OrderByCreation(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(
		core.Record{ID: "b", Kind: core.Income, CreatedAt: base.Add(time.Hour)},
		core.Record{ID: "a", Kind: core.Income, CreatedAt: base.Add(2 * time.Hour)},
		core.Record{ID: "c", Kind: core.Income, CreatedAt: base},
	)
	got, err := s.ListRecords(context.Background(), core.Income)
	require.NoError(t, err)
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
}

func TestStore_AssignsIDs(t *testing.T) {
	s := New(core.Record{Kind: core.Saving, Name: "x"})
	got, _ := s.ListRecords(context.Background(), core.Saving)
	require.Len(t, got, 1)
	assert.Len(t, got[0].ID, 36)
}

func TestStore_ProcessingLog(t *testing.T) {
	s := New()
	ctx := context.Background()

	last, err := s.LastProcessed(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	require.NoError(t, s.MarkProcessed(ctx, core.NewDate(2024, 3, 5), 2))
	require.NoError(t, s.MarkProcessed(ctx, core.NewDate(2024, 3, 1), 1))
	last, _ = s.LastProcessed(ctx)
	assert.Equal(t, core.NewDate(2024, 3, 5), last)
}
