package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"finanzas/internal/core"
)

func cents(c int64) core.Money { return core.Money{Cents: c} }

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func recurring(kind core.RecordKind, amount int64, rule core.RecurrenceRule) core.Record {
	return core.Record{
		ID:             "r-" + string(rule.Kind),
		Kind:           kind,
		Name:           "recurring " + string(rule.Kind),
		OccurrenceType: core.Recurring,
		Amount:         cents(amount),
		Recurrence:     &rule,
	}
}

func oneTime(kind core.RecordKind, amount int64, date core.Date) core.Record {
	return core.Record{
		ID:             "o-" + date.String(),
		Kind:           kind,
		Name:           "one-time",
		OccurrenceType: core.OneTime,
		Amount:         cents(amount),
		Date:           date,
	}
}

func TestSumInRange_RangeGuard(t *testing.T) {
	records := []core.Record{
		recurring(core.Expense, 100, core.RecurrenceRule{Kind: core.Daily}),
		oneTime(core.Expense, 500, core.NewDate(2024, 3, 10)),
	}

	assert.True(t, SumInRange(records, day(2024, 3, 11), day(2024, 3, 10)).IsZero())
	assert.True(t, SumInRange(records, day(2024, 4, 1), day(2024, 3, 1)).IsZero())

	// Same day with a later start time still covers that day.
	start := time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, cents(600), SumInRange(records, start, end))
}

func TestSumInRange_DailyAlwaysFires(t *testing.T) {
	records := []core.Record{recurring(core.Income, 1234, core.RecurrenceRule{Kind: core.Daily})}
	for _, d := range []time.Time{day(2024, 2, 29), day(2023, 12, 31), day(2025, 7, 4)} {
		assert.Equal(t, cents(1234), SumInRange(records, d, d), d.String())
	}
	assert.Equal(t, cents(1234*29), SumInRange(records, day(2024, 2, 1), day(2024, 2, 29)))
}

func TestSumInRange_DayOfMonth(t *testing.T) {
	records := []core.Record{recurring(core.Expense, 100, core.RecurrenceRule{Kind: core.Monthly, DaysOfMonth: []int{15}})}

	assert.Equal(t, cents(100), SumInRange(records, day(2024, 3, 1), day(2024, 3, 31)))
	assert.True(t, SumInRange(records, day(2024, 3, 1), day(2024, 3, 14)).IsZero())
	assert.True(t, SumInRange(records, day(2024, 3, 16), day(2024, 3, 31)).IsZero())
	assert.Equal(t, cents(300), SumInRange(records, day(2024, 1, 1), day(2024, 3, 31)))
}

func TestSumInRange_CompletionSuppresses(t *testing.T) {
	rules := []core.RecurrenceRule{
		{Kind: core.Daily},
		{Kind: core.Weekly, DayOfWeek: "Lunes"},
		{Kind: core.Biweekly, DaysOfMonth: []int{1, 15}},
		{Kind: core.Monthly, DaysOfMonth: []int{5}},
	}

	for _, rule := range rules {
		t.Run(string(rule.Kind), func(t *testing.T) {
			r := recurring(core.Expense, 100, rule)
			r.Installments = core.Installments{DurationInMonths: 3, InstallmentsPaid: 3}
			assert.True(t, SumInRange([]core.Record{r}, day(2024, 1, 1), day(2024, 12, 31)).IsZero())

			r.InstallmentsPaid = 2
			assert.False(t, SumInRange([]core.Record{r}, day(2024, 1, 1), day(2024, 12, 31)).IsZero())

			r.InstallmentsPaid = 5
			r.IsInfinite = true
			assert.False(t, SumInRange([]core.Record{r}, day(2024, 1, 1), day(2024, 12, 31)).IsZero())
		})
	}
}

func TestIsCompleted(t *testing.T) {
	tests := []struct {
		name string
		in   core.Installments
		want bool
	}{
		{name: "no plan", in: core.Installments{}, want: false},
		{name: "infinite", in: core.Installments{IsInfinite: true, DurationInMonths: 3, InstallmentsPaid: 3}, want: false},
		{name: "zero duration", in: core.Installments{InstallmentsPaid: 4}, want: false},
		{name: "partially paid", in: core.Installments{DurationInMonths: 3, InstallmentsPaid: 2}, want: false},
		{name: "fully paid", in: core.Installments{DurationInMonths: 3, InstallmentsPaid: 3}, want: true},
		{name: "overpaid", in: core.Installments{DurationInMonths: 3, InstallmentsPaid: 4}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCompleted(tt.in))
		})
	}
}

func TestSumInRange_OneTimeIgnoresInstallments(t *testing.T) {
	r := oneTime(core.Expense, 700, core.NewDate(2024, 3, 10))
	r.Installments = core.Installments{DurationInMonths: 1, InstallmentsPaid: 1}
	assert.Equal(t, cents(700), SumInRange([]core.Record{r}, day(2024, 3, 1), day(2024, 3, 31)))
}

func TestSumInRange_GroupDelegation(t *testing.T) {
	group := core.Record{
		ID:             "g1",
		Kind:           core.Expense,
		Name:           "Supermercado",
		OccurrenceType: core.OneTime,
		Amount:         cents(999),
		Date:           core.NewDate(2024, 3, 1),
		IsGroup:        true,
		Items: []core.SubItem{
			{Name: "fruta", Amount: cents(10), Date: core.NewDate(2024, 3, 5)},
			{Name: "pan", Amount: cents(20), Date: core.NewDate(2024, 3, 6)},
		},
	}

	assert.Equal(t, cents(30), SumInRange([]core.Record{group}, day(2024, 3, 1), day(2024, 3, 31)))
	assert.Equal(t, cents(10), SumInRange([]core.Record{group}, day(2024, 3, 5), day(2024, 3, 5)))
}

func TestSumInRange_GroupItemKinds(t *testing.T) {
	weekly := core.RecurrenceRule{Kind: core.Weekly, DayOfWeek: "Lunes"}
	group := core.Record{
		ID:      "g2",
		Kind:    core.Expense,
		Name:    "Suscripciones",
		Amount:  cents(1),
		IsGroup: true,
		Items: []core.SubItem{
			{Name: "semanal", Amount: cents(100), Recurrence: &weekly},
			{Name: "puntual", Amount: cents(7), Date: core.NewDate(2024, 3, 20)},
			{Name: "ambos", Amount: cents(1000), Date: core.NewDate(2024, 3, 20), Recurrence: &weekly},
			{Name: "ninguno", Amount: cents(1000)},
			{
				Name: "pagado", Amount: cents(1000), Recurrence: &weekly,
				Installments: core.Installments{DurationInMonths: 2, InstallmentsPaid: 2},
			},
		},
	}

	// Mondays in March 2024: 4, 11, 18, 25.
	assert.Equal(t, cents(407), SumInRange([]core.Record{group}, day(2024, 3, 1), day(2024, 3, 31)))
}

func TestSumInRange_OneTimeBoundaries(t *testing.T) {
	records := []core.Record{
		oneTime(core.Income, 1, core.NewDate(2024, 3, 1)),
		oneTime(core.Income, 10, core.NewDate(2024, 3, 31)),
		oneTime(core.Income, 100, core.NewDate(2024, 2, 29)),
		oneTime(core.Income, 1000, core.NewDate(2024, 4, 1)),
	}

	assert.Equal(t, cents(11), SumInRange(records, day(2024, 3, 1), day(2024, 3, 31)))

	// Times of day on the boundaries do not shift the range.
	start := time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, cents(11), SumInRange(records, start, end))
}

func TestSumInRange_LocalZoneRange(t *testing.T) {
	madrid := time.FixedZone("CET", 3600)
	records := []core.Record{oneTime(core.Expense, 50, core.NewDate(2024, 3, 1))}
	// Midnight local on March 1st is still Feb 29 in UTC; the calendar day is what counts.
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, madrid)
	assert.Equal(t, cents(50), SumInRange(records, start, start))
}

func TestSumInRange_Malformed(t *testing.T) {
	records := []core.Record{
		{ID: "a", Kind: core.Expense, OccurrenceType: core.OneTime, Amount: cents(5)},
		{ID: "b", Kind: core.Expense, OccurrenceType: core.Recurring, Amount: cents(5)},
		{ID: "c", Kind: core.Expense, OccurrenceType: "weird", Amount: cents(5), Date: core.NewDate(2024, 3, 3)},
		recurring(core.Expense, 5, core.RecurrenceRule{Kind: core.Weekly, DayOfWeek: "Lundi"}),
		recurring(core.Expense, 5, core.RecurrenceRule{Kind: "yearly"}),
		recurring(core.Expense, 5, core.RecurrenceRule{Kind: core.Monthly}),
		{ID: "g", Kind: core.Expense, IsGroup: true, Amount: cents(5), Date: core.NewDate(2024, 3, 3)},
	}
	assert.True(t, SumInRange(records, day(2024, 1, 1), day(2024, 12, 31)).IsZero())
}

func TestSumInRange_WeeklyIncomeOverMonth(t *testing.T) {
	records := []core.Record{recurring(core.Income, 50, core.RecurrenceRule{Kind: core.Weekly, DayOfWeek: "Lunes"})}
	// 2024-03-04 and 2024-03-11 are the only Mondays.
	assert.Equal(t, cents(100), SumInRange(records, day(2024, 3, 4), day(2024, 3, 17)))
}

func TestSumInRange_BiweeklyExpenseOverMonth(t *testing.T) {
	records := []core.Record{recurring(core.Expense, 200, core.RecurrenceRule{Kind: core.Biweekly, DaysOfMonth: []int{1, 15}})}
	assert.Equal(t, cents(400), SumInRange(records, day(2024, 4, 1), day(2024, 4, 30)))
}

func TestSumInRange_OneTimeSavingWindow(t *testing.T) {
	records := []core.Record{oneTime(core.Saving, 500, core.NewDate(2024, 3, 10))}
	assert.Equal(t, cents(500), SumInRange(records, day(2024, 3, 1), day(2024, 3, 31)))
	assert.True(t, SumInRange(records, day(2024, 4, 1), day(2024, 4, 30)).IsZero())
}

func TestSumSnapshot(t *testing.T) {
	s := core.Snapshot{
		Income:   []core.Record{oneTime(core.Income, 3000, core.NewDate(2024, 3, 1))},
		Expenses: []core.Record{recurring(core.Expense, 100, core.RecurrenceRule{Kind: core.Monthly, DaysOfMonth: []int{1, 20}})},
		Savings:  []core.Record{oneTime(core.Saving, 500, core.NewDate(2024, 3, 10))},
	}
	got := Default().SumSnapshot(s, day(2024, 3, 1), day(2024, 3, 31))
	assert.Equal(t, core.Totals{Income: cents(3000), Expense: cents(200), Saving: cents(500)}, got)
	assert.Equal(t, cents(2300), got.Net())
}
