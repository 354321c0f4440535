package recurrence

import (
	"sort"
	"time"

	"finanzas/internal/core"
)

// ExpandMonth lists every occurrence of the records in a calendar month, one
// row per one-time source dated in the month and one row per firing day of
// each live recurring source. Rows are not sorted. Invalid months yield nil.
func (e *Engine) ExpandMonth(records []core.Record, year, month int) []core.Transaction {
	days := core.DaysIn(year, month)
	if days == 0 {
		return nil
	}
	return e.expand(records, core.NewDate(year, month, 1), core.NewDate(year, month, days))
}

// ExpandRange lists every occurrence between start and end inclusive, with the
// same day normalization as SumInRange.
func (e *Engine) ExpandRange(records []core.Record, start, end time.Time) []core.Transaction {
	from, to, ok := dayRange(start, end)
	if !ok {
		return nil
	}
	return e.expand(records, from, to)
}

// OccurrencesOn lists what fires on a single day.
func (e *Engine) OccurrencesOn(records []core.Record, day time.Time) []core.Transaction {
	return e.ExpandRange(records, day, day)
}

func (e *Engine) expand(records []core.Record, from, to core.Date) []core.Transaction {
	var rows []core.Transaction
	last := to.DayKey()
	for _, r := range records {
		for _, src := range ExpandSources(r) {
			switch src.Type {
			case core.OneTime:
				if inRange(src.Date, from, to) {
					rows = append(rows, row(src, src.Date))
				}
			case core.Recurring:
				if src.Completed() {
					continue
				}
				for d := from; d.DayKey() <= last; d = d.AddDays(1) {
					if e.OccursOn(*src.Recurrence, d) {
						rows = append(rows, row(src, d))
					}
				}
			}
		}
	}
	return rows
}

func row(src Source, day core.Date) core.Transaction {
	return core.Transaction{
		Date:           day,
		RecordID:       src.RecordID,
		Kind:           src.Kind,
		Name:           src.Name,
		Group:          src.Group,
		Item:           src.Item,
		Category:       src.Category,
		Amount:         src.Amount,
		OccurrenceType: src.Type,
	}
}

// SortTransactions orders rows by date, ascending for forecasts or descending
// for history. Same-day rows keep kind then name order.
func SortTransactions(rows []core.Transaction, ascending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if ka, kb := a.Date.DayKey(), b.Date.DayKey(); ka != kb {
			if ascending {
				return ka < kb
			}
			return ka > kb
		}
		if a.Kind != b.Kind {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		return a.Name < b.Name
	})
}

func kindOrder(k core.RecordKind) int {
	for i, kind := range core.Kinds() {
		if kind == k {
			return i
		}
	}
	return len(core.Kinds())
}

// TotalOf sums the amounts of the rows.
func TotalOf(rows []core.Transaction) core.Money {
	var total core.Money
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}

// ByCategory sums rows per category, largest first, ties by name.
func ByCategory(rows []core.Transaction) []core.CategoryAmount {
	sums := make(map[string]core.Money)
	for _, r := range rows {
		sums[r.Category] = sums[r.Category].Add(r.Amount)
	}
	out := make([]core.CategoryAmount, 0, len(sums))
	for name, amount := range sums {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}
