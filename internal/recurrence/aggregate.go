package recurrence

import (
	"time"

	"finanzas/internal/core"
)

// SumInRange adds up every occurrence of the records between start and end,
// both inclusive. Time of day is ignored: start counts from the beginning of
// its day and end through the end of its day. A start after end yields zero.
//
// Recurring sources are checked day by day, so the cost is
// O(days × recurring sources). Callers summing many overlapping ranges
// should reuse results instead of rescanning.
func (e *Engine) SumInRange(records []core.Record, start, end time.Time) core.Money {
	from, to, ok := dayRange(start, end)
	if !ok {
		return core.Money{}
	}

	var total core.Money
	for _, r := range records {
		for _, src := range ExpandSources(r) {
			total = total.Add(e.sumSource(src, from, to))
		}
	}
	return total
}

func (e *Engine) sumSource(src Source, from, to core.Date) core.Money {
	switch src.Type {
	case core.OneTime:
		if inRange(src.Date, from, to) {
			return src.Amount
		}
	case core.Recurring:
		if src.Completed() {
			return core.Money{}
		}
		fires := 0
		last := to.DayKey()
		for d := from; d.DayKey() <= last; d = d.AddDays(1) {
			if e.OccursOn(*src.Recurrence, d) {
				fires++
			}
		}
		return src.Amount.Times(fires)
	}
	return core.Money{}
}

// SumSnapshot sums each collection of the snapshot over the range.
func (e *Engine) SumSnapshot(s core.Snapshot, start, end time.Time) core.Totals {
	var t core.Totals
	for _, kind := range core.Kinds() {
		t.Add(kind, e.SumInRange(s.Of(kind), start, end))
	}
	return t
}

func inRange(d, from, to core.Date) bool {
	k := d.DayKey()
	return k >= from.DayKey() && k <= to.DayKey()
}
