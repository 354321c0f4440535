package recurrence

import (
	"time"

	"finanzas/internal/core"
)

// Engine evaluates records against the calendar. It holds no mutable state
// and is safe for concurrent use once the matcher registry is set up.
type Engine struct {
	weekdays core.WeekdayTable
}

// New returns an engine resolving weekly rules through the given day-name table.
func New(weekdays core.WeekdayTable) *Engine {
	return &Engine{weekdays: weekdays}
}

var defaultEngine = New(core.SpanishWeekdays)

// Default returns the engine used by the package-level functions (Spanish day names).
func Default() *Engine {
	return defaultEngine
}

// Weekdays returns the day-name table of the engine.
func (e *Engine) Weekdays() core.WeekdayTable {
	return e.weekdays
}

// OccursOn reports whether the rule fires on the day. Unknown kinds,
// unmapped weekday names and empty day lists never fire.
func (e *Engine) OccursOn(rule core.RecurrenceRule, day core.Date) bool {
	m, err := GetMatcher(rule.Kind)
	if err != nil {
		return false
	}
	return m.Matches(rule, day, e.weekdays)
}

// OccursOn evaluates the rule with the default engine.
func OccursOn(rule core.RecurrenceRule, day core.Date) bool {
	return defaultEngine.OccursOn(rule, day)
}

// SumInRange evaluates records with the default engine.
func SumInRange(records []core.Record, start, end time.Time) core.Money {
	return defaultEngine.SumInRange(records, start, end)
}

// ExpandMonth expands records with the default engine.
func ExpandMonth(records []core.Record, year, month int) []core.Transaction {
	return defaultEngine.ExpandMonth(records, year, month)
}

// ExpandRange expands records with the default engine.
func ExpandRange(records []core.Record, start, end time.Time) []core.Transaction {
	return defaultEngine.ExpandRange(records, start, end)
}

// MonthlyProjectedTotal projects a month with the default engine.
func MonthlyProjectedTotal(records []core.Record, year, month int) core.Money {
	return defaultEngine.MonthlyProjectedTotal(records, year, month)
}

// dayRange normalizes a time range to inclusive calendar days. ok is false
// when the range is empty.
func dayRange(start, end time.Time) (from, to core.Date, ok bool) {
	from, to = core.DateOf(start), core.DateOf(end)
	return from, to, from.DayKey() <= to.DayKey()
}
