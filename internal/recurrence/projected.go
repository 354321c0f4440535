package recurrence

import "finanzas/internal/core"

// MonthlyProjectedTotal sums a calendar month without walking it day by day:
// each live recurring source contributes its amount times the number of
// firing days its matcher counts in the month. It always equals the total of
// ExpandMonth for the same inputs.
func (e *Engine) MonthlyProjectedTotal(records []core.Record, year, month int) core.Money {
	if core.DaysIn(year, month) == 0 {
		return core.Money{}
	}

	var total core.Money
	for _, r := range records {
		for _, src := range ExpandSources(r) {
			total = total.Add(e.projectSource(src, year, month))
		}
	}
	return total
}

func (e *Engine) projectSource(src Source, year, month int) core.Money {
	switch src.Type {
	case core.OneTime:
		if src.Date.Year() == year && src.Date.Month() == month {
			return src.Amount
		}
	case core.Recurring:
		if src.Completed() {
			return core.Money{}
		}
		return src.Amount.Times(e.countInMonth(*src.Recurrence, year, month))
	}
	return core.Money{}
}

func (e *Engine) countInMonth(rule core.RecurrenceRule, year, month int) int {
	m, err := GetMatcher(rule.Kind)
	if err != nil {
		return 0
	}
	return m.CountInMonth(rule, year, month, e.weekdays)
}

// MonthMarks flags, for every day of the month, which record kinds fire.
func (e *Engine) MonthMarks(s core.Snapshot, year, month int) []core.DayMark {
	days := core.DaysIn(year, month)
	if days == 0 {
		return nil
	}
	marks := make([]core.DayMark, days)
	for i := range marks {
		marks[i].Day = i + 1
	}
	for _, tx := range e.ExpandMonth(s.All(), year, month) {
		m := &marks[tx.Date.Day()-1]
		switch tx.Kind {
		case core.Income:
			m.Income = true
		case core.Expense:
			m.Expense = true
		case core.Saving:
			m.Saving = true
		}
	}
	return marks
}
