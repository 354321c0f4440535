// Package period decides where a budgeting period starts and ends and
// summarizes the money moving through it.
//
// Period boundaries are a product decision, so several policies exist side
// by side and configuration selects one. Each policy implements Policy and
// registers under its name, the same way recurrence matchers do.
package period

import (
	"fmt"
	"sort"
	"strings"

	"finanzas/internal/core"
	"finanzas/internal/recurrence"
)

const (
	CalendarMonthPolicy = "calendar-month"
	HalfMonthPolicy     = "half-month"
	PayDatePolicy       = "paydate"
)

// DefaultPolicy is used when configuration names none.
const DefaultPolicy = CalendarMonthPolicy

// Policy computes the inclusive bounds of the period containing ref.
type Policy interface {
	Name() string
	Bounds(s core.Snapshot, ref core.Date) (start, end core.Date)
}

// CalendarMonth covers the calendar month of the reference date.
type CalendarMonth struct{}

func (CalendarMonth) Name() string { return CalendarMonthPolicy }

func (CalendarMonth) Bounds(_ core.Snapshot, ref core.Date) (core.Date, core.Date) {
	return monthBounds(ref)
}

// HalfMonth splits each month into days 1-15 and 16 to month end.
type HalfMonth struct{}

func (HalfMonth) Name() string { return HalfMonthPolicy }

func (HalfMonth) Bounds(_ core.Snapshot, ref core.Date) (core.Date, core.Date) {
	y, m := ref.Year(), ref.Month()
	if ref.Day() <= 15 {
		return core.NewDate(y, m, 1), core.NewDate(y, m, 15)
	}
	return core.NewDate(y, m, 16), core.NewDate(y, m, core.DaysIn(y, m))
}

// searchDays bounds the scan for neighbouring pay dates. A monthly rule on
// the 31st can skip a whole month, so two months plus slack is enough.
const searchDays = 66

// PayDate runs from one firing of the dominant recurring income to the day
// before the next one. The dominant income is the live recurring income
// source contributing the most in the reference month. Without one, or when
// it fires daily, the calendar month is used.
type PayDate struct {
	Engine *recurrence.Engine
}

func (PayDate) Name() string { return PayDatePolicy }

func (p PayDate) Bounds(s core.Snapshot, ref core.Date) (core.Date, core.Date) {
	e := p.engine()
	rule, ok := DominantIncome(e, s.Income, ref.Year(), ref.Month())
	if !ok || rule.Kind == core.Daily {
		return monthBounds(ref)
	}

	start, found := core.Date{}, false
	for i := 0; i <= searchDays; i++ {
		d := ref.AddDays(-i)
		if e.OccursOn(rule, d) {
			start, found = d, true
			break
		}
	}
	if !found {
		return monthBounds(ref)
	}
	for i := 1; i <= searchDays; i++ {
		d := ref.AddDays(i)
		if e.OccursOn(rule, d) {
			return start, d.AddDays(-1)
		}
	}
	return monthBounds(ref)
}

func (p PayDate) engine() *recurrence.Engine {
	if p.Engine != nil {
		return p.Engine
	}
	return recurrence.Default()
}

// DominantIncome returns the rule of the live recurring income source with
// the largest projected total in the month. Ties keep the first record.
func DominantIncome(e *recurrence.Engine, income []core.Record, year, month int) (core.RecurrenceRule, bool) {
	var (
		best    core.RecurrenceRule
		bestAmt int64
		found   bool
	)
	for _, r := range income {
		for _, src := range recurrence.ExpandSources(r) {
			if src.Type != core.Recurring || src.Completed() {
				continue
			}
			if _, err := recurrence.GetMatcher(src.Recurrence.Kind); err != nil {
				continue
			}
			amt := e.MonthlyProjectedTotal([]core.Record{sourceRecord(src)}, year, month).Cents
			if amt <= 0 {
				continue
			}
			if !found || amt > bestAmt {
				best, bestAmt, found = *src.Recurrence, amt, true
			}
		}
	}
	return best, found
}

// sourceRecord rebuilds a standalone recurring record from a source so it can
// be projected on its own.
func sourceRecord(src recurrence.Source) core.Record {
	return core.Record{
		ID:             src.RecordID,
		Kind:           src.Kind,
		Name:           src.Name,
		OccurrenceType: core.Recurring,
		Amount:         src.Amount,
		Recurrence:     src.Recurrence,
	}
}

func monthBounds(ref core.Date) (core.Date, core.Date) {
	y, m := ref.Year(), ref.Month()
	return core.NewDate(y, m, 1), core.NewDate(y, m, core.DaysIn(y, m))
}

// policies maps names to constructors taking the engine to evaluate with.
var policies = map[string]func(e *recurrence.Engine) Policy{
	CalendarMonthPolicy: func(*recurrence.Engine) Policy { return CalendarMonth{} },
	HalfMonthPolicy:     func(*recurrence.Engine) Policy { return HalfMonth{} },
	PayDatePolicy:       func(e *recurrence.Engine) Policy { return PayDate{Engine: e} },
}

// ForName returns the named policy. An empty name selects DefaultPolicy.
func ForName(name string, e *recurrence.Engine) (Policy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultPolicy
	}
	ctor, ok := policies[name]
	if !ok {
		return nil, fmt.Errorf("unknown period policy %q (valid: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(e), nil
}

// Names lists the registered policy names, sorted.
func Names() []string {
	out := make([]string, 0, len(policies))
	for name := range policies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
