// Package recurrence decides when financial records fire and sums or lists
// their occurrences over calendar ranges.
//
// This file implements the Strategy Pattern for recurrence rules. Each rule
// kind (daily, weekly, biweekly, monthly) has a matcher that answers whether
// the rule fires on a given day and how many times it fires in a month.
package recurrence

import (
	"fmt"

	"finanzas/internal/core"
)

// Matcher is the strategy interface for one recurrence kind.
// Implementations must be pure: the same inputs always give the same answer.
type Matcher interface {
	// Matches reports whether the rule fires on the given day.
	Matches(rule core.RecurrenceRule, day core.Date, weekdays core.WeekdayTable) bool

	// CountInMonth returns how many days of the month the rule fires on.
	// It must agree with Matches summed over every day of the month.
	CountInMonth(rule core.RecurrenceRule, year, month int, weekdays core.WeekdayTable) int
}

// DailyMatcher fires every day.
type DailyMatcher struct{}

func (DailyMatcher) Matches(core.RecurrenceRule, core.Date, core.WeekdayTable) bool {
	return true
}

func (DailyMatcher) CountInMonth(_ core.RecurrenceRule, year, month int, _ core.WeekdayTable) int {
	return core.DaysIn(year, month)
}

// WeeklyMatcher fires on the weekday named by the rule. Unknown or missing
// names never fire.
type WeeklyMatcher struct{}

func (WeeklyMatcher) Matches(rule core.RecurrenceRule, day core.Date, weekdays core.WeekdayTable) bool {
	wd, ok := weekdays.Lookup(rule.DayOfWeek)
	if !ok {
		return false
	}
	return day.Weekday() == wd
}

func (WeeklyMatcher) CountInMonth(rule core.RecurrenceRule, year, month int, weekdays core.WeekdayTable) int {
	wd, ok := weekdays.Lookup(rule.DayOfWeek)
	days := core.DaysIn(year, month)
	if !ok || days == 0 {
		return 0
	}
	first := core.NewDate(year, month, 1).Weekday()
	offset := (int(wd) - int(first) + 7) % 7
	return (days-1-offset)/7 + 1
}

// DayOfMonthMatcher fires on every listed day of the month. Used by both
// biweekly and monthly rules; days that do not exist in a month are skipped.
type DayOfMonthMatcher struct{}

func (DayOfMonthMatcher) Matches(rule core.RecurrenceRule, day core.Date, _ core.WeekdayTable) bool {
	dom := day.Day()
	for _, d := range rule.DaysOfMonth {
		if d == dom {
			return true
		}
	}
	return false
}

func (DayOfMonthMatcher) CountInMonth(rule core.RecurrenceRule, year, month int, _ core.WeekdayTable) int {
	days := core.DaysIn(year, month)
	seen := make(map[int]struct{}, len(rule.DaysOfMonth))
	for _, d := range rule.DaysOfMonth {
		if d >= 1 && d <= days {
			seen[d] = struct{}{}
		}
	}
	return len(seen)
}

// matchers maps rule kinds to their strategies.
var matchers = map[core.RecurrenceKind]Matcher{
	core.Daily:    DailyMatcher{},
	core.Weekly:   WeeklyMatcher{},
	core.Biweekly: DayOfMonthMatcher{},
	core.Monthly:  DayOfMonthMatcher{},
}

// GetMatcher returns the matcher for a rule kind.
func GetMatcher(kind core.RecurrenceKind) (Matcher, error) {
	m, ok := matchers[kind]
	if !ok {
		return nil, fmt.Errorf("unknown recurrence kind: %s", kind)
	}
	return m, nil
}

// RegisterMatcher installs a matcher for a new or existing rule kind.
// Call it during initialization only; evaluation reads the registry unlocked.
func RegisterMatcher(kind core.RecurrenceKind, m Matcher) {
	matchers[kind] = m
}
