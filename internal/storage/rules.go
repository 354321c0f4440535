package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"finanzas/internal/core"
)

// ruleColumns flattens an optional rule into its three columns. Days of month
// are stored as a JSON array.
func ruleColumns(rule *core.RecurrenceRule) (kind any, dayOfWeek string, daysOfMonth string, err error) {
	if rule == nil {
		return nil, "", "[]", nil
	}
	days := rule.DaysOfMonth
	if days == nil {
		days = []int{}
	}
	raw, err := json.Marshal(days)
	if err != nil {
		return nil, "", "", fmt.Errorf("encode days of month: %w", err)
	}
	return string(rule.Kind), rule.DayOfWeek, string(raw), nil
}

// parseRule rebuilds a rule; a NULL kind means no rule.
func parseRule(kind sql.NullString, dayOfWeek, daysOfMonth string) (*core.RecurrenceRule, error) {
	if !kind.Valid {
		return nil, nil
	}
	rule := &core.RecurrenceRule{Kind: core.RecurrenceKind(kind.String), DayOfWeek: dayOfWeek}
	if daysOfMonth != "" {
		var days []int
		if err := json.Unmarshal([]byte(daysOfMonth), &days); err != nil {
			return nil, fmt.Errorf("malformed days_of_month %q: %w", daysOfMonth, err)
		}
		if len(days) > 0 {
			rule.DaysOfMonth = days
		}
	}
	return rule, nil
}
