package core

import "time"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// Transaction is one dated occurrence produced by expanding records.
type Transaction struct {
	Date           Date           `json:"date"`
	RecordID       string         `json:"recordId"`
	Kind           RecordKind     `json:"kind"`
	Name           string         `json:"name"`
	Group          string         `json:"group,omitempty"` // parent name for group items
	Item           int            `json:"item,omitempty"`  // 1-based position in the group, 0 otherwise
	Category       string         `json:"category"`
	Amount         Money          `json:"amount"`
	OccurrenceType OccurrenceType `json:"occurrenceType"`
}

// DayMark flags which record kinds fire on a day of a month.
type DayMark struct {
	Day     int  `json:"day"`
	Income  bool `json:"income"`
	Expense bool `json:"expense"`
	Saving  bool `json:"saving"`
}

// Totals holds one sum per record kind.
type Totals struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Saving  Money `json:"saving"`
}

// Net is income minus expenses and savings.
func (t Totals) Net() Money {
	return t.Income.Sub(t.Expense).Sub(t.Saving)
}

// Add accumulates an amount under its kind.
func (t *Totals) Add(kind RecordKind, m Money) {
	switch kind {
	case Income:
		t.Income = t.Income.Add(m)
	case Expense:
		t.Expense = t.Expense.Add(m)
	case Saving:
		t.Saving = t.Saving.Add(m)
	}
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year         int              `json:"year"`
	Month        int              `json:"month"` // 1-12
	Totals       Totals           `json:"totals"`
	ByCategory   []CategoryAmount `json:"byCategory"`
	Transactions []Transaction    `json:"transactions"`
}

// PeriodSummary is the dashboard view of one budgeting period.
type PeriodSummary struct {
	Policy    string    `json:"policy"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Totals    Totals    `json:"totals"`
	CarryOver Money     `json:"carryOver"`
	Balance   Money     `json:"balance"`
}
